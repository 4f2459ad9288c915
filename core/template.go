package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
)

var labelRegEx = regexp.MustCompile(`{{\s*([A-Za-z0-9_]+)\s*}}`)

// ReplaceLabels substitutes every {{key}} of template in a single pass, so
// substituted values are never scanned for placeholders again.
func ReplaceLabels(template string, replacements map[string]string) string {
	if len(replacements) == 0 {
		return template
	}
	keys := make([]string, 0, len(replacements))
	for key := range replacements {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, key := range keys {
		pairs = append(pairs, "{{"+key+"}}", replacements[key])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// Labels lists the placeholder names used in template, in order of first use.
func Labels(template string) []string {
	var names []string
	seen := map[string]bool{}
	for _, match := range labelRegEx.FindAllStringSubmatch(template, -1) {
		if seen[match[1]] {
			continue
		}
		seen[match[1]] = true
		names = append(names, match[1])
	}
	return names
}

// ExtractTagContent returns the inner text of every <tag>...</tag> section of
// text joined by newlines, or an error if no complete section exists.
func ExtractTagContent(text, tag string) (string, error) {
	var results []string
	openTag := fmt.Sprintf("<%s>", tag)
	closeTag := fmt.Sprintf("</%s>", tag)

	for {
		start := strings.Index(text, openTag)
		if start == -1 {
			break
		}
		end := strings.Index(text[start:], closeTag)
		if end == -1 {
			break
		}
		results = append(results, text[start+len(openTag):start+end])
		text = text[start+end+len(closeTag):]
	}
	if len(results) == 0 {
		return "", fmt.Errorf("tag %q not found", tag)
	}
	return strings.TrimSpace(strings.Join(results, "\n")), nil
}

// GetSchema returns the definition of the struct obj points to.
func GetSchema(obj interface{}) (*jsonschema.Schema, error) {
	if reflect.ValueOf(obj).Kind() != reflect.Ptr {
		return nil, errors.New("object must be a pointer")
	}
	pointsToValue := reflect.Indirect(reflect.ValueOf(obj))
	if pointsToValue.Kind() == reflect.Slice {
		return nil, errors.New("slice not supported as an input")
	}
	if pointsToValue.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s is not a struct", pointsToValue.Kind())
	}

	reflector := &jsonschema.Reflector{DoNotReference: true}
	return reflector.Reflect(obj), nil
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
