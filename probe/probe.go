// Package probe submits the simulator form of a running server and reports
// what came back.
package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog"
)

const DefaultTimeout = 3 * time.Minute

type Report struct {
	URL           string
	Fields        map[string]string
	SuccessPanels int
	ErrorPanels   int
	Result        string
	Details       string
}

// OK reports whether the page held exactly one success panel and no error.
func (r Report) OK() bool {
	return r.SuccessPanels == 1 && r.ErrorPanels == 0
}

type Prober struct {
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Run loads the form at url, submits it with its pre-filled values and
// inspects the rendered outcome.
func (p *Prober) Run(ctx context.Context, url string) (Report, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(timeout)

	report := Report{URL: url, Fields: map[string]string{}}
	action := ""
	submitted := false
	var crawlErr error

	c.OnHTML("form#city-form", func(e *colly.HTMLElement) {
		action = e.Request.AbsoluteURL(e.Attr("action"))
		e.ForEach("input[name]", func(_ int, in *colly.HTMLElement) {
			report.Fields[in.Attr("name")] = in.Attr("value")
		})
	})
	c.OnHTML("main", func(e *colly.HTMLElement) {
		if e.Request.Method != "POST" {
			return
		}
		submitted = true
		report.SuccessPanels = countPanels(e.DOM, "success")
		report.ErrorPanels = countPanels(e.DOM, "error")
		report.Result = strings.TrimSpace(e.ChildText(`[data-field="result"]`))
		report.Details = strings.TrimSpace(e.ChildText(`[data-panel="error"]`))
	})
	c.OnError(func(r *colly.Response, err error) {
		crawlErr = fmt.Errorf("%s %s: status %d: %w", r.Request.Method, r.Request.URL, r.StatusCode, err)
	})

	p.Logger.Info().Str("url", url).Msg("loading form")
	if err := c.Visit(url); err != nil {
		return report, fmt.Errorf("visit %s: %w", url, err)
	}
	if crawlErr != nil {
		return report, crawlErr
	}
	if action == "" {
		return report, errors.New("no city form found")
	}

	p.Logger.Info().Str("action", action).Int("fields", len(report.Fields)).Msg("submitting form")
	if err := c.Post(action, report.Fields); err != nil {
		return report, fmt.Errorf("submit %s: %w", action, err)
	}
	if crawlErr != nil {
		return report, crawlErr
	}
	if !submitted {
		return report, errors.New("submission returned no result page")
	}
	return report, nil
}

func countPanels(sel *goquery.Selection, panel string) int {
	return sel.Find(fmt.Sprintf(`[data-panel=%q]`, panel)).Length()
}
