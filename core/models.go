package core

import "strings"

const (
	MinPopulation = 1000
	MaxPopulation = 10000000
	MaxCityItems  = 3

	DefaultCityName   = "SmartCity Beta"
	DefaultPopulation = 500000
)

var DefaultChallenges = []string{
	"High carbon emissions",
	"Uneven resource distribution",
	"Limited public transportation",
}

var DefaultGoals = []string{
	"50% carbon emission reduction by 2030",
	"Increase public transit usage by 40%",
	"Develop more green spaces",
}

type CityContext struct {
	Name       string   `json:"name"`
	Population int      `json:"population" validate:"min=1000,max=10000000"`
	Challenges []string `json:"current_challenges" validate:"max=3,dive,required,notblank"`
	Goals      []string `json:"sustainability_goals" validate:"max=3,dive,required,notblank"`
}

// NewCityContext drops blank challenges and goals and clamps the population
// into the accepted range, the way the form controls do.
func NewCityContext(name string, population int, challenges []string, goals []string) CityContext {
	return CityContext{
		Name:       name,
		Population: ClampPopulation(population),
		Challenges: NonEmpty(challenges),
		Goals:      NonEmpty(goals),
	}
}

func ClampPopulation(population int) int {
	if population < MinPopulation {
		return MinPopulation
	}
	if population > MaxPopulation {
		return MaxPopulation
	}
	return population
}

// NonEmpty keeps the order of the non-blank entries. Entries past
// MaxCityItems are ignored.
func NonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if len(out) == MaxCityItems {
			break
		}
		if strings.TrimSpace(item) == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

type AgentSpec struct {
	Role            string `json:"role"`
	Goal            string `json:"goal"`
	Backstory       string `json:"backstory"`
	AllowDelegation bool   `json:"allowDelegation"`
	Verbose         bool   `json:"verbose"`
}

type TaskSpec struct {
	Description    string    `json:"description"`
	ExpectedOutput string    `json:"expectedOutput"`
	Agent          AgentSpec `json:"agent"`
	Async          bool      `json:"async"`
}

type TaskOutput struct {
	Agent  string `json:"agent"`
	Output string `json:"output"`
	Stats  Stats  `json:"stats"`
}

type SimulationResult struct {
	RunID    string       `json:"run_id"`
	Raw      string       `json:"result"`
	Tasks    []TaskOutput `json:"tasks"`
	Stats    Stats        `json:"stats"`
	Attempts int          `json:"attempts"`
}

func (r SimulationResult) Empty() bool {
	return strings.TrimSpace(r.Raw) == ""
}

type Diagnostics struct {
	RunID         string   `json:"run_id,omitempty"`
	Trace         []string `json:"trace"`
	GoVersion     string   `json:"go_version"`
	CredentialSet bool     `json:"credential_set"`
	Attempts      int      `json:"attempts,omitempty"`
}

type SimulateRequest struct {
	Name       string   `json:"name" jsonschema_description:"City name"`
	Population int      `json:"population,omitempty" jsonschema:"minimum=1000,maximum=10000000" jsonschema_description:"Population, clamped into range; 0 selects the default"`
	Challenges []string `json:"current_challenges,omitempty" jsonschema:"maxItems=3" jsonschema_description:"Current challenges, blank entries are dropped"`
	Goals      []string `json:"sustainability_goals,omitempty" jsonschema:"maxItems=3" jsonschema_description:"Sustainability goals, blank entries are dropped"`
}

type SimulateResponse struct {
	RunID    string       `json:"run_id"`
	Result   string       `json:"result"`
	Tasks    []TaskOutput `json:"tasks"`
	Stats    Stats        `json:"stats"`
	Attempts int          `json:"attempts"`
}

type ErrorResponse struct {
	Error       string      `json:"error"`
	Diagnostics Diagnostics `json:"diagnostics"`
}
