package web

import (
	"errors"
	"strconv"
	"strings"

	"polycode/urban-nexus/core"
)

// CityForm mirrors the sidebar controls. Challenge and goal inputs carry
// distinct names so that each one binds on its own.
type CityForm struct {
	Name       string `form:"name"`
	Population string `form:"population"`
	Challenge1 string `form:"challenge_1"`
	Challenge2 string `form:"challenge_2"`
	Challenge3 string `form:"challenge_3"`
	Goal1      string `form:"goal_1"`
	Goal2      string `form:"goal_2"`
	Goal3      string `form:"goal_3"`
}

func DefaultCityForm() CityForm {
	return CityForm{
		Name:       core.DefaultCityName,
		Population: strconv.Itoa(core.DefaultPopulation),
		Challenge1: core.DefaultChallenges[0],
		Challenge2: core.DefaultChallenges[1],
		Challenge3: core.DefaultChallenges[2],
		Goal1:      core.DefaultGoals[0],
		Goal2:      core.DefaultGoals[1],
		Goal3:      core.DefaultGoals[2],
	}
}

func (f CityForm) Challenges() []string {
	return []string{f.Challenge1, f.Challenge2, f.Challenge3}
}

func (f CityForm) Goals() []string {
	return []string{f.Goal1, f.Goal2, f.Goal3}
}

// CityContext reads the submitted controls. A missing or non-numeric
// population selects the default; any other number is clamped.
func (f CityForm) CityContext() core.CityContext {
	return core.NewCityContext(f.Name, parsePopulation(f.Population), f.Challenges(), f.Goals())
}

func parsePopulation(raw string) int {
	raw = strings.TrimSpace(raw)
	population, err := strconv.Atoi(raw)
	if errors.Is(err, strconv.ErrRange) {
		if strings.HasPrefix(raw, "-") {
			return core.MinPopulation
		}
		return core.MaxPopulation
	}
	if err != nil {
		return core.DefaultPopulation
	}
	return population
}

// FromRequest applies the same collection rules to an API request body. An
// omitted population selects the default.
func FromRequest(req core.SimulateRequest) core.CityContext {
	population := req.Population
	if population == 0 {
		population = core.DefaultPopulation
	}
	return core.NewCityContext(req.Name, population, req.Challenges, req.Goals)
}
