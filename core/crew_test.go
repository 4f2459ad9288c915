package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type llmCall struct {
	System string
	Input  string
}

// scriptedLLM answers each call with the next reply in order.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	stats   Stats
	calls   []llmCall
}

func (l *scriptedLLM) Generate(ctx context.Context, systemContext string, input LLMInput) (LLMOutput, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.calls)
	l.calls = append(l.calls, llmCall{System: systemContext, Input: input.Text})
	if n < len(l.errs) && l.errs[n] != nil {
		return LLMOutput{}, l.errs[n]
	}
	reply := ""
	if n < len(l.replies) {
		reply = l.replies[n]
	}
	return LLMOutput{Text: reply, Stats: l.stats}, nil
}

func (l *scriptedLLM) ModelName() string {
	return "scripted"
}

var (
	plannerSpec = AgentSpec{
		Role:      "Planner",
		Goal:      "Plan things",
		Backstory: "Plans for a living.",
	}
	strategistSpec = AgentSpec{
		Role:      "Strategist",
		Goal:      "Grow the economy",
		Backstory: "Knows markets.",
	}
)

func newTestCrew(t *testing.T, llm LLM, tasks ...TaskSpec) *Crew {
	t.Helper()
	logger := zerolog.Nop()
	crew, err := NewCrew([]*Agent{
		NewAgent(plannerSpec, llm, logger),
		NewAgent(strategistSpec, llm, logger),
	}, tasks, logger)
	require.NoError(t, err)
	return crew
}

func TestCrewKickoffRunsTasksInOrder(t *testing.T) {
	llm := &scriptedLLM{
		replies: []string{
			"<thinking>roads first</thinking>\n<response>\nbuild tram lines\n</response>",
			"attract green industry",
		},
		stats: Stats{InputTokenCount: 10, OutputTokenCount: 5, TotalTokenCount: 15},
	}
	crew := newTestCrew(t, llm,
		TaskSpec{Description: "Plan the grid", ExpectedOutput: "A grid plan", Agent: plannerSpec},
		TaskSpec{Description: "Plan the economy", ExpectedOutput: "An economic plan", Agent: strategistSpec},
	)

	result, err := crew.Kickoff(context.Background(), map[string]string{"city_context": "{}"})
	require.NoError(t, err)

	assert.Equal(t, "## Planner\n\nbuild tram lines\n\n## Strategist\n\nattract green industry", result.Raw)
	require.Len(t, result.Tasks, 2)
	assert.Equal(t, "Planner", result.Tasks[0].Agent)
	assert.Equal(t, "build tram lines", result.Tasks[0].Output)
	assert.Equal(t, Stats{InputTokenCount: 20, OutputTokenCount: 10, TotalTokenCount: 30}, result.Stats)

	require.Len(t, llm.calls, 2)
	assert.Contains(t, llm.calls[0].System, "You are Planner.")
	assert.Contains(t, llm.calls[0].System, "Your personal goal is: Plan things")
	assert.Contains(t, llm.calls[0].Input, "Current task: Plan the grid")
	assert.Contains(t, llm.calls[0].Input, "A grid plan")
	assert.NotContains(t, llm.calls[0].Input, "This is the context you're working with")

	assert.Contains(t, llm.calls[1].System, "You are Strategist.")
	assert.Contains(t, llm.calls[1].Input, "This is the context you're working with")
	assert.Contains(t, llm.calls[1].Input, "build tram lines")
}

func TestCrewKickoffInterpolatesInputs(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"ok"}}
	crew := newTestCrew(t, llm,
		TaskSpec{Description: "Plan for {{city_context}}", ExpectedOutput: "Plan", Agent: plannerSpec},
	)

	_, err := crew.Kickoff(context.Background(), map[string]string{"city_context": `{"name":"Metro"}`})
	require.NoError(t, err)
	require.Len(t, llm.calls, 1)
	assert.Contains(t, llm.calls[0].Input, `Plan for {"name":"Metro"}`)
}

func TestCrewKickoffWithoutPlaceholdersLeavesTemplatesUntouched(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"ok"}}
	crew := newTestCrew(t, llm,
		TaskSpec{Description: "Plan the grid", ExpectedOutput: "Plan", Agent: plannerSpec},
	)

	_, err := crew.Kickoff(context.Background(), map[string]string{"city_context": `{"name":"Metro"}`})
	require.NoError(t, err)
	assert.NotContains(t, llm.calls[0].Input, "Metro")
}

func TestCrewKickoffPassesContextVerbatim(t *testing.T) {
	for i := 0; i < 200; i++ {
		llm := &scriptedLLM{replies: []string{"use {{expected_output}} and {{description}} literally", "ok"}}
		crew := newTestCrew(t, llm,
			TaskSpec{Description: "Plan the grid", ExpectedOutput: "A grid plan", Agent: plannerSpec},
			TaskSpec{Description: "Plan the economy", ExpectedOutput: "SECRET-B", Agent: strategistSpec},
		)

		_, err := crew.Kickoff(context.Background(), nil)
		require.NoError(t, err)
		require.Len(t, llm.calls, 2)
		require.Contains(t, llm.calls[1].Input, "use {{expected_output}} and {{description}} literally", "run %d", i)
		require.Equal(t, 1, strings.Count(llm.calls[1].Input, "SECRET-B"), "run %d", i)
	}
}

func TestCrewKickoffWarnsAboutUnknownPlaceholders(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	llm := &scriptedLLM{replies: []string{"ok", "ok"}}
	crew, err := NewCrew([]*Agent{NewAgent(plannerSpec, llm, logger)}, []TaskSpec{
		{Description: "Keep {{", ExpectedOutput: "missing}} braces", Agent: plannerSpec},
		{Description: "Plan for {{district}}", ExpectedOutput: "Plan", Agent: plannerSpec},
	}, logger)
	require.NoError(t, err)

	_, err = crew.Kickoff(context.Background(), map[string]string{"city_context": "{}"})
	require.NoError(t, err)

	logs := buf.String()
	assert.Equal(t, 1, strings.Count(logs, "no input for placeholder"))
	assert.Contains(t, logs, `"placeholder":"district"`)
	assert.NotContains(t, logs, `"placeholder":"missing"`)
}

func TestCrewKickoffModelFailure(t *testing.T) {
	llm := &scriptedLLM{errs: []error{errors.New("connection reset")}}
	crew := newTestCrew(t, llm,
		TaskSpec{Description: "Plan the grid", ExpectedOutput: "Plan", Agent: plannerSpec},
		TaskSpec{Description: "Plan the economy", ExpectedOutput: "Plan", Agent: strategistSpec},
	)

	result, err := crew.Kickoff(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, IsRemoteExecutionError(err))
	assert.Contains(t, err.Error(), "task 1 (Planner)")
	assert.Contains(t, err.Error(), "connection reset")
	assert.True(t, result.Empty())
	assert.Len(t, llm.calls, 1, "later tasks must not run")
}

func TestCrewKickoffEmptyReply(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"<response>  </response>"}}
	crew := newTestCrew(t, llm,
		TaskSpec{Description: "Plan the grid", ExpectedOutput: "Plan", Agent: plannerSpec},
	)

	_, err := crew.Kickoff(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, IsRemoteExecutionError(err))
	assert.Contains(t, err.Error(), "empty reply")
}

func TestCrewKickoffCancelled(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"ok"}}
	crew := newTestCrew(t, llm,
		TaskSpec{Description: "Plan the grid", ExpectedOutput: "Plan", Agent: plannerSpec},
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := crew.Kickoff(ctx, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, llm.calls)
}

func TestNewCrewRejectsInvalidTasks(t *testing.T) {
	llm := &scriptedLLM{}
	agents := []*Agent{NewAgent(plannerSpec, llm, zerolog.Nop())}

	tests := []struct {
		name   string
		tasks  []TaskSpec
		errMsg string
	}{
		{name: "no tasks", tasks: nil, errMsg: "no tasks"},
		{
			name:   "async task",
			tasks:  []TaskSpec{{Description: "x", Agent: plannerSpec, Async: true}},
			errMsg: "only sequential execution",
		},
		{
			name:   "unknown agent",
			tasks:  []TaskSpec{{Description: "x", Agent: strategistSpec}},
			errMsg: `no agent with role "Strategist"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crew, err := NewCrew(agents, tt.tasks, zerolog.Nop())
			require.Error(t, err)
			assert.Nil(t, crew)
			assert.True(t, IsConfigurationError(err))
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestCityInputs(t *testing.T) {
	city := NewCityContext(DefaultCityName, DefaultPopulation, DefaultChallenges, DefaultGoals)

	inputs, err := CityInputs(city)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	encoded := inputs["city_context"]
	assert.True(t, strings.HasPrefix(encoded, `{"name":"SmartCity Beta","population":500000,`))
	assert.Contains(t, encoded, `"current_challenges":["High carbon emissions","Uneven resource distribution","Limited public transportation"]`)
	assert.Contains(t, encoded, `"sustainability_goals":["50% carbon emission reduction by 2030","Increase public transit usage by 40%","Develop more green spaces"]`)
}
