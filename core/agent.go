package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

var systemAgentContext = `
You are {{role}}.
{{backstory}}

Your personal goal is: {{goal}}

You work on one task at a time as part of a crew. Read the task and the
expected output carefully and think step by step before answering.

Put your thinking between the <thinking></thinking> tags.
Put your final answer, and only your final answer, between the
<response></response> tags. The final answer must satisfy the expected
output in full; it is the only part anyone will read.

Here's an example of how your output should look:

<thinking>
...
</thinking>

<response>
1. ...
2. ...
</response>
`

var taskPrompt = `
Current task: {{description}}

This is the expected criteria for your final answer: {{expected_output}}
You MUST return the actual complete content as the final answer, not a summary.
{{context}}
Begin! This is VERY important to you, give your best final answer, your job depends on it!
`

var taskContextPrompt = `
This is the context you're working with:
{{outputs}}
`

func NewAgent(spec AgentSpec, llm LLM, logger zerolog.Logger) *Agent {
	return &Agent{
		Spec:   spec,
		LLM:    llm,
		logger: logger.With().Str("agent", spec.Role).Logger(),
	}
}

type Agent struct {
	Spec AgentSpec
	LLM  LLM
	// SessionKey is forwarded to the model so provider side logs can be
	// correlated with one simulation run.
	SessionKey string
	logger     zerolog.Logger
}

func (agent *Agent) GetName() string {
	return agent.Spec.Role
}

func (agent *Agent) SystemContext() string {
	return ReplaceLabels(systemAgentContext, map[string]string{
		"role":      agent.Spec.Role,
		"goal":      agent.Spec.Goal,
		"backstory": agent.Spec.Backstory,
	})
}

// Run executes one task. previous holds the outputs of the tasks the crew
// already completed, in order.
func (agent *Agent) Run(ctx context.Context, task TaskSpec, previous []TaskOutput) (TaskOutput, error) {
	contextText := ""
	if len(previous) > 0 {
		var parts []string
		for _, p := range previous {
			parts = append(parts, p.Output)
		}
		contextText = ReplaceLabels(taskContextPrompt, map[string]string{"outputs": strings.Join(parts, "\n\n----------\n\n")})
	}
	input := LLMInput{
		SessionKey: agent.SessionKey,
		Text: ReplaceLabels(taskPrompt, map[string]string{
			"description":     task.Description,
			"expected_output": task.ExpectedOutput,
			"context":         contextText,
		}),
	}

	agent.logger.Debug().Str("model", agent.LLM.ModelName()).Msg("executing task")
	out, err := agent.LLM.Generate(ctx, agent.SystemContext(), input)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return TaskOutput{}, err
		}
		return TaskOutput{}, &RemoteExecutionError{Agent: agent.Spec.Role, Err: err}
	}

	text := strings.TrimSpace(out.Text)
	if response, err := ExtractTagContent(text, "response"); err == nil {
		text = response
	} else {
		agent.logger.Debug().Msg("response tag missing, using the raw reply")
	}
	if text == "" {
		return TaskOutput{}, &RemoteExecutionError{Agent: agent.Spec.Role, Err: fmt.Errorf("model %s returned an empty reply", agent.LLM.ModelName())}
	}

	agent.logger.Debug().
		Int32("input_tokens", out.Stats.InputTokenCount).
		Int32("output_tokens", out.Stats.OutputTokenCount).
		Msg("task completed")
	return TaskOutput{
		Agent:  agent.Spec.Role,
		Output: text,
		Stats:  out.Stats,
	}, nil
}
