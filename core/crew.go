package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Crew runs its tasks one after another; each task sees the outputs of the
// tasks before it.
type Crew struct {
	Agents     []*Agent
	Tasks      []TaskSpec
	SessionKey string
	logger     zerolog.Logger
}

func NewCrew(agents []*Agent, tasks []TaskSpec, logger zerolog.Logger) (*Crew, error) {
	if len(tasks) == 0 {
		return nil, NewConfigurationError("crew has no tasks", nil)
	}
	crew := &Crew{Agents: agents, Tasks: tasks, logger: logger}
	for _, task := range tasks {
		if task.Async {
			return nil, NewConfigurationError(fmt.Sprintf("task for %q is asynchronous, only sequential execution is supported", task.Agent.Role), nil)
		}
		if crew.agentFor(task) == nil {
			return nil, NewConfigurationError(fmt.Sprintf("no agent with role %q in crew", task.Agent.Role), nil)
		}
	}
	return crew, nil
}

func (c *Crew) agentFor(task TaskSpec) *Agent {
	for _, agent := range c.Agents {
		if agent.Spec.Role == task.Agent.Role {
			return agent
		}
	}
	return nil
}

// Kickoff interpolates inputs into the task and agent templates and runs the
// tasks in order. Either every task completes or an error is returned.
func (c *Crew) Kickoff(ctx context.Context, inputs map[string]string) (SimulationResult, error) {
	var outputs []TaskOutput
	var stats Stats
	for i, task := range c.Tasks {
		if err := ctx.Err(); err != nil {
			return SimulationResult{}, err
		}
		agent := c.agentFor(task)
		for _, template := range []string{task.Description, task.ExpectedOutput} {
			for _, label := range Labels(template) {
				if _, ok := inputs[label]; !ok {
					c.logger.Warn().Str("placeholder", label).Int("task", i+1).Msg("no input for placeholder")
				}
			}
		}
		interpolated := interpolateTask(task, inputs)
		bound := &Agent{Spec: interpolated.Agent, LLM: agent.LLM, SessionKey: c.SessionKey, logger: agent.logger}

		c.logger.Info().Int("task", i+1).Int("of", len(c.Tasks)).Str("agent", bound.Spec.Role).Msg("starting task")
		out, err := bound.Run(ctx, interpolated, outputs)
		if err != nil {
			return SimulationResult{}, fmt.Errorf("task %d (%s): %w", i+1, bound.Spec.Role, err)
		}
		outputs = append(outputs, out)
		stats = stats.Add(out.Stats)
	}

	return SimulationResult{
		Raw:   combine(outputs),
		Tasks: outputs,
		Stats: stats,
	}, nil
}

func interpolateTask(task TaskSpec, inputs map[string]string) TaskSpec {
	task.Description = ReplaceLabels(task.Description, inputs)
	task.ExpectedOutput = ReplaceLabels(task.ExpectedOutput, inputs)
	task.Agent.Role = ReplaceLabels(task.Agent.Role, inputs)
	task.Agent.Goal = ReplaceLabels(task.Agent.Goal, inputs)
	task.Agent.Backstory = ReplaceLabels(task.Agent.Backstory, inputs)
	return task
}

func combine(outputs []TaskOutput) string {
	var sb strings.Builder
	for i, out := range outputs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("## ")
		sb.WriteString(out.Agent)
		sb.WriteString("\n\n")
		sb.WriteString(out.Output)
	}
	return sb.String()
}

// CityInputs builds the kickoff inputs for a city.
func CityInputs(city CityContext) (map[string]string, error) {
	encoded, err := toJSON(city)
	if err != nil {
		return nil, NewConfigurationError("encode city context", err)
	}
	return map[string]string{"city_context": encoded}, nil
}
