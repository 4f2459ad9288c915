package simulation_service

import (
	"github.com/rs/zerolog"
	"polycode/urban-nexus/core"
)

func InfrastructurePlannerSpec() core.AgentSpec {
	return core.AgentSpec{
		Role:            "Urban Infrastructure Planner",
		Goal:            "Develop sustainable infrastructure models",
		Backstory:       "Expert in urban development focusing on efficient and sustainable infrastructure strategies.",
		AllowDelegation: false,
		Verbose:         false,
	}
}

func EconomicStrategistSpec() core.AgentSpec {
	return core.AgentSpec{
		Role:            "Urban Economic Strategist",
		Goal:            "Analyze and optimize local economic trends",
		Backstory:       "Specialist in urban economic development with a focus on sustainable growth strategies.",
		AllowDelegation: false,
		Verbose:         false,
	}
}

type UrbanAgents struct {
	llm    core.LLM
	logger zerolog.Logger
}

func NewUrbanAgents(llm core.LLM, logger zerolog.Logger) UrbanAgents {
	return UrbanAgents{llm: llm, logger: logger}
}

func (a UrbanAgents) InfrastructurePlanningAgent() *core.Agent {
	return core.NewAgent(InfrastructurePlannerSpec(), a.llm, a.logger)
}

func (a UrbanAgents) EconomicDevelopmentAgent() *core.Agent {
	return core.NewAgent(EconomicStrategistSpec(), a.llm, a.logger)
}

type UrbanTasks struct {
	agents UrbanAgents
}

func NewUrbanTasks(agents UrbanAgents) UrbanTasks {
	return UrbanTasks{agents: agents}
}

func (t UrbanTasks) InfrastructurePlanningTask() core.TaskSpec {
	return core.TaskSpec{
		Description: `Develop a concise infrastructure development plan for a sustainable urban environment.
- Outline key infrastructure needs
- Propose strategic placement strategies
- Provide high-level cost considerations
- Align with sustainability principles`,
		ExpectedOutput: `Compact infrastructure development plan including:
1. Priority infrastructure recommendations
2. Strategic placement overview
3. Sustainability alignment
4. Preliminary cost insights`,
		Agent: t.agents.InfrastructurePlanningAgent().Spec,
		Async: false,
	}
}

func (t UrbanTasks) EconomicDevelopmentTask() core.TaskSpec {
	return core.TaskSpec{
		Description: `Analyze economic potential and development opportunities.
- Identify key economic growth areas
- Propose investment strategies
- Highlight job market potential
- Recommend economic resilience approaches`,
		ExpectedOutput: `Focused economic development strategy including:
1. Economic growth opportunities
2. Investment recommendation summary
3. Job market potential assessment
4. Economic resilience framework`,
		Agent: t.agents.EconomicDevelopmentAgent().Spec,
		Async: false,
	}
}
