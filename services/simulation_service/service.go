package simulation_service

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"polycode/urban-nexus/config"
	"polycode/urban-nexus/core"
	"polycode/urban-nexus/gemini"
	"polycode/urban-nexus/groq"
	"polycode/urban-nexus/retry"
)

// LLMFactory builds the model client for one simulation.
type LLMFactory func(ctx context.Context, cfg config.Config) (core.LLM, error)

func DefaultLLMFactory(ctx context.Context, cfg config.Config) (core.LLM, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		llm, err := gemini.NewGemini(ctx, gemini.Config{
			APIKey:      cfg.APIKey,
			ModelName:   cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: float32(cfg.Temperature),
		})
		if err != nil {
			return nil, err
		}
		return llm, nil
	case config.ProviderGroq:
		llm, err := groq.NewGroq(groq.Config{
			APIKey:      cfg.APIKey,
			ModelName:   cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: cfg.Temperature,
		})
		if err != nil {
			return nil, err
		}
		return llm, nil
	default:
		return nil, core.NewConfigurationError(fmt.Sprintf("unknown provider %q", cfg.Provider), nil)
	}
}

type Option func(*Service)

func WithLLMFactory(factory LLMFactory) Option {
	return func(s *Service) { s.newLLM = factory }
}

func WithRetryPolicy(policy retry.Policy) Option {
	return func(s *Service) { s.policy = policy }
}

type Service struct {
	cfg    config.Config
	newLLM LLMFactory
	policy retry.Policy
	logger zerolog.Logger
}

func NewService(cfg config.Config, logger zerolog.Logger, opts ...Option) *Service {
	policy := retry.DefaultPolicy()
	policy.MaxAttempts = cfg.MaxAttempts
	s := &Service{
		cfg:    cfg,
		newLLM: DefaultLLMFactory,
		policy: policy,
		logger: logger.With().Str("component", "simulation").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SimulationFailedError is returned once every attempt has failed.
type SimulationFailedError struct {
	RunID    string
	Attempts int
	Err      error
}

func (e *SimulationFailedError) Error() string {
	return fmt.Sprintf("simulation failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *SimulationFailedError) Unwrap() error {
	return e.Err
}

// runCrew performs a single orchestration call for city.
func (s *Service) runCrew(ctx context.Context, runID string, city core.CityContext) (core.SimulationResult, error) {
	if !s.cfg.CredentialSet() {
		return core.SimulationResult{}, core.NewConfigurationError(fmt.Sprintf("%s is not set, please set the %s environment variable", s.cfg.CredentialEnv, s.cfg.CredentialEnv), core.ErrMissingCredential)
	}
	if err := city.Validate(); err != nil {
		return core.SimulationResult{}, err
	}
	inputs, err := core.CityInputs(city)
	if err != nil {
		return core.SimulationResult{}, err
	}

	llm, err := s.newLLM(ctx, s.cfg)
	if err != nil {
		return core.SimulationResult{}, err
	}

	agents := NewUrbanAgents(llm, s.logger)
	tasks := NewUrbanTasks(agents)
	crew, err := core.NewCrew(
		[]*core.Agent{
			agents.InfrastructurePlanningAgent(),
			agents.EconomicDevelopmentAgent(),
		},
		[]core.TaskSpec{
			tasks.InfrastructurePlanningTask(),
			tasks.EconomicDevelopmentTask(),
		},
		s.logger.With().Str("run_id", runID).Logger(),
	)
	if err != nil {
		return core.SimulationResult{}, err
	}
	crew.SessionKey = runID

	result, err := crew.Kickoff(ctx, inputs)
	if err != nil {
		return core.SimulationResult{}, err
	}
	result.RunID = runID
	return result, nil
}

// Simulate runs the crew under the retry policy.
func (s *Service) Simulate(ctx context.Context, city core.CityContext) (core.SimulationResult, error) {
	runID := uuid.NewString()
	logger := s.logger.With().Str("run_id", runID).Str("city", city.Name).Int("population", city.Population).Logger()
	retrier := &retry.Retrier{
		Policy: s.policy,
		Logger: logger,
		OnError: func(attempt int, err error) {
			diag := s.Diagnose(err)
			logger.Error().
				Strs("trace", diag.Trace).
				Str("go_version", diag.GoVersion).
				Bool("credential_set", diag.CredentialSet).
				Str("credential_env", s.cfg.CredentialEnv).
				Int("attempt", attempt).
				Msg("detailed error information")
		},
		OnEvent: func(ev retry.Event) {
			logger.Debug().Str("state", string(ev.State)).Int("attempt", ev.Attempt).Dur("wait", ev.Wait).Msg("simulation state")
		},
	}

	logger.Info().Msg("generating urban development plan")
	result, attempts, err := retry.Do(ctx, retrier, func(ctx context.Context, attempt int) (core.SimulationResult, error) {
		return s.runCrew(ctx, runID, city)
	})
	if err != nil {
		return core.SimulationResult{}, &SimulationFailedError{RunID: runID, Attempts: attempts, Err: err}
	}
	result.Attempts = attempts
	logger.Info().Int("attempts", attempts).Int32("total_tokens", result.Stats.TotalTokenCount).Msg("urban development plan generated")
	return result, nil
}

// Diagnose describes err for display. It never includes the credential.
func (s *Service) Diagnose(err error) core.Diagnostics {
	diag := core.Diagnostics{
		Trace:         core.ErrorTrace(err),
		GoVersion:     runtime.Version(),
		CredentialSet: s.cfg.CredentialSet(),
	}
	var failed *SimulationFailedError
	if errors.As(err, &failed) {
		diag.RunID = failed.RunID
		diag.Attempts = failed.Attempts
	}
	return diag
}

func (s *Service) CredentialEnv() string {
	return s.cfg.CredentialEnv
}
