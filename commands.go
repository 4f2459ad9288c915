package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"polycode/urban-nexus/config"
	"polycode/urban-nexus/core"
	"polycode/urban-nexus/logging"
	"polycode/urban-nexus/probe"
	"polycode/urban-nexus/services/simulation_service"
	"polycode/urban-nexus/web"
)

// appOptions carries the dependencies tests replace.
type appOptions struct {
	Stdout     io.Writer
	Stderr     io.Writer
	LLMFactory simulation_service.LLMFactory
}

type app struct {
	opts   appOptions
	cfg    config.Config
	logger zerolog.Logger

	envFile     string
	provider    string
	model       string
	baseURL     string
	addr        string
	maxAttempts int
	logLevel    string
	logFormat   string
}

func newRootCmd(opts appOptions) *cobra.Command {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:               "urban-nexus",
		Short:             "Urban AI Nexus - city development simulator",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE:              a.runServe,
	}
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", config.DefaultEnvFile, "Optional .env file to load")
	flags.StringVar(&a.provider, "provider", "", "Model provider (groq or gemini)")
	flags.StringVar(&a.model, "model", "", "Model identifier")
	flags.StringVar(&a.baseURL, "base-url", "", "Model API base URL")
	flags.StringVar(&a.addr, "addr", "", "HTTP listen address")
	flags.IntVar(&a.maxAttempts, "max-attempts", 0, "Simulation attempts before giving up")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format (console or json)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the simulator web server",
		RunE:  a.runServe,
	}

	var (
		name       string
		population int
		challenges []string
		goals      []string
	)
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate one urban development plan and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			city := core.NewCityContext(name, population, challenges, goals)
			return a.runPlan(cmd.Context(), city)
		},
	}
	planCmd.Flags().StringVar(&name, "name", core.DefaultCityName, "City name")
	planCmd.Flags().IntVar(&population, "population", core.DefaultPopulation, "Population")
	planCmd.Flags().StringArrayVar(&challenges, "challenge", core.DefaultChallenges, "Current challenge (repeatable)")
	planCmd.Flags().StringArrayVar(&goals, "goal", core.DefaultGoals, "Sustainability goal (repeatable)")

	var (
		url     string
		timeout time.Duration
	)
	smokeCmd := &cobra.Command{
		Use:   "smoke",
		Short: "Submit the form of a running server and check the result page",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSmoke(cmd.Context(), url, timeout)
		},
	}
	smokeCmd.Flags().StringVar(&url, "url", "http://localhost"+config.DefaultAddr+"/", "Simulator page URL")
	smokeCmd.Flags().DurationVar(&timeout, "timeout", probe.DefaultTimeout, "Request timeout")

	root.AddCommand(serveCmd, planCmd, smokeCmd)
	return root
}

// setup loads the configuration once; flags win over the environment.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Provider = strings.ToLower(a.provider)
		cfg.CredentialEnv = config.CredentialEnvFor(cfg.Provider)
		cfg.APIKey = strings.TrimSpace(os.Getenv(cfg.CredentialEnv))
	}
	if flags.Changed("model") {
		cfg.Model = a.model
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = a.baseURL
	}
	if flags.Changed("addr") {
		cfg.Addr = a.addr
	}
	if flags.Changed("max-attempts") {
		cfg.MaxAttempts = a.maxAttempts
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logging.New(cfg.LogLevel, cfg.LogFormat, a.opts.Stderr)
	if !cfg.CredentialSet() {
		a.logger.Warn().Str("env", cfg.CredentialEnv).Msg("model credential is not set, simulations will fail")
	}
	return nil
}

func (a *app) service() *simulation_service.Service {
	var opts []simulation_service.Option
	if a.opts.LLMFactory != nil {
		opts = append(opts, simulation_service.WithLLMFactory(a.opts.LLMFactory))
	}
	return simulation_service.NewService(a.cfg, a.logger, opts...)
}

func (a *app) runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := web.NewServer(a.service(), a.logger)
	srv := &http.Server{
		Addr:    a.cfg.Addr,
		Handler: server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", a.cfg.Addr).Str("provider", a.cfg.Provider).Msg("urban ai nexus listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *app) runPlan(ctx context.Context, city core.CityContext) error {
	svc := a.service()
	result, err := svc.Simulate(ctx, city)
	if err != nil {
		diag := svc.Diagnose(err)
		fmt.Fprintln(a.opts.Stdout, "An error occurred. Check console for details.")
		fmt.Fprintln(a.opts.Stdout, "\n--- Detailed Error Information ---")
		for _, line := range diag.Trace {
			fmt.Fprintln(a.opts.Stdout, line)
		}
		fmt.Fprintln(a.opts.Stdout, "\n--- System Details ---")
		fmt.Fprintf(a.opts.Stdout, "Go Version: %s\n", diag.GoVersion)
		fmt.Fprintf(a.opts.Stdout, "%s set: %s\n", svc.CredentialEnv(), yesNo(diag.CredentialSet))
		return err
	}
	if result.Empty() {
		fmt.Fprintln(a.opts.Stdout, "Failed to generate development plan.")
		return errors.New("empty development plan")
	}

	fmt.Fprintln(a.opts.Stdout, "Urban Development Plan Generated!")
	fmt.Fprintln(a.opts.Stdout)
	fmt.Fprintln(a.opts.Stdout, result.Raw)
	return nil
}

func (a *app) runSmoke(ctx context.Context, url string, timeout time.Duration) error {
	p := &probe.Prober{Timeout: timeout, Logger: a.logger}
	report, err := p.Run(ctx, url)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.opts.Stdout, "success panels: %d, error panels: %d\n", report.SuccessPanels, report.ErrorPanels)
	if !report.OK() {
		if report.Details != "" {
			fmt.Fprintln(a.opts.Stdout, report.Details)
		}
		return fmt.Errorf("smoke check failed for %s", url)
	}
	fmt.Fprintln(a.opts.Stdout, "smoke check passed")
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
