package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"polycode/urban-nexus/core"
	"polycode/urban-nexus/web"
)

type stubSimulator struct {
	result core.SimulationResult
	err    error
	cities []core.CityContext
}

func (s *stubSimulator) Simulate(ctx context.Context, city core.CityContext) (core.SimulationResult, error) {
	s.cities = append(s.cities, city)
	return s.result, s.err
}

func (s *stubSimulator) Diagnose(err error) core.Diagnostics {
	return core.Diagnostics{Trace: core.ErrorTrace(err), GoVersion: "go1.24.0"}
}

func (s *stubSimulator) CredentialEnv() string {
	return "GROQ_API_KEY"
}

func newSimulatorServer(t *testing.T, sim web.Simulator) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	server := httptest.NewServer(web.NewServer(sim, zerolog.Nop()).Router())
	t.Cleanup(server.Close)
	return server
}

func TestProbeSubmitsDefaults(t *testing.T) {
	sim := &stubSimulator{result: core.SimulationResult{Raw: "## Urban Infrastructure Planner\n\nlight rail"}}
	server := newSimulatorServer(t, sim)

	p := &Prober{Logger: zerolog.Nop()}
	report, err := p.Run(context.Background(), server.URL+"/")
	require.NoError(t, err)

	assert.True(t, report.OK())
	assert.Equal(t, 1, report.SuccessPanels)
	assert.Equal(t, 0, report.ErrorPanels)
	assert.Contains(t, report.Result, "light rail")
	assert.Equal(t, "SmartCity Beta", report.Fields["name"])
	assert.Equal(t, "500000", report.Fields["population"])

	require.Len(t, sim.cities, 1)
	assert.Equal(t, core.NewCityContext(core.DefaultCityName, core.DefaultPopulation, core.DefaultChallenges, core.DefaultGoals), sim.cities[0])
}

func TestProbeReportsFailurePanel(t *testing.T) {
	sim := &stubSimulator{err: errors.New("status 401")}
	server := newSimulatorServer(t, sim)

	p := &Prober{Logger: zerolog.Nop()}
	report, err := p.Run(context.Background(), server.URL+"/")
	require.NoError(t, err)

	assert.False(t, report.OK())
	assert.Equal(t, 0, report.SuccessPanels)
	assert.Equal(t, 1, report.ErrorPanels)
	assert.Contains(t, report.Details, "status 401")
	assert.Contains(t, report.Details, "GROQ_API_KEY set: No")
}

func TestProbeWithoutForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><p>maintenance</p></body></html>"))
	}))
	defer server.Close()

	p := &Prober{Logger: zerolog.Nop()}
	_, err := p.Run(context.Background(), server.URL+"/")
	assert.EqualError(t, err, "no city form found")
}

func TestProbeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p := &Prober{Logger: zerolog.Nop()}
	_, err := p.Run(context.Background(), server.URL+"/")
	assert.Error(t, err)
}
