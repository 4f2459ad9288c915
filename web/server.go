package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"polycode/urban-nexus/core"
)

//go:embed templates/*.html
var templateFS embed.FS

// Simulator runs one city simulation and explains its failures.
type Simulator interface {
	Simulate(ctx context.Context, city core.CityContext) (core.SimulationResult, error)
	Diagnose(err error) core.Diagnostics
	CredentialEnv() string
}

type Server struct {
	sim    Simulator
	logger zerolog.Logger
}

func NewServer(sim Simulator, logger zerolog.Logger) *Server {
	return &Server{sim: sim, logger: logger.With().Str("component", "web").Logger()}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(s.logger))

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	r.Use(cors.New(config))

	tmpl := template.Must(template.New("").Funcs(template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}).ParseFS(templateFS, "templates/*.html"))
	r.SetHTMLTemplate(tmpl)

	r.GET("/", s.showForm)
	r.POST("/", s.submitForm)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/simulate", s.simulate)
	api.GET("/schema", s.schema)
	return r
}

// RequestLogger logs one line per request.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError || len(c.Errors) > 0 {
			event = logger.Error()
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}
