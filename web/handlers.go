package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"polycode/urban-nexus/core"
)

type failureView struct {
	RunID         string
	Trace         []string
	GoVersion     string
	CredentialEnv string
	CredentialSet bool
	Attempts      int
}

type pageData struct {
	Form          CityForm
	MinPopulation int
	MaxPopulation int
	Result        *core.SimulationResult
	Empty         bool
	Failure       *failureView
}

func newPage(form CityForm) pageData {
	return pageData{
		Form:          form,
		MinPopulation: core.MinPopulation,
		MaxPopulation: core.MaxPopulation,
	}
}

func (s *Server) showForm(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", newPage(DefaultCityForm()))
}

func (s *Server) submitForm(c *gin.Context) {
	var form CityForm
	if err := c.ShouldBind(&form); err != nil {
		c.String(http.StatusBadRequest, "invalid form: %v", err)
		return
	}
	page := newPage(form)

	result, err := s.sim.Simulate(c.Request.Context(), form.CityContext())
	switch {
	case err != nil:
		diag := s.sim.Diagnose(err)
		page.Failure = &failureView{
			RunID:         diag.RunID,
			Trace:         diag.Trace,
			GoVersion:     diag.GoVersion,
			CredentialEnv: s.sim.CredentialEnv(),
			CredentialSet: diag.CredentialSet,
			Attempts:      diag.Attempts,
		}
	case result.Empty():
		page.Empty = true
	default:
		page.Result = &result
	}
	c.HTML(http.StatusOK, "index.html", page)
}

func (s *Server) simulate(c *gin.Context) {
	var req core.SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.sim.Simulate(c.Request.Context(), FromRequest(req))
	if err == nil && result.Empty() {
		err = errors.New("failed to generate development plan")
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, core.ErrorResponse{
			Error:       err.Error(),
			Diagnostics: s.sim.Diagnose(err),
		})
		return
	}

	c.JSON(http.StatusOK, core.SimulateResponse{
		RunID:    result.RunID,
		Result:   result.Raw,
		Tasks:    result.Tasks,
		Stats:    result.Stats,
		Attempts: result.Attempts,
	})
}

func (s *Server) schema(c *gin.Context) {
	schema, err := core.GetSchema(&core.SimulateRequest{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, schema)
}
