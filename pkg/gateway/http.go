package gateway

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rakshakai/rakshak/pkg/decoy"
	"github.com/rakshakai/rakshak/pkg/intel"
	"github.com/rakshakai/rakshak/pkg/session"
	"github.com/rakshakai/rakshak/pkg/telemetry"
	"github.com/rakshakai/rakshak/pkg/threat"
)

// API is the control plane: call lifecycle, one-shot analysis, decoy
// control and evidence packaging. The media plane stays on the
// websocket listener.
type API struct {
	pipeline  *session.Pipeline
	registry  *session.Registry
	scorer    *threat.Scorer
	extractor *intel.Extractor
	metrics   *telemetry.Client
	version   string
}

func NewAPI(pipeline *session.Pipeline, registry *session.Registry, scorer *threat.Scorer, metrics *telemetry.Client, version string) *API {
	if metrics == nil {
		metrics = telemetry.Global
	}
	return &API{
		pipeline:  pipeline,
		registry:  registry,
		scorer:    scorer,
		extractor: intel.NewExtractor(),
		metrics:   metrics,
		version:   version,
	}
}

// App builds the fiber application with all routes mounted.
func (a *API) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Rakshak Gateway",
	})

	app.Get("/health", a.handleHealth)
	app.Get("/api/v1/stats", a.handleStats)

	app.Post("/api/v1/calls/initiate", a.handleInitiateCall)
	app.Post("/api/v1/calls/:id/end", a.handleEndCall)

	app.Post("/api/v1/threat/analyze", a.handleAnalyze)

	app.Post("/api/v1/bait/handoff", a.handleHandoff)
	app.Post("/api/v1/bait/:id/terminate", a.handleTerminate)

	app.Post("/api/v1/evidence/package", a.handlePackage)

	return app
}

func (a *API) handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":          "ok",
		"version":         a.version,
		"active_sessions": a.registry.ActiveCount(),
	})
}

func (a *API) handleStats(c fiber.Ctx) error {
	return c.JSON(a.metrics.Snapshot())
}

func (a *API) handleInitiateCall(c fiber.Ctx) error {
	var req struct {
		CallID string `json:"call_id"`
	}
	// Body is optional; an empty one means "mint an id for me".
	_ = c.Bind().Body(&req)

	callID := strings.TrimSpace(req.CallID)
	if callID == "" {
		callID = uuid.NewString()
	}

	s := a.registry.Connect(callID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"call_id":    s.ID,
		"state":      s.State,
		"stream_url": "/ws/call/" + s.ID,
	})
}

func (a *API) handleEndCall(c fiber.Ctx) error {
	callID := c.Params("id")
	a.pipeline.EndCall(callID)
	// Ending an unknown or already-ended call succeeds; disconnect
	// races are normal.
	return c.JSON(fiber.Map{"call_id": callID, "state": session.StateTerminated})
}

// handleAnalyze scores a transcript outside any session: no context
// layer, no persistence. Used by operators and integration tests.
func (a *API) handleAnalyze(c fiber.Ctx) error {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "text field is required"})
	}

	assessment := a.scorer.Score(c.Context(), threat.Input{Transcript: req.Text})
	entities := a.extractor.Extract(req.Text)

	return c.JSON(fiber.Map{
		"assessment": assessment,
		"entities":   entities,
	})
}

func (a *API) handleHandoff(c fiber.Ctx) error {
	var req struct {
		CallID    string `json:"call_id"`
		PersonaID string `json:"persona_id"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	if strings.TrimSpace(req.CallID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "call_id field is required"})
	}

	name, err := a.pipeline.HandoffToDecoy(c.Context(), req.CallID, req.PersonaID)
	if err != nil {
		return a.decoyError(c, err)
	}
	return c.JSON(fiber.Map{
		"call_id":      req.CallID,
		"persona_name": name,
		"state":        session.StateHandedOff,
	})
}

func (a *API) handleTerminate(c fiber.Ctx) error {
	callID := c.Params("id")

	summary, err := a.pipeline.TerminateDecoy(c.Context(), callID)
	if err != nil {
		return a.decoyError(c, err)
	}
	if summary == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "no active decoy for call"})
	}

	return c.JSON(fiber.Map{
		"call_id": callID,
		"summary": summary,
		"report":  intel.BuildReport(summary.ExtractedEntities),
	})
}

func (a *API) handlePackage(c fiber.Ctx) error {
	var req struct {
		CallID string `json:"call_id"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	if strings.TrimSpace(req.CallID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "call_id field is required"})
	}

	// Capture the summary of a still-active decoy without discarding it.
	var summary *decoy.Summary
	_ = a.registry.WithSession(req.CallID, func(s *session.Session) error {
		if s.Decoy != nil {
			sm := s.Decoy.Summarize()
			summary = &sm
		}
		return nil
	})

	// Detach from the request: packaging touches redis/postgres and
	// should finish even if the client goes away.
	pkg, err := a.pipeline.PackageEvidence(context.WithoutCancel(c.Context()), req.CallID, summary)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(pkg)
}

func (a *API) decoyError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, session.ErrUnknownSession):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown call id"})
	case errors.Is(err, decoy.ErrUnknownPersona):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, session.ErrConcurrentMutation):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "session terminated after state corruption"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
