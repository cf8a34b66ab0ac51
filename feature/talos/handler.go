package talos

import (
	"net/url"

	"feed-processor/core/ingest"
	"feed-processor/core/logger"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for Talos runs and state.
type Handler struct {
	service *Service
}

// RunsResponse is the body of the run endpoints.
type RunsResponse struct {
	Error   string              `json:"error,omitempty"`
	Results []*ingest.RunResult `json:"results"`
}

// StateResponse is the stored state of one indicator across feeds.
type StateResponse struct {
	AddressID   string      `json:"address_id"`
	AddressType string      `json:"address_type"`
	Feeds       []FeedState `json:"feeds"`
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the Talos routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Post("/runs", h.HandleRun)
	app.Get("/runs/last", h.HandleLastRuns)
	app.Get("/state/:indicator", h.HandleGetState)
}

// HandleRun runs every enabled feed and returns the results.
// @Summary Run Feeds
// @Description Fetch every enabled feed, diff it against stored state and forward the changes.
// @Tags talos
// @Produce json
// @Success 200 {object} RunsResponse "Run Results"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} RunsResponse "Run Failed"
// @Security ApiKeyAuth
// @Router /runs [post]
func (h *Handler) HandleRun(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	results, err := h.service.RunAll(c.UserContext())
	if err != nil {
		l.Error("Feed run failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(RunsResponse{
			Error:   err.Error(),
			Results: results,
		})
	}
	return c.JSON(RunsResponse{Results: results})
}

// HandleLastRuns returns the results of the latest run.
// @Summary Last Run Results
// @Description Get the results of the latest run of every feed.
// @Tags talos
// @Produce json
// @Success 200 {object} RunsResponse "Run Results"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security ApiKeyAuth
// @Router /runs/last [get]
func (h *Handler) HandleLastRuns(c *fiber.Ctx) error {
	return c.JSON(RunsResponse{Results: h.service.LastResults()})
}

// HandleGetState returns the stored state of one address or network.
// Networks are passed URL-encoded (e.g. 10.0.0.0%2F8).
// @Summary Get Indicator State
// @Description Get the stored state of an IP address or network in every feed that lists it.
// @Tags talos
// @Produce json
// @Param indicator path string true "IP address or URL-encoded network (e.g. '10.0.0.0%2F8')"
// @Success 200 {object} StateResponse "Indicator State"
// @Failure 400 {object} map[string]string "Invalid Indicator"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 503 {object} map[string]string "State Store Unavailable"
// @Security ApiKeyAuth
// @Router /state/{indicator} [get]
func (h *Handler) HandleGetState(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	raw := c.Params("indicator")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}

	ind, states, err := h.service.Lookup(c.UserContext(), raw)
	switch {
	case err == nil:
		return c.JSON(StateResponse{
			AddressID:   AddressID(ind.Canonical),
			AddressType: ind.Kind,
			Feeds:       states,
		})
	case errors.Is(err, ingest.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "indicator not found"})
	case ind.Canonical == "":
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ingest.ErrStoreUnavailable):
		l.Warn("State lookup unavailable", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	default:
		l.Error("State lookup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
