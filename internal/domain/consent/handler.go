package consent

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/domain/doctor"
	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/platform/auth"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	admin := api.Group("", auth.RequireAdmin())
	admin.POST("/consents", h.SetConsent)
	admin.GET("/consents/graph", h.ConsentGraph)
	admin.GET("/consents/distribution", h.ConsentDistribution)
}

type setConsentRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	Granted   bool      `json:"granted"`
}

func (h *Handler) SetConsent(c echo.Context) error {
	var req setConsentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	actor, _ := auth.IdentityFromContext(c.Request().Context())
	consent, err := h.engine.SetConsent(c.Request().Context(), actor, req.PatientID, req.DoctorID, req.Granted)
	if err != nil {
		switch {
		case errors.Is(err, patient.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		case errors.Is(err, doctor.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "doctor not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update consent")
	}
	return c.JSON(http.StatusOK, consent)
}

func (h *Handler) ConsentGraph(c echo.Context) error {
	g, err := h.engine.Graph(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to build consent graph")
	}
	return c.JSON(http.StatusOK, g)
}

func (h *Handler) ConsentDistribution(c echo.Context) error {
	dist, err := h.engine.Distribution(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to build consent distribution")
	}
	return c.JSON(http.StatusOK, dist)
}
