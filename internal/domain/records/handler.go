package records

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/crypto"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:id/history", h.ViewHistory)
	api.PUT("/patients/:id/history", h.UpdateHistory)

	staff := api.Group("", auth.RequireRole(auth.RoleDoctor))
	staff.GET("/dashboard", h.Dashboard)

	patients := api.Group("", auth.RequireRole(auth.RolePatient))
	patients.GET("/me/dashboard", h.MyDashboard)
}

// ViewHistory answers 200 for both authorized and denied requests; a denied
// body carries the placeholder and reveals nothing about the record.
func (h *Handler) ViewHistory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	actor, _ := auth.IdentityFromContext(c.Request().Context())
	view, err := h.svc.ViewHistory(c.Request().Context(), actor, id)
	if err != nil {
		if errors.Is(err, crypto.ErrCorruptCiphertext) {
			return echo.NewHTTPError(http.StatusInternalServerError, "stored record failed integrity check")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read record")
	}
	return c.JSON(http.StatusOK, view)
}

type updateHistoryRequest struct {
	History string `json:"history"`
}

func (h *Handler) UpdateHistory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req updateHistoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	actor, _ := auth.IdentityFromContext(c.Request().Context())
	if err := h.svc.UpdateHistory(c.Request().Context(), actor, id, req.History); err != nil {
		if errors.Is(err, ErrForbidden) {
			return echo.NewHTTPError(http.StatusForbidden, "not authorized for this record")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update record")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Dashboard(c echo.Context) error {
	actor, _ := auth.IdentityFromContext(c.Request().Context())
	ov, err := h.svc.Dashboard(c.Request().Context(), actor)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to build dashboard")
	}
	return c.JSON(http.StatusOK, ov)
}

func (h *Handler) MyDashboard(c echo.Context) error {
	actor, _ := auth.IdentityFromContext(c.Request().Context())
	dash, err := h.svc.MyDashboard(c.Request().Context(), actor)
	if err != nil {
		if errors.Is(err, ErrNoPatientProfile) {
			return echo.NewHTTPError(http.StatusForbidden, "no patient profile linked to this account")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to build dashboard")
	}
	return c.JSON(http.StatusOK, dash)
}
