package appointment

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	doctors := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctors.POST("/appointments", h.Book)
	doctors.GET("/appointments", h.ListMine)
	doctors.GET("/appointments/feed", h.Feed)
}

type bookRequest struct {
	PatientID   uuid.UUID `json:"patient_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Notes       *string   `json:"notes"`
}

func (h *Handler) Book(c echo.Context) error {
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ScheduledAt.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "scheduled_at is required")
	}

	actor, _ := auth.IdentityFromContext(c.Request().Context())
	a, err := h.svc.Book(c.Request().Context(), actor, BookParams{
		PatientID:   req.PatientID,
		ScheduledAt: req.ScheduledAt,
		Notes:       req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, patient.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		case errors.Is(err, ErrNoDoctorProfile):
			return echo.NewHTTPError(http.StatusForbidden, "no doctor profile linked to this account")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to book appointment")
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) ListMine(c echo.Context) error {
	actor, _ := auth.IdentityFromContext(c.Request().Context())
	doctorID := actor.DoctorID()
	if doctorID == uuid.Nil {
		return echo.NewHTTPError(http.StatusForbidden, "no doctor profile linked to this account")
	}
	items, err := h.svc.ListForDoctor(c.Request().Context(), doctorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list appointments")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Feed(c echo.Context) error {
	actor, _ := auth.IdentityFromContext(c.Request().Context())
	doctorID := actor.DoctorID()
	if doctorID == uuid.Nil {
		return echo.NewHTTPError(http.StatusForbidden, "no doctor profile linked to this account")
	}
	feed, err := h.svc.Feed(c.Request().Context(), doctorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to build schedule feed")
	}
	return c.JSON(http.StatusOK, feed)
}
