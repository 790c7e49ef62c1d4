package patient

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole(auth.RoleDoctor))
	staff.GET("/patients", h.ListPatients)

	admin := api.Group("", auth.RequireAdmin())
	admin.POST("/patients", h.AddPatient)
	admin.DELETE("/patients/:id", h.RemovePatient)
}

type addPatientRequest struct {
	Name    string  `json:"name"`
	Age     int     `json:"age"`
	Address *string `json:"address"`
	Contact string  `json:"contact"`
}

func (h *Handler) AddPatient(c echo.Context) error {
	var req addPatientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	actor, _ := auth.IdentityFromContext(c.Request().Context())
	p, err := h.svc.Add(c.Request().Context(), actor, AddParams{
		Name:    req.Name,
		Age:     req.Age,
		Address: req.Address,
		Contact: req.Contact,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) RemovePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	actor, _ := auth.IdentityFromContext(c.Request().Context())
	if err := h.svc.Remove(c.Request().Context(), actor, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to remove patient")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list patients")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
