package account

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/domain/doctor"
	"github.com/clinic/clinic/internal/platform/auth"
)

type Handler struct {
	svc    *Service
	issuer *auth.TokenIssuer
}

func NewHandler(svc *Service, issuer *auth.TokenIssuer) *Handler {
	return &Handler{svc: svc, issuer: issuer}
}

// RegisterRoutes mounts the public endpoints. These sit outside the session
// middleware; everything else in the API requires a token.
func (h *Handler) RegisterRoutes(public *echo.Group) {
	public.POST("/register/patient", h.RegisterPatient)
	public.POST("/register/doctor", h.RegisterDoctor)
	public.POST("/login", h.Login)
}

type registerPatientRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	Age      int     `json:"age"`
	Address  *string `json:"address"`
	Contact  string  `json:"contact"`
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	var req registerPatientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Username == "" || req.Password == "" || req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username, password and name are required")
	}

	a, p, err := h.svc.RegisterPatient(c.Request().Context(), RegisterPatientParams{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Age:      req.Age,
		Address:  req.Address,
		Contact:  req.Contact,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			return echo.NewHTTPError(http.StatusConflict, "username already taken")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "registration failed")
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"account": a,
		"patient": p,
	})
}

type registerDoctorRequest struct {
	Username string    `json:"username"`
	Password string    `json:"password"`
	DoctorID uuid.UUID `json:"doctor_id"`
}

func (h *Handler) RegisterDoctor(c echo.Context) error {
	var req registerDoctorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	a, err := h.svc.RegisterDoctor(c.Request().Context(), RegisterDoctorParams{
		Username: req.Username,
		Password: req.Password,
		DoctorID: req.DoctorID,
	})
	if err != nil {
		switch {
		case errors.Is(err, doctor.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "doctor not found")
		case errors.Is(err, ErrAlreadyLinked):
			return echo.NewHTTPError(http.StatusConflict, "doctor profile already has an account")
		case errors.Is(err, ErrDuplicateUsername):
			return echo.NewHTTPError(http.StatusConflict, "username already taken")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "registration failed")
	}
	return c.JSON(http.StatusCreated, a)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string        `json:"token"`
	Role     auth.RoleKind `json:"role"`
	Username string        `json:"username"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	id, err := h.svc.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	token, err := h.issuer.Issue(id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, Role: id.Role, Username: id.Username})
}
