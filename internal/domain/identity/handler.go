package identity

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mediclass/mediclass/internal/platform/auth"
	"github.com/mediclass/mediclass/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// RegisterRoutes wires the public auth endpoints and the authenticated
// account and admin endpoints.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/verify", h.VerifyEmail)

	me := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor, auth.RolePatient))
	me.GET("/users/me", h.Me)
	me.PATCH("/users/me", h.UpdateMe)
	me.POST("/users/me/send-verification", h.SendVerification)
	me.GET("/doctors", h.ListDoctors)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/admin/doctors", h.AdminListDoctors)
	admin.POST("/admin/doctors/:id/approve", h.ApproveDoctor)
	admin.POST("/admin/doctors/:id/reject", h.RejectDoctor)
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	u, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return echo.NewHTTPError(http.StatusConflict, "Cette adresse email est déjà utilisée")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, u)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string           `json:"token"`
	User  *UserWithProfile `json:"user"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, u, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Email ou mot de passe incorrect")
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, User: u})
}

type verifyRequest struct {
	Token string `json:"token"`
}

func (h *Handler) VerifyEmail(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.VerifyEmail(c.Request().Context(), req.Token); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Lien de vérification invalide ou expiré")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Adresse email vérifiée avec succès",
	})
}

func (h *Handler) Me(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	u, err := h.svc.Get(c.Request().Context(), actorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdateMe(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var upd ProfileUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	u, err := h.svc.UpdateProfile(c.Request().Context(), actorID, upd)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, u)
}

// SendVerification answers 200 with the dispatcher result either way; the
// rate-limit message is part of the normal contract.
func (h *Handler) SendVerification(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	result := h.svc.SendVerification(c.Request().Context(), actorID)
	return c.JSON(http.StatusOK, result)
}

// ListDoctors is the public directory; it only ever shows approved doctors.
func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDoctors(c.Request().Context(), ApprovalApproved, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) AdminListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDoctors(c.Request().Context(), c.QueryParam("approval_status"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ApproveDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	result, err := h.svc.ApproveDoctor(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "doctor not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) RejectDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req rejectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.svc.RejectDoctor(c.Request().Context(), id, req.Reason)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "doctor not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}
