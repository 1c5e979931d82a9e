package chat

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

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RolePatient))
	g.POST("/conversations", h.Start)
	g.GET("/conversations", h.List)
	g.GET("/conversations/:id/messages", h.History)
	g.POST("/conversations/:id/messages", h.Send)
}

func mapError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
	case errors.Is(err, ErrNotParticipant):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}

type startRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

func (h *Handler) Start(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var req startRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	conv, err := h.svc.Start(c.Request().Context(), actorID, req.UserID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, conv)
}

func (h *Handler) List(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	items, err := h.svc.Conversations(c.Request().Context(), actorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items, "total": len(items)})
}

type sendRequest struct {
	Body string `json:"body"`
}

func (h *Handler) Send(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req sendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	m, err := h.svc.Send(c.Request().Context(), actorID, id, req.Body)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) History(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.History(c.Request().Context(), actorID, id, pg.Limit, pg.Offset)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
