package comment

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
	g.GET("/videos/:videoId/comments", h.ListForVideo)
	g.POST("/videos/:videoId/comments", h.Post)
	g.PATCH("/comments/:id", h.Edit)
	g.DELETE("/comments/:id", h.Remove)
	g.POST("/comments/:id/like", h.ToggleLike)
}

func mapError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "comment not found")
	case errors.Is(err, ErrNotAuthorized):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}

type bodyRequest struct {
	Body string `json:"body"`
}

func (h *Handler) Post(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	videoID, err := uuid.Parse(c.Param("videoId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid video id")
	}

	var req bodyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	cm, err := h.svc.Post(c.Request().Context(), actorID, videoID, req.Body)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, cm)
}

func (h *Handler) Edit(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req bodyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	cm, err := h.svc.Edit(c.Request().Context(), actorID, id, req.Body)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, cm)
}

func (h *Handler) Remove(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := h.svc.Remove(c.Request().Context(), actorID, id); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListForVideo(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	videoID, err := uuid.Parse(c.Param("videoId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid video id")
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ForVideo(c.Request().Context(), actorID, videoID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ToggleLike(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	liked, count, err := h.svc.ToggleLike(c.Request().Context(), actorID, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"liked": liked, "like_count": count})
}
