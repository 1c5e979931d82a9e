package medicalnote

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
	doctor := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.POST("/medical-notes", h.Create)
	doctor.PUT("/medical-notes/:id", h.Update)
	doctor.DELETE("/medical-notes/:id", h.Delete)
	doctor.GET("/medical-notes/authored", h.ListAuthored)

	patient := api.Group("", auth.RequireRole(auth.RolePatient))
	patient.GET("/medical-notes/mine", h.ListMine)

	both := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RolePatient))
	both.GET("/medical-notes/:id", h.Get)
}

type createRequest struct {
	PatientID     uuid.UUID  `json:"patient_id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	Content       Content    `json:"content"`
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrNotPatient):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) Create(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Content.Diagnosis == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "diagnosis is required")
	}

	n, err := h.svc.Create(c.Request().Context(), actorID, req.PatientID, req.AppointmentID, req.Content)
	if err != nil {
		return echo.NewHTTPError(httpStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) Get(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	n, err := h.svc.Get(c.Request().Context(), actorID, id)
	if err != nil {
		return echo.NewHTTPError(httpStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) Update(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var content Content
	if err := c.Bind(&content); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if content.Diagnosis == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "diagnosis is required")
	}

	n, err := h.svc.Update(c.Request().Context(), actorID, id, content)
	if err != nil {
		return echo.NewHTTPError(httpStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) Delete(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := h.svc.Delete(c.Request().Context(), actorID, id); err != nil {
		return echo.NewHTTPError(httpStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListMine(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ForPatient(c.Request().Context(), actorID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListAuthored(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ForDoctor(c.Request().Context(), actorID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
