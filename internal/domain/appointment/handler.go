package appointment

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mediclass/mediclass/internal/platform/auth"
	"github.com/mediclass/mediclass/internal/platform/notification"
	"github.com/mediclass/mediclass/pkg/pagination"
)

type Handler struct {
	svc        *Service
	dispatcher *notification.Dispatcher
	siteURL    string
}

func NewHandler(svc *Service, dispatcher *notification.Dispatcher, siteURL string) *Handler {
	return &Handler{svc: svc, dispatcher: dispatcher, siteURL: siteURL}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	patient := api.Group("", auth.RequireRole(auth.RolePatient))
	patient.POST("/appointments", h.Book)
	patient.GET("/appointments/mine", h.ListMine)

	doctor := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.GET("/appointments", h.DoctorView)
	doctor.PATCH("/appointments/:id", h.Transition)
	doctor.POST("/appointments/:id/notify", h.NotifyConfirmation)

	both := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RolePatient))
	both.GET("/appointments/:id", h.Get)
}

type bookRequest struct {
	DoctorID        uuid.UUID `json:"doctor_id"`
	AppointmentDate time.Time `json:"appointment_date"`
	Note            *string   `json:"note,omitempty"`
}

func (h *Handler) Book(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	appt, err := h.svc.Book(c.Request().Context(), actorID, req.DoctorID, req.AppointmentDate, req.Note)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, appt)
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

	appt, err := h.svc.Get(c.Request().Context(), actorID, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	return c.JSON(http.StatusOK, appt)
}

// Transition always answers 200 with a {success, message} body; the UI shows
// the message either way.
func (h *Handler) Transition(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusOK, TransitionResult{Success: false, Message: "Vous devez être connecté"})
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusOK, TransitionResult{Success: false, Message: msgNotFound})
	}

	var req TransitionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusOK, TransitionResult{Success: false, Message: "Requête invalide"})
	}

	result := h.svc.Transition(c.Request().Context(), actorID, id, req)
	return c.JSON(http.StatusOK, result)
}

// NotifyConfirmation sends the confirmation email for an appointment. It is
// a separate action from the status transition so the two stay decoupled.
func (h *Handler) NotifyConfirmation(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	payload, err := h.svc.ConfirmationDetails(c.Request().Context(), actorID, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	payload.Data["site_url"] = h.siteURL

	result := h.dispatcher.Dispatch(c.Request().Context(), payload.PatientID, payload.PatientEmail,
		notification.TypeAppointmentConfirmation, "appointment-confirmation", payload.Data)
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) DoctorView(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	f := ListFilter{
		Query:     c.QueryParam("q"),
		Status:    c.QueryParam("status"),
		DateRange: c.QueryParam("range"),
		Sort:      c.QueryParam("sort"),
	}

	items, err := h.svc.DoctorView(c.Request().Context(), actorID, f)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items, "total": len(items)})
}

func (h *Handler) ListMine(c echo.Context) error {
	actorID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.PatientAppointments(c.Request().Context(), actorID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
