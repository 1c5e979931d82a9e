package appointment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mediclass/mediclass/internal/platform/auth"
	"github.com/mediclass/mediclass/internal/platform/notification"
)

func newTestServer(repo *mockRepo, dir *mockDirectory) (*echo.Echo, *auth.TokenIssuer) {
	issuer := auth.NewTokenIssuer([]byte("test-secret"), time.Hour)
	dispatcher := notification.NewDispatcher(&notification.MockMailer{}, notification.NewTemplateEngine(),
		notification.NewInMemoryEmailLog(), nil, zerolog.Nop())
	svc := NewService(repo, dir, zerolog.Nop())
	h := NewHandler(svc, dispatcher, "https://mediclass.example")

	e := echo.New()
	api := e.Group("/api/v1", auth.Middleware(issuer, nil))
	h.RegisterRoutes(api)
	return e, issuer
}

func jsonRequest(e *echo.Echo, issuer *auth.TokenIssuer, userID uuid.UUID, role, method, path, body string) *httptest.ResponseRecorder {
	token, err := issuer.Issue(userID, role)
	if err != nil {
		panic(err)
	}
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestTransitionAlwaysAnswers200(t *testing.T) {
	repo := newMockRepo()
	dir := newMockDirectory()
	doctor := dir.add(auth.RoleDoctor)
	patient := dir.add(auth.RolePatient)
	appt := &Appointment{
		PatientID:       patient,
		DoctorID:        doctor,
		AppointmentDate: time.Now().AddDate(0, 0, 7),
		Status:          StatusPending,
	}
	repo.Create(context.Background(), appt)

	e, issuer := newTestServer(repo, dir)

	cases := []struct {
		name        string
		path        string
		body        string
		wantSuccess bool
	}{
		{"confirm", "/api/v1/appointments/" + appt.ID.String(), `{"status":"confirmed"}`, true},
		{"bad status", "/api/v1/appointments/" + appt.ID.String(), `{"status":"cancelled"}`, false},
		{"unknown id", "/api/v1/appointments/" + uuid.NewString(), `{"status":"confirmed"}`, false},
		{"malformed id", "/api/v1/appointments/not-a-uuid", `{"status":"confirmed"}`, false},
	}
	for _, tc := range cases {
		rec := jsonRequest(e, issuer, doctor, auth.RoleDoctor, http.MethodPatch, tc.path, tc.body)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: transitions always answer 200, got %d", tc.name, rec.Code)
			continue
		}
		var res TransitionResult
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("%s: bad body: %v", tc.name, err)
		}
		if res.Success != tc.wantSuccess {
			t.Errorf("%s: success=%v message=%q", tc.name, res.Success, res.Message)
		}
		if res.Message == "" {
			t.Errorf("%s: the UI always needs a message", tc.name)
		}
	}
}

func TestTransitionRequiresDoctorRole(t *testing.T) {
	repo := newMockRepo()
	dir := newMockDirectory()
	patient := dir.add(auth.RolePatient)
	e, issuer := newTestServer(repo, dir)

	rec := jsonRequest(e, issuer, patient, auth.RolePatient, http.MethodPatch,
		"/api/v1/appointments/"+uuid.NewString(), `{"status":"confirmed"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("patients must not reach the transition handler, got %d", rec.Code)
	}
}

func TestBookEndpoint(t *testing.T) {
	repo := newMockRepo()
	dir := newMockDirectory()
	doctor := dir.add(auth.RoleDoctor)
	patient := dir.add(auth.RolePatient)
	e, issuer := newTestServer(repo, dir)

	date := time.Now().AddDate(0, 0, 3).Format(time.RFC3339)
	body := `{"doctor_id":"` + doctor.String() + `","appointment_date":"` + date + `"}`
	rec := jsonRequest(e, issuer, patient, auth.RolePatient, http.MethodPost, "/api/v1/appointments", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var appt Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &appt); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if appt.Status != StatusPending {
		t.Errorf("new bookings start pending, got %s", appt.Status)
	}

	// Doctors cannot book for themselves.
	rec = jsonRequest(e, issuer, doctor, auth.RoleDoctor, http.MethodPost, "/api/v1/appointments", body)
	if rec.Code != http.StatusForbidden {
		t.Errorf("booking is patient-only, got %d", rec.Code)
	}
}

func TestGetEndpointHidesForeignAppointments(t *testing.T) {
	repo := newMockRepo()
	dir := newMockDirectory()
	doctor := dir.add(auth.RoleDoctor)
	patient := dir.add(auth.RolePatient)
	stranger := dir.add(auth.RolePatient)
	appt := &Appointment{
		PatientID:       patient,
		DoctorID:        doctor,
		AppointmentDate: time.Now().AddDate(0, 0, 7),
		Status:          StatusPending,
	}
	repo.Create(context.Background(), appt)
	e, issuer := newTestServer(repo, dir)

	path := "/api/v1/appointments/" + appt.ID.String()
	if rec := jsonRequest(e, issuer, patient, auth.RolePatient, http.MethodGet, path, ""); rec.Code != http.StatusOK {
		t.Errorf("owner read: expected 200, got %d", rec.Code)
	}
	if rec := jsonRequest(e, issuer, stranger, auth.RolePatient, http.MethodGet, path, ""); rec.Code != http.StatusNotFound {
		t.Errorf("foreign read: expected 404, got %d", rec.Code)
	}
}
