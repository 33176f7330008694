package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/terraskye/eventflow"
	"github.com/terraskye/eventflow/fixtures"
	"github.com/terraskye/eventflow/prescription"
)

func newServer(t *testing.T, repo *fixtures.RepositorySpy[*prescription.Prescription, prescription.Event], directory prescription.Directory) *echo.Echo {
	t.Helper()
	e := echo.New()
	Register(e, prescription.NewService(repo, directory))
	return e
}

func doRequest(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeErrors(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

func TestCreatePrescriptionOK(t *testing.T) {
	repo := fixtures.NewRepositorySpy[*prescription.Prescription, prescription.Event]()
	e := newServer(t, repo, prescription.StaticDirectory{})

	rec := doRequest(e, http.MethodPost, "/prescription",
		`{"medication_id":"med-1","patient_id":"patient-1","address":"1 Main St"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var view View
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.ID == "" {
		t.Fatalf("expected generated id in response")
	}
	if view.MedicationID != "med-1" || view.PatientID != "patient-1" || view.Address != "1 Main St" {
		t.Fatalf("expected request fields echoed back, got %+v", view)
	}
	if len(repo.StoredEvents) != 1 {
		t.Fatalf("expected 1 persisted event, got %d", len(repo.StoredEvents))
	}
}

func TestCreatePrescriptionMissingParameters(t *testing.T) {
	repo := fixtures.NewRepositorySpy[*prescription.Prescription, prescription.Event]()
	e := newServer(t, repo, prescription.StaticDirectory{})

	rec := doRequest(e, http.MethodPost, "/prescription", `{"patient_id":"patient-1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	resp := decodeErrors(t, rec)
	if len(resp.Errors) != 2 {
		t.Fatalf("expected 2 validation errors, got %+v", resp.Errors)
	}
	params := map[string]string{}
	for _, item := range resp.Errors {
		params[item.Param] = item.Code
	}
	if params["medication_id"] != "parameter_missing" || params["address"] != "parameter_missing" {
		t.Fatalf("expected missing medication_id and address, got %+v", resp.Errors)
	}
	if repo.StoreEventsCalls != 0 {
		t.Fatalf("expected no command execution on invalid request")
	}
}

func TestCreatePrescriptionUnknownMedication(t *testing.T) {
	repo := fixtures.NewRepositorySpy[*prescription.Prescription, prescription.Event]()
	directory := prescription.StaticDirectory{Medications: map[string]struct{}{"med-1": {}}}
	e := newServer(t, repo, directory)

	rec := doRequest(e, http.MethodPost, "/prescription",
		`{"medication_id":"med-99","patient_id":"patient-1","address":"1 Main St"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeErrors(t, rec)
	if len(resp.Errors) != 1 || resp.Errors[0].Code != "command_rejected" {
		t.Fatalf("expected command_rejected error, got %+v", resp.Errors)
	}
}

func TestCreatePrescriptionStorageFailure(t *testing.T) {
	repo := fixtures.NewRepositorySpy[*prescription.Prescription, prescription.Event]().
		FailOnStoreEvents(errors.New("disk full"))
	e := newServer(t, repo, prescription.StaticDirectory{})

	rec := doRequest(e, http.MethodPost, "/prescription",
		`{"medication_id":"med-1","patient_id":"patient-1","address":"1 Main St"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestUpdatePrescriptionOK(t *testing.T) {
	repo := fixtures.NewRepositorySpy[*prescription.Prescription, prescription.Event]().
		WithHistory(eventflow.Envelope[prescription.Event]{
			AggregateID:   "rx-1",
			AggregateType: prescription.AggregateType,
			Sequence:      "01SEQ",
			Event: prescription.PrescriptionCreated{
				ID:           "rx-1",
				PatientID:    "patient-1",
				MedicationID: "med-1",
				Address:      "1 Main St",
				Seq:          "01SEQ",
			},
		})
	e := newServer(t, repo, prescription.StaticDirectory{})

	rec := doRequest(e, http.MethodPost, "/prescription/rx-1", `{"address":"2 Oak Ave"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var view View
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.ID != "rx-1" || view.Address != "2 Oak Ave" {
		t.Fatalf("expected updated view, got %+v", view)
	}
}

func TestUpdatePrescriptionUnexpectedParameters(t *testing.T) {
	repo := fixtures.NewRepositorySpy[*prescription.Prescription, prescription.Event]()
	e := newServer(t, repo, prescription.StaticDirectory{})

	rec := doRequest(e, http.MethodPost, "/prescription/rx-1",
		`{"medication_id":"med-1","patient_id":"patient-1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	resp := decodeErrors(t, rec)
	if len(resp.Errors) != 3 {
		t.Fatalf("expected 3 validation errors, got %+v", resp.Errors)
	}
	codes := map[string]string{}
	for _, item := range resp.Errors {
		codes[item.Param] = item.Code
	}
	if codes["medication_id"] != "parameter_unexpected" || codes["patient_id"] != "parameter_unexpected" {
		t.Fatalf("expected unexpected-parameter errors, got %+v", resp.Errors)
	}
	if codes["address"] != "parameter_missing" {
		t.Fatalf("expected missing address error, got %+v", resp.Errors)
	}
}

func TestUpdatePrescriptionUnknownAggregate(t *testing.T) {
	repo := fixtures.NewRepositorySpy[*prescription.Prescription, prescription.Event]()
	e := newServer(t, repo, prescription.StaticDirectory{})

	rec := doRequest(e, http.MethodPost, "/prescription/missing", `{"address":"2 Oak Ave"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}
