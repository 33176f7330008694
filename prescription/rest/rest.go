// Package rest exposes prescription commands over HTTP.
package rest

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/terraskye/eventflow"
	"github.com/terraskye/eventflow/prescription"
)

// Mutation is the request body for both endpoints. Fields are pointers so
// that presence can be validated independently of zero values.
type Mutation struct {
	PatientID    *string `json:"patient_id"`
	MedicationID *string `json:"medication_id"`
	Address      *string `json:"address"`
}

// View is the response body returned on success.
type View struct {
	ID           string `json:"id"`
	PatientID    string `json:"patient_id"`
	MedicationID string `json:"medication_id"`
	Address      string `json:"address"`
}

type requestError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param"`
}

type errorResponse struct {
	Errors []requestError `json:"errors"`
}

func missingParameter(param string) requestError {
	return requestError{
		Type:    "invalid_request_error",
		Code:    "parameter_missing",
		Message: "We expected a value for " + param + ", but none was provided",
		Param:   param,
	}
}

func unexpectedParameter(param string) requestError {
	return requestError{
		Type:    "invalid_request_error",
		Code:    "parameter_unexpected",
		Message: "Found parameter " + param + ", which we did not expect",
		Param:   param,
	}
}

// Register wires the prescription routes on the provided Echo instance.
func Register(e *echo.Echo, service eventflow.Executor[*prescription.Prescription, prescription.Command]) {
	e.POST("/prescription", createPrescription(service))
	e.POST("/prescription/:id", updatePrescription(service))
}

func createPrescription(service eventflow.Executor[*prescription.Prescription, prescription.Command]) echo.HandlerFunc {
	return func(c echo.Context) error {
		var payload Mutation
		if err := c.Bind(&payload); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Errors: []requestError{{
				Type:    "invalid_request_error",
				Code:    "body_invalid",
				Message: "The request body could not be parsed",
			}}})
		}

		var errs []requestError
		if payload.MedicationID == nil {
			errs = append(errs, missingParameter("medication_id"))
		}
		if payload.PatientID == nil {
			errs = append(errs, missingParameter("patient_id"))
		}
		if payload.Address == nil {
			errs = append(errs, missingParameter("address"))
		}
		if len(errs) > 0 {
			return c.JSON(http.StatusBadRequest, errorResponse{Errors: errs})
		}

		command := prescription.CreatePrescription{
			MedicationID: *payload.MedicationID,
			PatientID:    *payload.PatientID,
			Address:      *payload.Address,
		}
		result, err := service.Execute(c.Request().Context(), "", command)
		if err != nil {
			return commandError(c, err)
		}
		return c.JSON(http.StatusOK, viewFrom(result))
	}
}

func updatePrescription(service eventflow.Executor[*prescription.Prescription, prescription.Command]) echo.HandlerFunc {
	return func(c echo.Context) error {
		var payload Mutation
		if err := c.Bind(&payload); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Errors: []requestError{{
				Type:    "invalid_request_error",
				Code:    "body_invalid",
				Message: "The request body could not be parsed",
			}}})
		}

		var errs []requestError
		if payload.MedicationID != nil {
			errs = append(errs, unexpectedParameter("medication_id"))
		}
		if payload.PatientID != nil {
			errs = append(errs, unexpectedParameter("patient_id"))
		}
		if payload.Address == nil {
			errs = append(errs, missingParameter("address"))
		}
		if len(errs) > 0 {
			return c.JSON(http.StatusBadRequest, errorResponse{Errors: errs})
		}

		command := prescription.UpdatePrescription{
			ID:      c.Param("id"),
			Address: *payload.Address,
		}
		result, err := service.Execute(c.Request().Context(), command.ID, command)
		if err != nil {
			return commandError(c, err)
		}
		return c.JSON(http.StatusOK, viewFrom(result))
	}
}

// commandError maps domain rejections to 422 and everything else, including
// the engine's opaque ErrUnknown, to 500.
func commandError(c echo.Context, err error) error {
	var notExist *prescription.MedicationNotExistError
	var transition *eventflow.TransitionFailedError
	if errors.As(err, &notExist) || errors.As(err, &transition) {
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Errors: []requestError{{
			Type:    "invalid_request_error",
			Code:    "command_rejected",
			Message: err.Error(),
		}}})
	}
	return c.NoContent(http.StatusInternalServerError)
}

func viewFrom(p *prescription.Prescription) View {
	return View{
		ID:           p.ID,
		PatientID:    p.PatientID,
		MedicationID: p.MedicationID,
		Address:      p.Address,
	}
}
