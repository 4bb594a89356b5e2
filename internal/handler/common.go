package handler

import (
	"encoding/json"
	"net/http"

	"reward-payments/internal/errors"
)

type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := Response{Data: data}
	json.NewEncoder(w).Encode(response)
}

func writeError(w http.ResponseWriter, appErr *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusForCode(appErr.Code))

	response := Response{Error: &Error{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	}}
	json.NewEncoder(w).Encode(response)
}

func statusForCode(code errors.ErrorCode) int {
	switch code {
	case errors.SignatureInvalid:
		return http.StatusForbidden
	case errors.ReferenceNotFound, errors.UserNotFound:
		return http.StatusNotFound
	case errors.DuplicateReference:
		return http.StatusConflict
	case errors.InsufficientBalance:
		return http.StatusUnprocessableEntity
	case errors.InvalidAmount, errors.InvalidInput:
		return http.StatusBadRequest
	case errors.GatewayError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// asAppError lifts any error into the response taxonomy.
func asAppError(err error) *errors.AppError {
	if appErr, ok := err.(*errors.AppError); ok {
		return appErr
	}
	return errors.NewAppError(errors.InternalError, "an unexpected error occurred").WithDetails(err.Error())
}
