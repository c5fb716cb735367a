package core

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"floodwatch/internal/types"
)

// maxRequestBodySize caps every decoded request body (1 MB). The largest
// legitimate payload is a rainfall forecast of a few hundred entries.
const maxRequestBodySize = 1 << 20

// APIResponse is the success envelope shared by every floodwatch endpoint:
//
//	{"success": true, "message": "...", "data": {...}}
//
// Message carries the user-facing Vietnamese summary some endpoints return
// alongside data (for example the alert check result).
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// OK writes a 200 success envelope around data.
func OK(w http.ResponseWriter, r *http.Request, data any) {
	JSON(w, r, http.StatusOK, APIResponse{Success: true, Data: data})
}

// APIErrorResponse is the error envelope: {"error": {...}}.
type APIErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned to clients.
// RequestID echoes the X-Request-ID assigned by RequestIDMiddleware so a
// client report can be matched to the server log line.
type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id"`
}

// JSON marshals data and writes it with the given status and a JSON
// Content-Type. Marshalling happens before any header is written, so a
// value that cannot be encoded still yields a well-formed 500 error body
// instead of a truncated response.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		// The fallback is a fixed struct of strings and cannot fail to encode.
		_ = json.NewEncoder(w).Encode(APIErrorResponse{
			Error: ErrorDetail{
				Code:      string(types.ErrCodeInternalUnexpected),
				Message:   "failed to marshal response",
				RequestID: types.GetRequestID(r.Context()),
			},
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Error writes err as the error envelope.
//
//   - A *types.AppError anywhere in the chain supplies the code, message,
//     details and, through its code prefix, the HTTP status (validation_ 400,
//     not_found_ 404, conflict_ 409, upstream_ 502, internal_ 500).
//   - Any other error is reported as a 500 internal_unexpected_error with a
//     fixed message.
//
// The wrapped cause of an AppError and the text of a plain error stay in the
// server log; neither is sent to the client.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	detail := ErrorDetail{
		Code:      string(types.ErrCodeInternalUnexpected),
		Message:   "an unexpected error occurred",
		RequestID: types.GetRequestID(r.Context()),
	}
	status := http.StatusInternalServerError

	var appErr *types.AppError
	if errors.As(err, &appErr) {
		detail.Code = string(appErr.Code)
		detail.Message = appErr.Message
		detail.Details = appErr.Details
		status = appErr.HTTPStatus()
	}
	JSON(w, r, status, APIErrorResponse{Error: detail})
}

// DecodeJSON strictly decodes the request body into dst. The body must be
// a single JSON value of at most maxRequestBodySize bytes with no fields
// unknown to dst.
//
// Every failure is a validation_invalid_body AppError (400), so handlers can
// pass the result straight to Error.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	// Passing w lets the server close the connection once the limit is hit.
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return mapDecodeError(err)
	}
	if dec.More() {
		return invalidBody("request body must contain a single JSON object", nil)
	}
	return nil
}

func invalidBody(msg string, err error) *types.AppError {
	return types.NewAppError(types.ErrCodeValidationInvalidBody, msg, err)
}

// mapDecodeError turns a json.Decoder failure into a client-facing message.
// Checks run from the most specific cause to the generic fallback.
func mapDecodeError(err error) *types.AppError {
	var (
		maxBytesErr  *http.MaxBytesError
		syntaxErr    *json.SyntaxError
		typeErr      *json.UnmarshalTypeError
		unknownField = "json: unknown field "
	)

	switch {
	case errors.As(err, &maxBytesErr):
		return invalidBody("request body must not exceed 1MB", err)

	case errors.As(err, &syntaxErr):
		return invalidBody("malformed JSON in request body", err)

	case errors.As(err, &typeErr):
		// e.g. {"minRiskLevel": "high"} where an int is expected.
		return invalidBody("invalid value for field", err).WithDetails(map[string]any{
			"field":    typeErr.Field,
			"expected": typeErr.Type.String(),
		})

	case strings.HasPrefix(err.Error(), unknownField):
		// encoding/json has no typed error for DisallowUnknownFields.
		return invalidBody("unknown field in request body: "+strings.TrimPrefix(err.Error(), unknownField), err)

	case errors.Is(err, io.EOF):
		return invalidBody("request body must not be empty", err)

	default:
		return invalidBody("invalid JSON in request body", err)
	}
}
