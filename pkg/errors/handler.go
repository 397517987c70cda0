package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Problem is the error part of the {success, data, error} response envelope
type Problem struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

type errorEnvelope struct {
	Success bool     `json:"success"`
	Error   *Problem `json:"error"`
}

// ErrorHandler answers failed requests with the error envelope
type ErrorHandler struct {
	logger *zap.Logger
	debug  bool
}

// NewErrorHandler creates a new error handler. In debug mode stack traces
// and the text of untyped errors are sent to the client.
func NewErrorHandler(logger *zap.Logger, debug bool) *ErrorHandler {
	return &ErrorHandler{logger: logger, debug: debug}
}

// describe maps err to its status and problem. Untyped errors are hidden
// behind a generic message unless debug is set.
func describe(err error, debug bool) (int, Problem) {
	var validationErrs *ValidationErrors
	var domainErr *DomainError

	if errors.As(err, &validationErrs) {
		return http.StatusBadRequest, Problem{
			Code:    string(ErrorTypeValidation),
			Message: validationErrs.Error(),
			Details: map[string]interface{}{"fields": validationErrs.ByLocale()},
		}
	}
	if appErr := GetAppError(err); appErr != nil {
		status := appErr.HTTPStatus
		if status == 0 {
			status = appErr.Type.Status()
		}
		p := Problem{Code: appErr.Code, Message: appErr.Message, Details: appErr.Details}
		if p.Code == "" {
			p.Code = string(appErr.Type)
		}
		if debug && appErr.StackTrace != "" {
			p.Details = withDetail(p.Details, "stack_trace", appErr.StackTrace)
		}
		return status, p
	}
	if errors.As(err, &domainErr) {
		return domainErr.StatusCode, Problem{Code: domainErr.Code, Message: domainErr.Message, Details: domainErr.Details}
	}

	p := Problem{Code: string(ErrorTypeInternal), Message: "An internal error occurred"}
	if debug {
		p.Message = err.Error()
	}
	return http.StatusInternalServerError, p
}

func withDetail(details map[string]interface{}, key string, value interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(details)+1)
	for k, v := range details {
		out[k] = v
	}
	out[key] = value
	return out
}

// HTTPStatus returns the status code Handle would answer err with
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	status, _ := describe(err, false)
	return status
}

// Handle logs err and sends its problem
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}
	status, problem := describe(err, h.debug)
	problem.RequestID = r.Header.Get("X-Request-ID")

	fields := []zap.Field{
		zap.String("code", problem.Code),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("request_id", problem.RequestID),
		zap.Error(err),
	}
	switch {
	case status >= 500:
		h.logger.Error(problem.Message, fields...)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		h.logger.Info(problem.Message, fields...)
	default:
		h.logger.Warn(problem.Message, fields...)
	}

	h.send(w, status, problem)
}

// HandleStatus answers with a bare status, for routing failures that carry
// no error value
func (h *ErrorHandler) HandleStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.logger.Debug("Request rejected",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
	)
	h.send(w, status, Problem{
		Code:      strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_")),
		Message:   message,
		RequestID: r.Header.Get("X-Request-ID"),
	})
}

func (h *ErrorHandler) send(w http.ResponseWriter, status int, problem Problem) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorEnvelope{Error: &problem}); err != nil {
		h.logger.Error("Failed to encode error response", zap.Error(err))
	}
}

// Middleware recovers panics of later handlers into a 500 problem
func (h *ErrorHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.Handle(w, r, NewInternalError(fmt.Sprintf("panic: %v", rec)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
