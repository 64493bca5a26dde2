package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/backdrop/pkg/binder"
	"github.com/dmitrymomot/backdrop/pkg/logger"
	"github.com/dmitrymomot/backdrop/pkg/requestid"
)

// ErrorRule maps errors matching Target (via errors.Is) to a status code
// and client-facing message.
type ErrorRule struct {
	Target  error
	Status  int
	Message string
}

// MapError creates an ErrorRule. An empty message defaults to
// target.Error().
func MapError(target error, status int, message string) ErrorRule {
	if message == "" {
		message = target.Error()
	}
	return ErrorRule{Target: target, Status: status, Message: message}
}

// ErrorInfo is the classification of an error for the response.
type ErrorInfo struct {
	StatusCode int
	Message    string
	LogLevel   slog.Level
}

// Classify resolves err against rules, then HTTPError, then binder errors.
// Anything else is a 500 with a generic message.
func Classify(err error, rules ...ErrorRule) ErrorInfo {
	info := ErrorInfo{StatusCode: ErrInternalServerError.Code, Message: ErrInternalServerError.Message}

	var httpErr HTTPError
	matched := false
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			info.StatusCode, info.Message = rule.Status, rule.Message
			matched = true
			break
		}
	}
	switch {
	case matched:
	case errors.As(err, &httpErr):
		info.StatusCode, info.Message = httpErr.Code, httpErr.Message
	case binder.IsBindingError(err):
		info.StatusCode, info.Message = http.StatusBadRequest, "Invalid request body"
	}

	info.LogLevel = slog.LevelError
	if info.StatusCode < http.StatusInternalServerError {
		info.LogLevel = slog.LevelWarn
	}
	return info
}

// NewErrorHandler creates an ErrorHandler that writes {"error": message}
// and logs the failure: client errors at warn, server errors at error.
func NewErrorHandler(log *slog.Logger, rules ...ErrorRule) ErrorHandler {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(logger.Component("error_handler"))

	return func(ctx Context, err error) {
		r := ctx.Request()
		info := Classify(err, rules...)

		log.LogAttrs(r.Context(), info.LogLevel, "request error",
			logger.RequestID(requestid.FromContext(r.Context())),
			logger.Error(err),
			slog.Int("status_code", info.StatusCode),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		if renderErr := JSONError(info.StatusCode, info.Message).Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.ErrorContext(r.Context(), "failed to write error response",
				logger.Error(renderErr), logger.Event("render_error"))
		}
	}
}
