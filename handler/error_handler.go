package handler

import (
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/scrapekit/pkg/logger"
	"github.com/dmitrymomot/scrapekit/pkg/requestid"
)

// ErrorMapper translates domain errors into HTTPError or ValidationError values.
// Returning the error unchanged leaves the default classification in place.
type ErrorMapper func(err error) error

// NewErrorHandler returns an ErrorHandler that maps, logs and renders errors as JSON.
// Client errors are logged at warn, server errors at error.
func NewErrorHandler(log *slog.Logger, mappers ...ErrorMapper) ErrorHandler[Context] {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(logger.Component("http"))

	return func(ctx Context, err error) {
		for _, m := range mappers {
			err = m(err)
		}

		r := ctx.Request()
		status, _ := errorToDetail(err)
		level := slog.LevelError
		if status < http.StatusInternalServerError {
			level = slog.LevelWarn
		}

		log.LogAttrs(r.Context(), level, "request error",
			logger.RequestID(requestid.FromContext(r.Context())),
			logger.Error(err),
			slog.Int("status_code", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		if renderErr := JSONError(err).Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.ErrorContext(r.Context(), "failed to render error response", logger.Error(renderErr))
		}
	}
}

type errorResponse struct{ err error }

func (e errorResponse) Render(http.ResponseWriter, *http.Request) error { return e.err }

// Error returns a Response that hands err to the configured ErrorHandler.
func Error(err error) Response {
	return errorResponse{err: err}
}
