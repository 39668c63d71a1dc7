package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"gpsr/internal/service"
)

// ErrorResponse is the envelope every failed request gets.
//
//	@name			ErrorResponse
//	@description	Standard error response format returned by all API endpoints
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"category not found"`
	Status  int    `json:"status" example:"404"`
}

func (app *application) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Errorw("internal error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusInternalServerError, "the server encountered a problem")
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("bad request", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusBadRequest, err.Error())
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("not found error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusNotFound, err.Error())
}

func (app *application) conflictResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("conflict response", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusConflict, err.Error())
}

func (app *application) forbiddenResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("forbidden", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusForbidden, err.Error())
}

func (app *application) unauthorizedErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusUnauthorized, "unauthorized")
}

func (app *application) unauthorizedBasicErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized basic error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	w.Header().Set("WWW-Authenticate", `Basic realm="restricted", charset="UTF-8"`)

	writeJSONError(w, http.StatusUnauthorized, "unauthorized")
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	app.logger.Warnw("rate limit exceeded", "method", r.Method, "path", r.URL.Path)

	w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter.Seconds()))

	writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded, retry after: "+retryAfter.String())
}

// serviceErrorResponse maps the service error taxonomy onto HTTP statuses.
func (app *application) serviceErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		app.unauthorizedErrorResponse(w, r, err)
	case errors.Is(err, service.ErrValidation):
		app.badRequestResponse(w, r, err)
	case errors.Is(err, service.ErrNotFound):
		app.notFoundResponse(w, r, err)
	case errors.Is(err, service.ErrForbidden):
		app.forbiddenResponse(w, r, err)
	case errors.Is(err, service.ErrConflict):
		app.conflictResponse(w, r, err)
	case errors.Is(err, service.ErrGrantIncomplete):
		app.logger.Errorw("partial approval", "method", r.Method, "path", r.URL.Path, "error", err.Error())
		writeJSONError(w, http.StatusInternalServerError, "request approved but access could not be granted yet; it will be retried")
	default:
		app.internalServerError(w, r, err)
	}
}
