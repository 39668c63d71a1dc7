package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"gpsr/internal/domain/accesscontrol"
	"gpsr/internal/params"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var Validate *validator.Validate

func init() {
	Validate = validator.New(validator.WithRequiredStructEnabled())

	// resource types that can be shared through access requests
	if err := Validate.RegisterValidation(resourceTypeTag, validResourceType); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", resourceTypeTag, err))
	}
}

const resourceTypeTag = "resourcetype"

func validResourceType(fl validator.FieldLevel) bool {
	return accesscontrol.ResourceType(fl.Field().String()).Valid()
}

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// it parses body into Go struct.
func readJSON(w http.ResponseWriter, r *http.Request, data any) error {
	maxBytes := 1_048_578 //1mb
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(data)
}

func writeJSONError(w http.ResponseWriter, status int, message string) error {
	return writeJSON(w, status, &ErrorResponse{
		Success: false,
		Message: message,
		Status:  status,
	})
}

func (app *application) jsonResponse(w http.ResponseWriter, status int, data any) error {
	type envelope struct {
		Data any `json:"data"`
	}
	return writeJSON(w, status, &envelope{Data: data})
}

// ListResponse is the data payload of every paginated endpoint.
type ListResponse[T any] struct {
	Items      []T               `json:"items"`
	Pagination params.Pagination `json:"pagination"`
}

func paginate[T any](r *http.Request, items []T) ListResponse[T] {
	page, meta := params.Page(items, params.ParsePagination(r.URL.Query()))
	return ListResponse[T]{Items: page, Pagination: meta}
}

func readIDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return id, nil
}
