package main

import (
	"errors"
	"net/http"

	"gpsr/internal/domain/suppliers"
	"gpsr/internal/service"
)

type SupplierPayload struct {
	Name          string  `json:"name" validate:"required,max=255"`
	ContactPerson *string `json:"contact_person" validate:"omitempty,max=255"`
	Email         *string `json:"email" validate:"omitempty,email,max=255"`
	Phone         *string `json:"phone" validate:"omitempty,max=50"`
	Address       *string `json:"address" validate:"omitempty,max=1000"`
	Notes         *string `json:"notes" validate:"omitempty,max=5000"`
}

// listSuppliersHandler godoc
//
//	@Summary		List your suppliers
//	@Description	Suppliers are private; only the caller's rows are returned.
//	@Tags			suppliers
//	@Produce		json
//	@Param			page	query		int	false	"Page number"	default(1)
//	@Param			limit	query		int	false	"Page size"		default(15)
//	@Success		200		{object}	ListResponse[suppliers.Supplier]
//	@Failure		401		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/suppliers [get]
func (app *application) listSuppliersHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := app.service.ListSuppliers(r.Context(), callerID(r))
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}
	if rows == nil {
		rows = []*suppliers.Supplier{}
	}

	if err := app.jsonResponse(w, http.StatusOK, paginate(r, rows)); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getSupplierHandler godoc
//
//	@Summary		Get a supplier
//	@Tags			suppliers
//	@Produce		json
//	@Param			id	path		string	true	"Supplier ID"
//	@Success		200	{object}	suppliers.Supplier
//	@Failure		404	{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/suppliers/{id} [get]
func (app *application) getSupplierHandler(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "id")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	sup, err := app.service.GetSupplier(r.Context(), callerID(r), id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, sup); err != nil {
		app.internalServerError(w, r, err)
	}
}

// createSupplierHandler godoc
//
//	@Summary		Create a supplier
//	@Tags			suppliers
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		SupplierPayload	true	"Supplier"
//	@Success		201		{object}	suppliers.Supplier
//	@Failure		400		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/suppliers [post]
func (app *application) createSupplierHandler(w http.ResponseWriter, r *http.Request) {
	var payload SupplierPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	sup, err := app.service.CreateSupplier(r.Context(), callerID(r), service.SupplierInput{
		Name:          payload.Name,
		ContactPerson: payload.ContactPerson,
		Email:         payload.Email,
		Phone:         payload.Phone,
		Address:       payload.Address,
		Notes:         payload.Notes,
	})
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, sup); err != nil {
		app.internalServerError(w, r, err)
	}
}

// updateSupplierHandler godoc
//
//	@Summary		Update a supplier
//	@Tags			suppliers
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Supplier ID"
//	@Param			payload	body		suppliers.Patch	true	"Fields to change"
//	@Success		200		{object}	suppliers.Supplier
//	@Failure		400		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/suppliers/{id} [patch]
func (app *application) updateSupplierHandler(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "id")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var patch suppliers.Patch
	if err := readJSON(w, r, &patch); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if patch.Email.Valid {
		if err := Validate.Var(patch.Email.Value, "email"); err != nil {
			app.badRequestResponse(w, r, errors.New("email is not valid"))
			return
		}
	}

	sup, err := app.service.UpdateSupplier(r.Context(), callerID(r), id, patch)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, sup); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteSupplierHandler godoc
//
//	@Summary		Delete a supplier
//	@Tags			suppliers
//	@Param			id	path	string	true	"Supplier ID"
//	@Success		204
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/suppliers/{id} [delete]
func (app *application) deleteSupplierHandler(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "id")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.service.DeleteSupplier(r.Context(), callerID(r), id); err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
