package main

import (
	"errors"
	"net/http"
	"strings"

	"gpsr/internal/domain/categories"
	"gpsr/internal/service"
	"gpsr/internal/visibility"

	"github.com/google/uuid"
)

type CreateCategoryPayload struct {
	Name        string     `json:"name" validate:"required,max=255"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	ParentID    *uuid.UUID `json:"parent_id"`
}

// listCategoriesHandler godoc
//
//	@Summary		List categories
//	@Description	Every category in the system. Categories owned by somebody else come back redacted: only id, name, parent and owner are filled in.
//	@Tags			categories
//	@Produce		json
//	@Param			page	query		int	false	"Page number"	default(1)
//	@Param			limit	query		int	false	"Page size"		default(15)
//	@Success		200		{object}	ListResponse[visibility.CategoryView]
//	@Failure		401		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/categories [get]
func (app *application) listCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	views, err := app.service.ListCategories(r.Context(), callerID(r))
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, paginate(r, views)); err != nil {
		app.internalServerError(w, r, err)
	}
}

// categoryTreeHandler godoc
//
//	@Summary		Category tree
//	@Description	The visible category list nested by parent. Rows whose parent is gone become roots.
//	@Tags			categories
//	@Produce		json
//	@Success		200	{array}		categories.TreeNode[visibility.CategoryView]
//	@Failure		401	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/categories/tree [get]
func (app *application) categoryTreeHandler(w http.ResponseWriter, r *http.Request) {
	tree, err := app.service.CategoryTree(r.Context(), callerID(r))
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}
	if tree == nil {
		tree = []*categories.TreeNode[*visibility.CategoryView]{}
	}

	if err := app.jsonResponse(w, http.StatusOK, tree); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getCategoryHandler godoc
//
//	@Summary		Get a category
//	@Tags			categories
//	@Produce		json
//	@Param			id	path		string	true	"Category ID"
//	@Success		200	{object}	visibility.CategoryView
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/categories/{id} [get]
func (app *application) getCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "id")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	view, err := app.service.GetCategory(r.Context(), callerID(r), id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, view); err != nil {
		app.internalServerError(w, r, err)
	}
}

// createCategoryHandler godoc
//
//	@Summary		Create a category
//	@Tags			categories
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateCategoryPayload	true	"Category"
//	@Success		201		{object}	visibility.CategoryView
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/categories [post]
func (app *application) createCategoryHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateCategoryPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	view, err := app.service.CreateCategory(r.Context(), callerID(r), service.CategoryInput{
		Name:        payload.Name,
		Description: payload.Description,
		ParentID:    payload.ParentID,
	})
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, view); err != nil {
		app.internalServerError(w, r, err)
	}
}

// updateCategoryHandler godoc
//
//	@Summary		Update a category
//	@Description	Partial update. Omitted fields are left alone; an explicit null clears description or parent_id.
//	@Tags			categories
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Category ID"
//	@Param			payload	body		categories.Patch	true	"Fields to change"
//	@Success		200		{object}	visibility.CategoryView
//	@Failure		400		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/categories/{id} [patch]
func (app *application) updateCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "id")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var patch categories.Patch
	if err := readJSON(w, r, &patch); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if patch.Description.Valid && len(patch.Description.Value) > 2000 {
		app.badRequestResponse(w, r, errors.New("description is too long"))
		return
	}
	if patch.Name.Valid && len(strings.TrimSpace(patch.Name.Value)) > 255 {
		app.badRequestResponse(w, r, errors.New("name is too long"))
		return
	}

	view, err := app.service.UpdateCategory(r.Context(), callerID(r), id, patch)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, view); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteCategoryHandler godoc
//
//	@Summary		Delete a category
//	@Description	Child categories and products lose their link to it.
//	@Tags			categories
//	@Param			id	path	string	true	"Category ID"
//	@Success		204
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/categories/{id} [delete]
func (app *application) deleteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "id")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.service.DeleteCategory(r.Context(), callerID(r), id); err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
