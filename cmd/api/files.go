package main

import (
	"errors"
	"fmt"
	"net/http"
)

const maxProductFileBytes = 10 << 20 // 10 MB

// uploadProductFileHandler godoc
//
//	@Summary		Upload a product document
//	@Description	Stores a manual, certificate or declaration. Put the returned path into the matching product field.
//	@Tags			products
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Document"
//	@Success		201		{object}	service.UploadedFile
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/products/files [post]
func (app *application) uploadProductFileHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxProductFileBytes+(1<<20))
	if err := r.ParseMultipartForm(maxProductFileBytes); err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("parse form: %w", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("file is required: %w", err))
		return
	}
	defer file.Close()

	uploaded, err := app.service.UploadProductFile(r.Context(), callerID(r), header.Filename, file)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, uploaded); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteProductFileHandler godoc
//
//	@Summary		Delete a product document
//	@Tags			products
//	@Param			path	query	string	true	"Path returned by the upload"
//	@Success		204
//	@Failure		400	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/products/files [delete]
func (app *application) deleteProductFileHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		app.badRequestResponse(w, r, errors.New("path is required"))
		return
	}

	if err := app.service.DeleteProductFile(r.Context(), callerID(r), path); err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
