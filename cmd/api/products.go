package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"gpsr/internal/domain/products"

	"github.com/google/uuid"
)

type ProductPayload struct {
	CategoryID                   *uuid.UUID `json:"category_id"`
	GPSRIdentificationDetails    *string    `json:"gpsr_identification_details" validate:"omitempty,max=500"`
	GPSRWarningPhrases           []string   `json:"gpsr_warning_phrases" validate:"omitempty,max=50,dive,max=500"`
	GPSRWarningText              *string    `json:"gpsr_warning_text" validate:"omitempty,max=5000"`
	GPSRPictograms               []string   `json:"gpsr_pictograms" validate:"omitempty,max=50,dive,max=500"`
	GPSRAdditionalSafetyInfo     *string    `json:"gpsr_additional_safety_info" validate:"omitempty,max=5000"`
	GPSRStatementOfCompliance    *bool      `json:"gpsr_statement_of_compliance"`
	GPSROnlineInstructionsURL    *string    `json:"gpsr_online_instructions_url" validate:"omitempty,url"`
	GPSRInstructionsManual       *string    `json:"gpsr_instructions_manual" validate:"omitempty,max=1000"`
	GPSRDeclarationsOfConformity *string    `json:"gpsr_declarations_of_conformity" validate:"omitempty,max=1000"`
	GPSRCertificates             *string    `json:"gpsr_certificates" validate:"omitempty,max=1000"`
	GPSRModerationStatus         *string    `json:"gpsr_moderation_status" validate:"omitempty,max=100"`
	GPSRModerationComment        *string    `json:"gpsr_moderation_comment" validate:"omitempty,max=5000"`
	GPSRLastSubmissionDate       *time.Time `json:"gpsr_last_submission_date"`
	GPSRLastModerationDate       *time.Time `json:"gpsr_last_moderation_date"`
	GPSRSubmittedBySupplierUser  *string    `json:"gpsr_submitted_by_supplier_user" validate:"omitempty,max=255"`
}

func (p ProductPayload) product() products.Product {
	return products.Product{
		CategoryID:                   p.CategoryID,
		GPSRIdentificationDetails:    p.GPSRIdentificationDetails,
		GPSRWarningPhrases:           p.GPSRWarningPhrases,
		GPSRWarningText:              p.GPSRWarningText,
		GPSRPictograms:               p.GPSRPictograms,
		GPSRAdditionalSafetyInfo:     p.GPSRAdditionalSafetyInfo,
		GPSRStatementOfCompliance:    p.GPSRStatementOfCompliance,
		GPSROnlineInstructionsURL:    p.GPSROnlineInstructionsURL,
		GPSRInstructionsManual:       p.GPSRInstructionsManual,
		GPSRDeclarationsOfConformity: p.GPSRDeclarationsOfConformity,
		GPSRCertificates:             p.GPSRCertificates,
		GPSRModerationStatus:         p.GPSRModerationStatus,
		GPSRModerationComment:        p.GPSRModerationComment,
		GPSRLastSubmissionDate:       p.GPSRLastSubmissionDate,
		GPSRLastModerationDate:       p.GPSRLastModerationDate,
		GPSRSubmittedBySupplierUser:  p.GPSRSubmittedBySupplierUser,
	}
}

// validateProductPatch applies the create-time rules to the fields a patch sets.
func validateProductPatch(p products.Patch) error {
	if p.GPSROnlineInstructionsURL.Valid {
		if err := Validate.Var(p.GPSROnlineInstructionsURL.Value, "url"); err != nil {
			return fmt.Errorf("gpsr_online_instructions_url: %w", err)
		}
	}
	if p.GPSRIdentificationDetails.Valid && len(p.GPSRIdentificationDetails.Value) > 500 {
		return errors.New("gpsr_identification_details is too long")
	}
	if p.GPSRWarningPhrases.Valid && len(p.GPSRWarningPhrases.Value) > 50 {
		return errors.New("too many gpsr_warning_phrases")
	}
	if p.GPSRPictograms.Valid && len(p.GPSRPictograms.Value) > 50 {
		return errors.New("too many gpsr_pictograms")
	}
	return nil
}

// listProductsHandler godoc
//
//	@Summary		List products
//	@Description	Every product, newest first, optionally filtered by category. Products owned by somebody else come back redacted: only id, title, category and owner are filled in.
//	@Tags			products
//	@Produce		json
//	@Param			category_id	query		string	false	"Category ID"
//	@Param			page		query		int		false	"Page number"	default(1)
//	@Param			limit		query		int		false	"Page size"		default(15)
//	@Success		200			{object}	ListResponse[visibility.ProductView]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/products [get]
func (app *application) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	var categoryID *uuid.UUID
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			app.badRequestResponse(w, r, fmt.Errorf("invalid category_id: %w", err))
			return
		}
		categoryID = &id
	}

	views, err := app.service.ListProducts(r.Context(), callerID(r), categoryID)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, paginate(r, views)); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getProductHandler godoc
//
//	@Summary		Get a product
//	@Tags			products
//	@Produce		json
//	@Param			id	path		string	true	"Product ID"
//	@Success		200	{object}	visibility.ProductView
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/products/{id} [get]
func (app *application) getProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "id")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	view, err := app.service.GetProduct(r.Context(), callerID(r), id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, view); err != nil {
		app.internalServerError(w, r, err)
	}
}

// createProductHandler godoc
//
//	@Summary		Create a product
//	@Tags			products
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		ProductPayload	true	"Product"
//	@Success		201		{object}	visibility.ProductView
//	@Failure		400		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/products [post]
func (app *application) createProductHandler(w http.ResponseWriter, r *http.Request) {
	var payload ProductPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	view, err := app.service.CreateProduct(r.Context(), callerID(r), payload.product())
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, view); err != nil {
		app.internalServerError(w, r, err)
	}
}

// updateProductHandler godoc
//
//	@Summary		Update a product
//	@Description	Partial update. Omitted fields are left alone; an explicit null clears the field.
//	@Tags			products
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Product ID"
//	@Param			payload	body		products.Patch	true	"Fields to change"
//	@Success		200		{object}	visibility.ProductView
//	@Failure		400		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/products/{id} [patch]
func (app *application) updateProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "id")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var patch products.Patch
	if err := readJSON(w, r, &patch); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := validateProductPatch(patch); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	view, err := app.service.UpdateProduct(r.Context(), callerID(r), id, patch)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, view); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteProductHandler godoc
//
//	@Summary		Delete a product
//	@Tags			products
//	@Param			id	path	string	true	"Product ID"
//	@Success		204
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/products/{id} [delete]
func (app *application) deleteProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "id")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.service.DeleteProduct(r.Context(), callerID(r), id); err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
