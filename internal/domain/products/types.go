package products

import (
	"errors"
	"time"

	"gpsr/internal/nullable"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	QueryTimeoutDuration = time.Second * 5
)

// Product is a GPSR compliance record. GPSRIdentificationDetails doubles as
// the product title.
type Product struct {
	ID                           uuid.UUID  `json:"id"`
	OwnerID                      uuid.UUID  `json:"owner_id"`
	CategoryID                   *uuid.UUID `json:"category_id"`
	GPSRIdentificationDetails    *string    `json:"gpsr_identification_details"`
	GPSRWarningPhrases           []string   `json:"gpsr_warning_phrases"`
	GPSRWarningText              *string    `json:"gpsr_warning_text"`
	GPSRPictograms               []string   `json:"gpsr_pictograms"`
	GPSRAdditionalSafetyInfo     *string    `json:"gpsr_additional_safety_info"`
	GPSRStatementOfCompliance    *bool      `json:"gpsr_statement_of_compliance"`
	GPSROnlineInstructionsURL    *string    `json:"gpsr_online_instructions_url"`
	GPSRInstructionsManual       *string    `json:"gpsr_instructions_manual"`
	GPSRDeclarationsOfConformity *string    `json:"gpsr_declarations_of_conformity"`
	GPSRCertificates             *string    `json:"gpsr_certificates"`
	GPSRModerationStatus         *string    `json:"gpsr_moderation_status"`
	GPSRModerationComment        *string    `json:"gpsr_moderation_comment"`
	GPSRLastSubmissionDate       *time.Time `json:"gpsr_last_submission_date"`
	GPSRLastModerationDate       *time.Time `json:"gpsr_last_moderation_date"`
	GPSRSubmittedBySupplierUser  *string    `json:"gpsr_submitted_by_supplier_user"`
	CreatedAt                    time.Time  `json:"created_at"`
	UpdatedAt                    time.Time  `json:"updated_at"`
}

// Title is the public label of a product; empty when not yet filled in.
func (p *Product) Title() string {
	if p.GPSRIdentificationDetails == nil {
		return ""
	}
	return *p.GPSRIdentificationDetails
}

type Patch struct {
	CategoryID                   nullable.Field[uuid.UUID] `json:"category_id"`
	GPSRIdentificationDetails    nullable.Field[string]    `json:"gpsr_identification_details"`
	GPSRWarningPhrases           nullable.Field[[]string]  `json:"gpsr_warning_phrases"`
	GPSRWarningText              nullable.Field[string]    `json:"gpsr_warning_text"`
	GPSRPictograms               nullable.Field[[]string]  `json:"gpsr_pictograms"`
	GPSRAdditionalSafetyInfo     nullable.Field[string]    `json:"gpsr_additional_safety_info"`
	GPSRStatementOfCompliance    nullable.Field[bool]      `json:"gpsr_statement_of_compliance"`
	GPSROnlineInstructionsURL    nullable.Field[string]    `json:"gpsr_online_instructions_url"`
	GPSRInstructionsManual       nullable.Field[string]    `json:"gpsr_instructions_manual"`
	GPSRDeclarationsOfConformity nullable.Field[string]    `json:"gpsr_declarations_of_conformity"`
	GPSRCertificates             nullable.Field[string]    `json:"gpsr_certificates"`
	GPSRModerationStatus         nullable.Field[string]    `json:"gpsr_moderation_status"`
	GPSRModerationComment        nullable.Field[string]    `json:"gpsr_moderation_comment"`
	GPSRLastSubmissionDate       nullable.Field[time.Time] `json:"gpsr_last_submission_date"`
	GPSRLastModerationDate       nullable.Field[time.Time] `json:"gpsr_last_moderation_date"`
	GPSRSubmittedBySupplierUser  nullable.Field[string]    `json:"gpsr_submitted_by_supplier_user"`
}
