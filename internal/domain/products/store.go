package products

import (
	"context"
	"errors"
	"fmt"

	"gpsr/internal/infra/dbx"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Store interface {
	Create(ctx context.Context, p *Product) (*Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	// List returns every product, newest first, optionally restricted to one
	// category.
	List(ctx context.Context, categoryID *uuid.UUID) ([]*Product, error)
	Update(ctx context.Context, id uuid.UUID, p Patch) (*Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) Store {
	return &Repository{db: db}
}

const productColumns = `
	id, owner_id, category_id,
	gpsr_identification_details, gpsr_warning_phrases, gpsr_warning_text,
	gpsr_pictograms, gpsr_additional_safety_info, gpsr_statement_of_compliance,
	gpsr_online_instructions_url, gpsr_instructions_manual,
	gpsr_declarations_of_conformity, gpsr_certificates,
	gpsr_moderation_status, gpsr_moderation_comment,
	gpsr_last_submission_date, gpsr_last_moderation_date,
	gpsr_submitted_by_supplier_user,
	created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	p := &Product{}
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.CategoryID,
		&p.GPSRIdentificationDetails, &p.GPSRWarningPhrases, &p.GPSRWarningText,
		&p.GPSRPictograms, &p.GPSRAdditionalSafetyInfo, &p.GPSRStatementOfCompliance,
		&p.GPSROnlineInstructionsURL, &p.GPSRInstructionsManual,
		&p.GPSRDeclarationsOfConformity, &p.GPSRCertificates,
		&p.GPSRModerationStatus, &p.GPSRModerationComment,
		&p.GPSRLastSubmissionDate, &p.GPSRLastModerationDate,
		&p.GPSRSubmittedBySupplierUser,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func (r *Repository) Create(ctx context.Context, p *Product) (*Product, error) {
	query := `
		INSERT INTO products (
			owner_id, category_id,
			gpsr_identification_details, gpsr_warning_phrases, gpsr_warning_text,
			gpsr_pictograms, gpsr_additional_safety_info, gpsr_statement_of_compliance,
			gpsr_online_instructions_url, gpsr_instructions_manual,
			gpsr_declarations_of_conformity, gpsr_certificates,
			gpsr_moderation_status, gpsr_moderation_comment,
			gpsr_last_submission_date, gpsr_last_moderation_date,
			gpsr_submitted_by_supplier_user
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING ` + productColumns

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	created, err := scanProduct(r.db.QueryRow(ctx, query,
		p.OwnerID, p.CategoryID,
		p.GPSRIdentificationDetails, p.GPSRWarningPhrases, p.GPSRWarningText,
		p.GPSRPictograms, p.GPSRAdditionalSafetyInfo, p.GPSRStatementOfCompliance,
		p.GPSROnlineInstructionsURL, p.GPSRInstructionsManual,
		p.GPSRDeclarationsOfConformity, p.GPSRCertificates,
		p.GPSRModerationStatus, p.GPSRModerationComment,
		p.GPSRLastSubmissionDate, p.GPSRLastModerationDate,
		p.GPSRSubmittedBySupplierUser,
	))
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	p, err := scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return p, nil
}

func (r *Repository) List(ctx context.Context, categoryID *uuid.UUID) ([]*Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE ($1::uuid IS NULL OR category_id = $1)
		ORDER BY created_at DESC, id`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var list []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return list, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, p Patch) (*Product, error) {
	var u dbx.Updates
	p.apply(&u)
	query, args := u.Build("products", id, productColumns)

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	updated, err := scanProduct(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	return updated, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	result, err := r.db.Exec(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (p Patch) apply(u *dbx.Updates) {
	if p.CategoryID.Set {
		u.Set("category_id", p.CategoryID.Ptr())
	}
	if p.GPSRIdentificationDetails.Set {
		u.Set("gpsr_identification_details", p.GPSRIdentificationDetails.Ptr())
	}
	if p.GPSRWarningPhrases.Set {
		u.Set("gpsr_warning_phrases", p.GPSRWarningPhrases.Value)
	}
	if p.GPSRWarningText.Set {
		u.Set("gpsr_warning_text", p.GPSRWarningText.Ptr())
	}
	if p.GPSRPictograms.Set {
		u.Set("gpsr_pictograms", p.GPSRPictograms.Value)
	}
	if p.GPSRAdditionalSafetyInfo.Set {
		u.Set("gpsr_additional_safety_info", p.GPSRAdditionalSafetyInfo.Ptr())
	}
	if p.GPSRStatementOfCompliance.Set {
		u.Set("gpsr_statement_of_compliance", p.GPSRStatementOfCompliance.Ptr())
	}
	if p.GPSROnlineInstructionsURL.Set {
		u.Set("gpsr_online_instructions_url", p.GPSROnlineInstructionsURL.Ptr())
	}
	if p.GPSRInstructionsManual.Set {
		u.Set("gpsr_instructions_manual", p.GPSRInstructionsManual.Ptr())
	}
	if p.GPSRDeclarationsOfConformity.Set {
		u.Set("gpsr_declarations_of_conformity", p.GPSRDeclarationsOfConformity.Ptr())
	}
	if p.GPSRCertificates.Set {
		u.Set("gpsr_certificates", p.GPSRCertificates.Ptr())
	}
	if p.GPSRModerationStatus.Set {
		u.Set("gpsr_moderation_status", p.GPSRModerationStatus.Ptr())
	}
	if p.GPSRModerationComment.Set {
		u.Set("gpsr_moderation_comment", p.GPSRModerationComment.Ptr())
	}
	if p.GPSRLastSubmissionDate.Set {
		u.Set("gpsr_last_submission_date", p.GPSRLastSubmissionDate.Ptr())
	}
	if p.GPSRLastModerationDate.Set {
		u.Set("gpsr_last_moderation_date", p.GPSRLastModerationDate.Ptr())
	}
	if p.GPSRSubmittedBySupplierUser.Set {
		u.Set("gpsr_submitted_by_supplier_user", p.GPSRSubmittedBySupplierUser.Ptr())
	}
}
