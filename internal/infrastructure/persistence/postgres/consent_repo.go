package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/lifedashboard/life-dashboard/internal/domain/shared"
)

const (
	selectConsentSQL = `
		SELECT granted FROM privacy_consents
		WHERE user_id = $1 AND purpose = $2`

	upsertConsentSQL = `
		INSERT INTO privacy_consents (user_id, purpose, granted, granted_at, revoked_at, updated_at)
		VALUES ($1, $2, TRUE, NOW(), NULL, NOW())
		ON CONFLICT (user_id, purpose) DO UPDATE
		SET granted = TRUE, granted_at = NOW(), revoked_at = NULL, updated_at = NOW()`

	revokeConsentSQL = `
		UPDATE privacy_consents
		SET granted = FALSE, revoked_at = NOW(), updated_at = NOW()
		WHERE user_id = $1 AND purpose = $2 AND granted`

	insertHistorySQL = `
		INSERT INTO privacy_consent_history (user_id, purpose, granted)
		VALUES ($1, $2, $3)`
)

// ConsentRepository reads and writes consent rows. It implements
// messaging.ConsentChecker; a subject without a row has not consented.
// Every change and its history row are written in one transaction.
type ConsentRepository struct {
	db DB
}

// NewConsentRepository creates a repository over db.
func NewConsentRepository(db DB) *ConsentRepository {
	return &ConsentRepository{db: db}
}

// HasConsent reports whether subjectID has granted purpose.
func (r *ConsentRepository) HasConsent(ctx context.Context, subjectID int64, purpose string) (bool, error) {
	if err := validatePurpose("HasConsent", purpose); err != nil {
		return false, err
	}

	var granted bool
	err := r.db.QueryRow(ctx, selectConsentSQL, subjectID, purpose).Scan(&granted)
	if err != nil {
		if IsNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("postgres: consent lookup for user %d: %w", subjectID, err)
	}
	return granted, nil
}

// GrantConsent records consent for purpose. Granting twice is a no-op apart
// from the timestamp.
func (r *ConsentRepository) GrantConsent(ctx context.Context, subjectID int64, purpose string) error {
	if err := validatePurpose("GrantConsent", purpose); err != nil {
		return err
	}
	return r.db.InTx(ctx, func(q Querier) error {
		if _, err := q.Exec(ctx, upsertConsentSQL, subjectID, purpose); err != nil {
			return fmt.Errorf("postgres: grant consent for user %d: %w", subjectID, err)
		}
		return appendHistory(ctx, q, subjectID, purpose, true)
	})
}

// RevokeConsent withdraws consent. It returns shared.ErrNotFound when there was
// no granted consent to revoke.
func (r *ConsentRepository) RevokeConsent(ctx context.Context, subjectID int64, purpose string) error {
	if err := validatePurpose("RevokeConsent", purpose); err != nil {
		return err
	}
	return r.db.InTx(ctx, func(q Querier) error {
		tag, err := q.Exec(ctx, revokeConsentSQL, subjectID, purpose)
		if err != nil {
			return fmt.Errorf("postgres: revoke consent for user %d: %w", subjectID, err)
		}
		if tag.RowsAffected() == 0 {
			return shared.NewDomainError("consent", "RevokeConsent", shared.ErrNotFound,
				fmt.Sprintf("no granted consent for user %d and purpose %q", subjectID, purpose))
		}
		return appendHistory(ctx, q, subjectID, purpose, false)
	})
}

func appendHistory(ctx context.Context, q Querier, subjectID int64, purpose string, granted bool) error {
	if _, err := q.Exec(ctx, insertHistorySQL, subjectID, purpose, granted); err != nil {
		return fmt.Errorf("postgres: consent history for user %d: %w", subjectID, err)
	}
	return nil
}

func validatePurpose(op, purpose string) error {
	if strings.TrimSpace(purpose) == "" {
		return shared.NewDomainError("consent", op, shared.ErrInvalidInput, "purpose is required")
	}
	return nil
}
