package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"felicity/internal/apperrors"
	"felicity/internal/database"
	"felicity/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// uniqueViolation is the Postgres error code raised when the partial
// unique index on active registrations rejects a second writer.
const uniqueViolation = "23505"

type RegistrationRepository struct {
	db *database.DB
}

func NewRegistrationRepository(db *database.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

func (r *RegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	responses, err := json.Marshal(reg.Responses)
	if err != nil {
		return fmt.Errorf("failed to marshal responses: %w", err)
	}

	query := `
		INSERT INTO registrations (id, event_id, participant_id, participant_name, participant_email,
		                           type, responses, variant_name, quantity, total_amount,
		                           status, payment_status, ticket)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`

	err = r.db.QueryRowContext(ctx, query,
		reg.ID,
		reg.EventID,
		reg.ParticipantID,
		reg.ParticipantName,
		reg.ParticipantEmail,
		reg.Type,
		responses,
		reg.VariantName,
		reg.Quantity,
		reg.TotalAmount,
		reg.Status,
		reg.PaymentStatus,
		reg.Ticket,
	).Scan(&reg.CreatedAt, &reg.UpdatedAt)

	// The partial unique index is the authoritative duplicate guard; the
	// service pre-check can always race.
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return apperrors.DuplicateRegistration()
	}

	return err
}

const registrationColumns = `
	id, event_id, participant_id, participant_name, participant_email, type, responses,
	variant_name, quantity, total_amount, status, payment_status, proof_ref,
	proof_uploaded_at, approval_notes, approved_by, approved_at, ticket, attended_at,
	scanned_by, manual_override, override_reason, created_at, updated_at`

const registrationByIDQuery = `SELECT` + registrationColumns + `
	FROM registrations WHERE id = $1`

func (r *RegistrationRepository) scanRegistration(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.Registration, error) {
	reg := &models.Registration{}
	var responses []byte

	err := scanner.Scan(
		&reg.ID,
		&reg.EventID,
		&reg.ParticipantID,
		&reg.ParticipantName,
		&reg.ParticipantEmail,
		&reg.Type,
		&responses,
		&reg.VariantName,
		&reg.Quantity,
		&reg.TotalAmount,
		&reg.Status,
		&reg.PaymentStatus,
		&reg.ProofRef,
		&reg.ProofUploadedAt,
		&reg.ApprovalNotes,
		&reg.ApprovedBy,
		&reg.ApprovedAt,
		&reg.Ticket,
		&reg.AttendedAt,
		&reg.ScannedBy,
		&reg.ManualOverride,
		&reg.OverrideReason,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(responses, &reg.Responses); err != nil {
		return nil, fmt.Errorf("failed to unmarshal responses: %w", err)
	}

	return reg, nil
}

func (r *RegistrationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	reg, err := r.scanRegistration(r.db.QueryRowContext(ctx, registrationByIDQuery, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return reg, err
}

// GetActive returns the participant's non-cancelled registration for an
// event, if any.
func (r *RegistrationRepository) GetActive(ctx context.Context, eventID, participantID uuid.UUID) (*models.Registration, error) {
	query := `SELECT` + registrationColumns + `
		FROM registrations
		WHERE event_id = $1 AND participant_id = $2 AND status <> 'cancelled'`

	reg, err := r.scanRegistration(r.db.QueryRowContext(ctx, query, eventID, participantID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return reg, err
}

func (r *RegistrationRepository) ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]models.Registration, error) {
	query := `SELECT` + registrationColumns + `
		FROM registrations
		WHERE participant_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []models.Registration
	for rows.Next() {
		reg, err := r.scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, *reg)
	}

	return regs, rows.Err()
}

func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error) {
	query := `SELECT` + registrationColumns + `
		FROM registrations
		WHERE event_id = $1
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []models.Registration
	for rows.Next() {
		reg, err := r.scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, *reg)
	}

	return regs, rows.Err()
}

// SetProof stores a payment proof reference and advances the payment
// state to pending_approval, clearing any prior rejection notes. The
// update is conditional on the state still permitting an upload.
func (r *RegistrationRepository) SetProof(ctx context.Context, id uuid.UUID, ref string, now time.Time) (bool, error) {
	query := `
		UPDATE registrations
		SET proof_ref = $1, proof_uploaded_at = $2, payment_status = 'pending_approval',
		    approval_notes = NULL, updated_at = NOW()
		WHERE id = $3 AND payment_status IN ('pending', 'rejected')`

	result, err := r.db.ExecContext(ctx, query, ref, now, id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	return affected > 0, err
}

// ApproveOrder commits the approval of a merchandise order as one
// transaction: the approval gate, the conditional stock decrement and
// the ticket write either all apply or none do.
func (r *RegistrationRepository) ApproveOrder(ctx context.Context, reg *models.Registration, approvedBy uuid.UUID, notes, ticket string, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Gate on pending_approval first so a concurrent double-approve
	// loses here, before stock is touched.
	approveQuery := `
		UPDATE registrations
		SET payment_status = 'approved', approved_by = $1, approved_at = $2,
		    approval_notes = $3, ticket = $4, updated_at = NOW()
		WHERE id = $5 AND payment_status = 'pending_approval'`

	result, err := tx.ExecContext(ctx, approveQuery, approvedBy, now, notes, ticket, reg.ID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.NotPendingApproval(string(reg.PaymentStatus))
	}

	// Conditional decrement: never lets stock go negative under
	// concurrent approvals of the same variant.
	stockQuery := `
		UPDATE merch_variants
		SET stock = stock - $1
		WHERE event_id = $2 AND name = $3 AND stock >= $1`

	result, err = tx.ExecContext(ctx, stockQuery, reg.Quantity, reg.EventID, reg.VariantName)
	if err != nil {
		return err
	}
	affected, err = result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.InsufficientStock(reg.VariantName)
	}

	return tx.Commit()
}

// Reject marks a pending_approval order rejected with a note. A false
// return means the order was not awaiting approval.
func (r *RegistrationRepository) Reject(ctx context.Context, id, rejectedBy uuid.UUID, notes string, now time.Time) (bool, error) {
	query := `
		UPDATE registrations
		SET payment_status = 'rejected', approved_by = $1, approved_at = $2,
		    approval_notes = $3, updated_at = NOW()
		WHERE id = $4 AND payment_status = 'pending_approval'`

	result, err := r.db.ExecContext(ctx, query, rejectedBy, now, notes, id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	return affected > 0, err
}

// MarkAttended flips registered -> attended and bumps the event's
// attendance counter in one transaction. The conditional update is the
// scan idempotence guard: the loser of a concurrent double scan gets
// false and reports the duplicate outcome.
func (r *RegistrationRepository) MarkAttended(ctx context.Context, id, scannedBy uuid.UUID, manual bool, reason string, now time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var overrideReason *string
	if manual {
		overrideReason = &reason
	}

	query := `
		UPDATE registrations
		SET status = 'attended', attended_at = $1, scanned_by = $2,
		    manual_override = $3, override_reason = $4, updated_at = NOW()
		WHERE id = $5 AND status = 'registered'
		  AND payment_status IN ('not_required', 'approved')`

	result, err := tx.ExecContext(ctx, query, now, scannedBy, manual, overrideReason, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	counterQuery := `
		UPDATE events
		SET attendance_count = attendance_count + 1, updated_at = NOW()
		WHERE id = (SELECT event_id FROM registrations WHERE id = $1)`

	if _, err := tx.ExecContext(ctx, counterQuery, id); err != nil {
		return false, err
	}

	return true, tx.Commit()
}

// Cancel flips registered -> cancelled and releases the capacity slot.
// A false return means the registration was not in the registered state.
func (r *RegistrationRepository) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	query := `
		UPDATE registrations
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status = 'registered'`

	result, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	releaseQuery := `
		UPDATE events
		SET registered_count = registered_count - 1, updated_at = NOW()
		WHERE id = (SELECT event_id FROM registrations WHERE id = $1) AND registered_count > 0`

	if _, err := tx.ExecContext(ctx, releaseQuery, id); err != nil {
		return false, err
	}

	return true, tx.Commit()
}

// CountActive counts non-cancelled registrations for an event.
func (r *RegistrationRepository) CountActive(ctx context.Context, eventID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status <> 'cancelled'`

	err := r.db.QueryRowContext(ctx, query, eventID).Scan(&count)
	return count, err
}
