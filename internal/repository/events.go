package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"felicity/internal/database"
	"felicity/internal/models"

	"github.com/google/uuid"
)

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	formFields, err := json.Marshal(event.FormFields)
	if err != nil {
		return fmt.Errorf("failed to marshal form fields: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO events (organizer_id, name, description, type, eligibility, start_at, end_at,
		                    registration_deadline, location, max_participants, fee, status, form_fields)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRowContext(ctx, query,
		event.OrganizerID,
		event.Name,
		event.Description,
		event.Type,
		event.Eligibility,
		event.StartAt,
		event.EndAt,
		event.RegistrationDeadline,
		event.Location,
		event.MaxParticipants,
		event.Fee,
		event.Status,
		formFields,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return err
	}

	for i := range event.Variants {
		variant := &event.Variants[i]
		variant.EventID = event.ID

		insertQuery := `
			INSERT INTO merch_variants (event_id, name, price, stock)
			VALUES ($1, $2, $3, $4)
			RETURNING id`

		err = tx.QueryRowContext(ctx, insertQuery,
			variant.EventID, variant.Name, variant.Price, variant.Stock,
		).Scan(&variant.ID)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

const eventColumns = `
	id, organizer_id, name, description, type, eligibility, start_at, end_at,
	registration_deadline, location, max_participants, fee, status, form_fields,
	registered_count, attendance_count, created_at, updated_at`

const eventByIDQuery = `SELECT` + eventColumns + `
	FROM events WHERE id = $1`

func (r *EventRepository) scanEvent(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.Event, error) {
	event := &models.Event{}
	var formFields []byte

	err := scanner.Scan(
		&event.ID,
		&event.OrganizerID,
		&event.Name,
		&event.Description,
		&event.Type,
		&event.Eligibility,
		&event.StartAt,
		&event.EndAt,
		&event.RegistrationDeadline,
		&event.Location,
		&event.MaxParticipants,
		&event.Fee,
		&event.Status,
		&formFields,
		&event.RegisteredCount,
		&event.AttendanceCount,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(formFields, &event.FormFields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal form fields: %w", err)
	}

	return event, nil
}

func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	event, err := r.scanEvent(r.db.QueryRowContext(ctx, eventByIDQuery, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	variants, err := r.GetVariants(ctx, id)
	if err != nil {
		return nil, err
	}
	event.Variants = variants

	return event, nil
}

func (r *EventRepository) List(ctx context.Context, status models.EventStatus, page, pageSize int) ([]models.Event, error) {
	query := `SELECT` + eventColumns + `
		FROM events
		WHERE status = $1
		ORDER BY start_at
		LIMIT $2 OFFSET $3`

	offset := (page - 1) * pageSize
	rows, err := r.db.QueryContext(ctx, query, status, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		event, err := r.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}

	return events, rows.Err()
}

func (r *EventRepository) ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]models.Event, error) {
	query := `SELECT` + eventColumns + `
		FROM events
		WHERE organizer_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		event, err := r.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}

	return events, rows.Err()
}

func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	formFields, err := json.Marshal(event.FormFields)
	if err != nil {
		return fmt.Errorf("failed to marshal form fields: %w", err)
	}

	query := `
		UPDATE events
		SET name = $1, description = $2, eligibility = $3, start_at = $4, end_at = $5,
		    registration_deadline = $6, location = $7, max_participants = $8, fee = $9,
		    form_fields = $10, updated_at = NOW()
		WHERE id = $11`

	_, err = r.db.ExecContext(ctx, query,
		event.Name,
		event.Description,
		event.Eligibility,
		event.StartAt,
		event.EndAt,
		event.RegistrationDeadline,
		event.Location,
		event.MaxParticipants,
		event.Fee,
		formFields,
		event.ID,
	)

	return err
}

// UpdateStatus applies a status change only if the stored status still
// matches what the caller validated against. A false return means the
// event moved underneath the caller.
func (r *EventRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.EventStatus) (bool, error) {
	query := `UPDATE events SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`

	result, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	return affected > 0, err
}

// Delete removes an event only while it is still a draft.
func (r *EventRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `DELETE FROM events WHERE id = $1 AND status = 'draft'`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	return affected > 0, err
}

// ReserveCapacity atomically claims one registration slot. It is the
// increment-with-ceiling guard against overbooking: a false return
// means the event is full.
func (r *EventRepository) ReserveCapacity(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE events
		SET registered_count = registered_count + 1, updated_at = NOW()
		WHERE id = $1 AND registered_count < max_participants`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	return affected > 0, err
}

// ReleaseCapacity returns a slot after a cancellation or a failed
// registration insert.
func (r *EventRepository) ReleaseCapacity(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE events
		SET registered_count = registered_count - 1, updated_at = NOW()
		WHERE id = $1 AND registered_count > 0`

	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *EventRepository) GetVariants(ctx context.Context, eventID uuid.UUID) ([]models.MerchVariant, error) {
	query := `
		SELECT id, event_id, name, price, stock
		FROM merch_variants
		WHERE event_id = $1
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var variants []models.MerchVariant
	for rows.Next() {
		var variant models.MerchVariant
		err := rows.Scan(&variant.ID, &variant.EventID, &variant.Name, &variant.Price, &variant.Stock)
		if err != nil {
			return nil, err
		}
		variants = append(variants, variant)
	}

	return variants, rows.Err()
}

func (r *EventRepository) GetVariant(ctx context.Context, eventID uuid.UUID, name string) (*models.MerchVariant, error) {
	variant := &models.MerchVariant{}
	query := `
		SELECT id, event_id, name, price, stock
		FROM merch_variants
		WHERE event_id = $1 AND name = $2`

	err := r.db.QueryRowContext(ctx, query, eventID, name).Scan(
		&variant.ID,
		&variant.EventID,
		&variant.Name,
		&variant.Price,
		&variant.Stock,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return variant, err
}
