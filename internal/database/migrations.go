package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createEventsTable,
		createMerchVariantsTable,
		createRegistrationsTable,
		createActiveRegistrationIndex,
		createRegistrationEventIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createEventsTable = `
CREATE EXTENSION IF NOT EXISTS "uuid-ossp";
CREATE TABLE IF NOT EXISTS events (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    organizer_id UUID NOT NULL,
    name VARCHAR(500) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    type VARCHAR(20) NOT NULL,
    eligibility VARCHAR(255) NOT NULL DEFAULT '',
    start_at TIMESTAMP NOT NULL,
    end_at TIMESTAMP NOT NULL,
    registration_deadline TIMESTAMP,
    location VARCHAR(255) NOT NULL DEFAULT '',
    max_participants INTEGER NOT NULL,
    fee BIGINT NOT NULL DEFAULT 0,
    status VARCHAR(20) NOT NULL DEFAULT 'draft',
    form_fields JSONB NOT NULL DEFAULT '[]',
    registered_count INTEGER NOT NULL DEFAULT 0,
    attendance_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (type IN ('normal', 'merchandise')),
    CHECK (status IN ('draft', 'published', 'ongoing', 'closed')),
    CHECK (max_participants >= 1),
    CHECK (fee >= 0),
    CHECK (registered_count >= 0 AND registered_count <= max_participants),
    CHECK (attendance_count >= 0)
);`

const createMerchVariantsTable = `
CREATE TABLE IF NOT EXISTS merch_variants (
    id SERIAL PRIMARY KEY,
    event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    name VARCHAR(255) NOT NULL,
    price BIGINT NOT NULL DEFAULT 0,
    stock INTEGER NOT NULL DEFAULT 0,

    UNIQUE(event_id, name),
    CHECK (price >= 0),
    CHECK (stock >= 0)
);`

const createRegistrationsTable = `
CREATE TABLE IF NOT EXISTS registrations (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    event_id UUID NOT NULL REFERENCES events(id),
    participant_id UUID NOT NULL,
    participant_name VARCHAR(255) NOT NULL,
    participant_email VARCHAR(255) NOT NULL,
    type VARCHAR(20) NOT NULL,
    responses JSONB NOT NULL DEFAULT '[]',
    variant_name VARCHAR(255) NOT NULL DEFAULT '',
    quantity INTEGER NOT NULL DEFAULT 0,
    total_amount BIGINT NOT NULL DEFAULT 0,
    status VARCHAR(20) NOT NULL DEFAULT 'registered',
    payment_status VARCHAR(20) NOT NULL DEFAULT 'not_required',
    proof_ref VARCHAR(512),
    proof_uploaded_at TIMESTAMP,
    approval_notes TEXT,
    approved_by UUID,
    approved_at TIMESTAMP,
    ticket TEXT,
    attended_at TIMESTAMP,
    scanned_by UUID,
    manual_override BOOLEAN NOT NULL DEFAULT FALSE,
    override_reason TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (type IN ('normal', 'merchandise')),
    CHECK (status IN ('registered', 'attended', 'cancelled')),
    CHECK (payment_status IN ('not_required', 'pending', 'pending_approval', 'approved', 'rejected')),
    CHECK (quantity >= 0),
    CHECK (total_amount >= 0)
);`

// The partial unique index is the authoritative duplicate-registration
// backstop: the pre-check in the service can race, this cannot.
const createActiveRegistrationIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS registrations_active_participant_idx
ON registrations (event_id, participant_id)
WHERE status <> 'cancelled';`

const createRegistrationEventIndex = `
CREATE INDEX IF NOT EXISTS registrations_event_idx
ON registrations (event_id, status);`
