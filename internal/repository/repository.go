package repository

import (
	"felicity/internal/database"
)

type Repositories struct {
	Events        *EventRepository
	Registrations *RegistrationRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Events:        NewEventRepository(db),
		Registrations: NewRegistrationRepository(db),
	}
}
