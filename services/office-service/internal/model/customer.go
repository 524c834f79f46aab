package model

import "time"

type Customer struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Note      string
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

type TreatmentType struct {
	ID              string
	Name            string
	DurationMinutes int
	PriceCents      int64
	Description     string
	Active          bool
	CreatedAt       time.Time
}

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}
