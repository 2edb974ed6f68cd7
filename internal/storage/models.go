package storage

import (
	"database/sql"
	"time"
)

type Account struct {
	ID                string
	UserID            string
	Name              string
	Type              string
	InitialBalance    string
	UseManualOverride bool
	ManualOverride    sql.NullString
	Deleted           bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Category struct {
	ID     string
	Name   string
	Type   string
	System bool
}

type Entry struct {
	ID                  string
	UserID              string
	Title               string
	Amount              string
	Kind                string
	Schedule            string
	Cadence             string
	Date                string
	StartDate           string
	EndDate             string
	Active              bool
	CategoryID          string
	PaidFromAccountID   string
	ReceivedToAccountID string
	ParentID            string
	RecurrenceGroupID   string
	Role                string
	Completed           bool
	CompletedAt         sql.NullTime
	Deleted             bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
