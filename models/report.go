package models

import "time"

// ReportStatus represents where a report is in the triage workflow.
type ReportStatus string

const (
	ReportStatusSubmitted  ReportStatus = "submitted"
	ReportStatusAssigned   ReportStatus = "assigned"
	ReportStatusInProgress ReportStatus = "in_progress"
	ReportStatusResolved   ReportStatus = "resolved"
)

// Report is a geolocated issue submitted by a user.
// UserID is the owner and never changes; AssignedWorkerID references a worker (nullable).
type Report struct {
	ID               int64        `db:"id" json:"id"`
	UserID           int64        `db:"user_id" json:"user_id"`
	Category         string       `db:"category" json:"category"`
	Photo            *string      `db:"photo" json:"photo"`
	Location         *string      `db:"location" json:"location,omitempty"`
	Latitude         *float64     `db:"latitude" json:"latitude,omitempty"`
	Longitude        *float64     `db:"longitude" json:"longitude,omitempty"`
	Description      *string      `db:"description" json:"description,omitempty"`
	Status           ReportStatus `db:"status" json:"status"`
	AssignedWorkerID *int64       `db:"assigned_worker_id" json:"assigned_worker_id,omitempty"`
	AdminNotes       *string      `db:"admin_notes" json:"admin_notes,omitempty"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at" json:"updated_at"`
}
