package model

import "time"

// VisitStatus is the lifecycle state of a visit.  CLOSED is terminal.
type VisitStatus string

const (
	VisitActive VisitStatus = "ACTIVE"
	VisitClosed VisitStatus = "CLOSED"
)

// Allowed renewal lengths in minutes.
const (
	RenewalShortMinutes = 120
	RenewalLongMinutes  = 360
)

// Visit is a single customer's time-boxed stay.
//
// Fields:
//
//	PlannedEndAt            – StartedAt + initial + renewal total.
//	InitialDurationMinutes  – length granted at open.
//	MaxTotalDurationMinutes – ceiling for initial + renewals.
//	RenewalTotalMinutes     – sum of all renewals so far.
type Visit struct {
	ID                      string      `json:"id"`
	CustomerID              string      `json:"customer_id"`
	Status                  VisitStatus `json:"status"`
	StartedAt               time.Time   `json:"started_at"`
	PlannedEndAt            time.Time   `json:"planned_end_at"`
	ClosedAt                *time.Time  `json:"closed_at"`
	InitialDurationMinutes  int         `json:"initial_duration_minutes"`
	MaxTotalDurationMinutes int         `json:"max_total_duration_minutes"`
	RenewalTotalMinutes     int         `json:"renewal_total_minutes"`
	CreatedAt               time.Time   `json:"created_at"`
	UpdatedAt               time.Time   `json:"updated_at"`
}

// TotalMinutes is the currently granted stay length.
func (v Visit) TotalMinutes() int {
	return v.InitialDurationMinutes + v.RenewalTotalMinutes
}

// VisitRenewal records one extension of a visit.
type VisitRenewal struct {
	ID                 string    `json:"id"`
	VisitID            string    `json:"visit_id"`
	DurationMinutes    int       `json:"duration_minutes"`
	PreviousPlannedEnd time.Time `json:"previous_planned_end_at"`
	NewPlannedEnd      time.Time `json:"new_planned_end_at"`
	CreatedByStaffID   *string   `json:"created_by_staff_id"`
	CreatedAt          time.Time `json:"created_at"`
}

// Customer is the minimal customer record visits refer to.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
