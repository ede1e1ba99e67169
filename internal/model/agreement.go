package model

import "time"

// AgreementStatus records how the house agreement was handled for a visit.
type AgreementStatus string

const (
	AgreementSigned   AgreementStatus = "SIGNED"
	AgreementBypassed AgreementStatus = "BYPASSED"
)

// Valid reports whether s is a known agreement status.
func (s AgreementStatus) Valid() bool {
	return s == AgreementSigned || s == AgreementBypassed
}

// Agreement is captured at most once per visit.
type Agreement struct {
	ID         string          `json:"id"`
	VisitID    string          `json:"visit_id"`
	Status     AgreementStatus `json:"status"`
	Method     string          `json:"method"`
	Metadata   map[string]any  `json:"metadata"`
	StaffID    *string         `json:"staff_id"`
	CapturedAt time.Time       `json:"captured_at"`
}
