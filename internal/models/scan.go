package models

import (
	"time"
)

// ScanStatus describes how a scan or resolution attempt ended
type ScanStatus string

const (
	ScanPending        ScanStatus = "pending"
	ScanAbandoned      ScanStatus = "abandoned"
	ScanSucceeded      ScanStatus = "succeeded"
	ScanFailed         ScanStatus = "failed"
	ScanNotFound       ScanStatus = "not_found"
	ScanTransientError ScanStatus = "transient_error"
)

// ScanRecord represents one camera session or lookup. Session rows start
// pending and are updated once the session ends.
type ScanRecord struct {
	ID        string     `json:"id"`
	Barcode   string     `json:"barcode"`
	Source    string     `json:"source"` // "camera", "manual", "session"
	Status    ScanStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
