package product

import (
	"errors"

	"github.com/franckalain/eatsmarty/internal/models"
)

// OutcomeKind classifies the result of a resolution for presentation
type OutcomeKind string

const (
	Found          OutcomeKind = "found"
	NotFound       OutcomeKind = "not_found"
	TransientError OutcomeKind = "transient_error"
	Invalid        OutcomeKind = "invalid"
)

// Outcome classifies the error returned by Resolve. Anything that is neither
// a missing product nor bad input is treated as transient.
func Outcome(err error) OutcomeKind {
	switch {
	case err == nil:
		return Found
	case errors.Is(err, ErrInvalidBarcode):
		return Invalid
	case errors.Is(err, ErrNotFound):
		return NotFound
	default:
		return TransientError
	}
}

// ScanStatus maps the outcome onto the scan log status
func (k OutcomeKind) ScanStatus() models.ScanStatus {
	switch k {
	case Found:
		return models.ScanSucceeded
	case NotFound:
		return models.ScanNotFound
	case TransientError:
		return models.ScanTransientError
	default:
		return models.ScanFailed
	}
}

// Message is the user facing text for a failed resolution
func Message(err error) string {
	switch Outcome(err) {
	case Found:
		return ""
	case Invalid:
		return "Please enter a barcode"
	case NotFound:
		return "Product not found in database"
	default:
		return "Failed to fetch product data"
	}
}
