// Package extract defines the document OCR contract used by the workflow.
package extract

import (
	"context"
	"errors"
	"strings"

	"github.com/m3rciful/insurebot/internal/session"
)

// ErrExtractionFailed reports that the provider answered but a required field
// was missing or empty. Any other error is a transport failure.
var ErrExtractionFailed = errors.New("extract: required field missing")

// Extractor reads structured fields from document photos.
type Extractor interface {
	ExtractPassport(ctx context.Context, image []byte) (session.Passport, error)
	ExtractVehicle(ctx context.Context, image []byte) (session.Vehicle, error)
}

// Document names the kind of photo being processed.
type Document int

const (
	DocumentPassport Document = iota + 1
	DocumentVehicle
)

func (d Document) String() string {
	switch d {
	case DocumentPassport:
		return "passport"
	case DocumentVehicle:
		return "vehicle"
	}
	return "unknown"
}

// Passport validates raw provider values into a record.
func Passport(firstName, lastName string) (session.Passport, error) {
	p := session.Passport{
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
	}
	if p.FirstName == "" || p.LastName == "" {
		return session.Passport{}, ErrExtractionFailed
	}
	return p, nil
}

// Vehicle validates raw provider values into a record.
func Vehicle(vehicleMake, model string) (session.Vehicle, error) {
	v := session.Vehicle{
		Make:  strings.TrimSpace(vehicleMake),
		Model: strings.TrimSpace(model),
	}
	if v.Make == "" || v.Model == "" {
		return session.Vehicle{}, ErrExtractionFailed
	}
	return v, nil
}

// Outcome classifies an extraction error for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrExtractionFailed):
		return "failed"
	}
	return "error"
}
