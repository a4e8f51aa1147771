// Package policy turns a confirmed session into an insurance policy text.
package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/m3rciful/insurebot/internal/session"
)

// ErrGenerationFailed is the errors.Is target of every *GenerationError.
var ErrGenerationFailed = errors.New("policy: generation failed")

// Request carries the confirmed data the policy is written for.
type Request struct {
	HolderName   string
	VehicleMake  string
	VehicleModel string
	Price        int
}

// NewRequest builds a Request from a session with both records present.
func NewRequest(s *session.Session, price int) (Request, error) {
	if s == nil || s.Passport == nil || s.Vehicle == nil {
		return Request{}, errors.New("policy: session is missing passport or vehicle data")
	}
	return Request{
		HolderName:   s.Passport.FullName(),
		VehicleMake:  s.Vehicle.Make,
		VehicleModel: s.Vehicle.Model,
		Price:        price,
	}, nil
}

// BuildPrompt renders the generation prompt for req.
func BuildPrompt(req Request) string {
	return fmt.Sprintf("Instruction: Do not include disclaimers, introductions, or explanations. "+
		"Only output the requested policy content. "+
		"Generate very short insurance policy document on name %s on the vehicle %s made by %s, insurance price is %d",
		req.HolderName, req.VehicleModel, req.VehicleMake, req.Price)
}

// Generator produces the policy text.
type Generator interface {
	GeneratePolicy(ctx context.Context, req Request) (string, error)
}

// GenerationError is a failure reported by the remote text service.
// Body is shown to the user as is.
type GenerationError struct {
	Provider string
	Status   int
	Body     string
}

func (e *GenerationError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s generation failed (%d): %s", e.Provider, e.Status, e.Body)
	}
	return fmt.Sprintf("%s generation failed: %s", e.Provider, e.Body)
}

// Is makes errors.Is(err, ErrGenerationFailed) hold.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// Code reports a stable error code for handler summaries.
func (e *GenerationError) Code() string {
	return "generation_failed"
}
