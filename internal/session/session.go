// Package session keeps the per-chat insurance workflow state in memory.
package session

// Passport holds the fields read from a passport photo.
type Passport struct {
	FirstName string
	LastName  string
}

// FullName joins first and last name with a space.
func (p Passport) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Vehicle holds the fields read from a vehicle registration photo.
type Vehicle struct {
	Make  string
	Model string
}

// Session is the workflow record of one chat.
//
// PassportConfirmed implies Passport != nil, VehicleConfirmed implies
// Vehicle != nil, and PaymentConfirmed implies both confirmations.
type Session struct {
	Passport *Passport
	Vehicle  *Vehicle

	PassportConfirmed bool
	VehicleConfirmed  bool
	PaymentConfirmed  bool
}

// State is the workflow position derived from the session fields.
type State int

const (
	AwaitingPassportPhoto State = iota
	AwaitingPassportConfirmation
	AwaitingVehiclePhoto
	AwaitingVehicleConfirmation
	AwaitingPaymentDecision
	Completed
)

var stateNames = [...]string{
	AwaitingPassportPhoto:        "awaiting_passport_photo",
	AwaitingPassportConfirmation: "awaiting_passport_confirmation",
	AwaitingVehiclePhoto:         "awaiting_vehicle_photo",
	AwaitingVehicleConfirmation:  "awaiting_vehicle_confirmation",
	AwaitingPaymentDecision:      "awaiting_payment_decision",
	Completed:                    "completed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// State derives the current workflow position.
func (s *Session) State() State {
	switch {
	case s.Passport == nil:
		return AwaitingPassportPhoto
	case !s.PassportConfirmed:
		return AwaitingPassportConfirmation
	case s.Vehicle == nil:
		return AwaitingVehiclePhoto
	case !s.VehicleConfirmed:
		return AwaitingVehicleConfirmation
	case !s.PaymentConfirmed:
		return AwaitingPaymentDecision
	}
	return Completed
}

// Valid reports whether the confirmation flags are consistent with the data.
func (s *Session) Valid() bool {
	if s.PassportConfirmed && s.Passport == nil {
		return false
	}
	if s.VehicleConfirmed && s.Vehicle == nil {
		return false
	}
	if s.PaymentConfirmed && !(s.PassportConfirmed && s.VehicleConfirmed) {
		return false
	}
	return true
}

// Clone returns a deep copy safe to read outside the chat lock.
func (s *Session) Clone() Session {
	out := *s
	if s.Passport != nil {
		p := *s.Passport
		out.Passport = &p
	}
	if s.Vehicle != nil {
		v := *s.Vehicle
		out.Vehicle = &v
	}
	return out
}

func (s *Session) reset() {
	*s = Session{}
}
