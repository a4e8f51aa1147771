// Package flow drives the per-chat insurance workflow: photo extraction,
// confirmation buttons, payment agreement and policy generation.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/insurebot/core/logger"
	"github.com/m3rciful/insurebot/core/telegram/format"
	"github.com/m3rciful/insurebot/internal/extract"
	"github.com/m3rciful/insurebot/internal/policy"
	"github.com/m3rciful/insurebot/internal/session"
)

// DefaultPrice is the insurance price when none is configured.
const DefaultPrice = 100

// Config wires the collaborators of a Machine.
type Config struct {
	Store     session.Store
	Extractor extract.Extractor
	Generator policy.Generator
	Price     int
}

// Machine applies chat events to sessions and renders the replies.
//
// Calls for the same chat must not run concurrently; hold Store.Lock for the
// chat around each call.
type Machine struct {
	store     session.Store
	extractor extract.Extractor
	generator policy.Generator
	price     int
}

// Stats is a snapshot for the admin command.
type Stats struct {
	Sessions int
	Price    int
}

// New validates cfg.
func New(cfg Config) (*Machine, error) {
	switch {
	case cfg.Store == nil:
		return nil, errors.New("flow: nil session store")
	case cfg.Extractor == nil:
		return nil, errors.New("flow: nil extractor")
	case cfg.Generator == nil:
		return nil, errors.New("flow: nil policy generator")
	}
	price := cfg.Price
	if price <= 0 {
		price = DefaultPrice
	}
	return &Machine{
		store:     cfg.Store,
		extractor: cfg.Extractor,
		generator: cfg.Generator,
		price:     price,
	}, nil
}

// HandlePhoto extracts the document the session is waiting for. Photos that
// arrive while data is pending confirmation or already confirmed are refused
// without touching the session. Errors other than a failed extraction are
// returned with the session unchanged.
func (m *Machine) HandlePhoto(ctx context.Context, chatID int64, image []byte) ([]Reply, error) {
	sess := m.store.GetOrCreate(chatID)
	from := sess.State()

	switch from {
	case session.AwaitingPassportPhoto:
		p, err := m.extractor.ExtractPassport(ctx, image)
		if errors.Is(err, extract.ErrExtractionFailed) {
			m.logPhoto(ctx, from, "failed", slog.String("document", extract.DocumentPassport.String()))
			return []Reply{msg(notProcessedText)}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("flow: extract passport: %w", err)
		}
		sess.Passport = &p
		sess.PassportConfirmed = false
		m.logTransition(ctx, "photo", from, sess.State())
		return []Reply{passportReply(p)}, nil

	case session.AwaitingVehiclePhoto:
		v, err := m.extractor.ExtractVehicle(ctx, image)
		if errors.Is(err, extract.ErrExtractionFailed) {
			m.logPhoto(ctx, from, "failed", slog.String("document", extract.DocumentVehicle.String()))
			return []Reply{msg(notProcessedText)}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("flow: extract vehicle: %w", err)
		}
		sess.Vehicle = &v
		sess.VehicleConfirmed = false
		m.logTransition(ctx, "photo", from, sess.State())
		return []Reply{vehicleReply(v)}, nil
	}

	m.logPhoto(ctx, from, "", slog.String("reason", "already_collected"))
	return []Reply{msg(alreadyCollectedText)}, nil
}

// HandleCallback applies a button press. A button that does not fit the
// current state gets the unknown reply and changes nothing.
//
// When the press completes the workflow the policy is generated right away.
// Replies produced before generation are handed to notify first, if set, so
// the user sees them while the generator runs; the rest are returned.
func (m *Machine) HandleCallback(ctx context.Context, chatID int64, cb Callback, notify func(Reply)) ([]Reply, error) {
	sess := m.store.GetOrCreate(chatID)
	from := sess.State()

	reply, applied := m.apply(sess, cb)
	replies := []Reply{reply}
	to := sess.State()
	if !applied {
		logger.Debug(ctx, logger.ComponentFlow, "flow.callback.ignored",
			slog.String("status", "skip"),
			slog.String("cb_key", cb.Key()),
			slog.String("state", from.String()),
		)
		return replies, nil
	}
	m.logTransition(ctx, cb.Key(), from, to)

	switch {
	case to == session.AwaitingPaymentDecision:
		replies = append(replies, paymentPrompt(m.price))
	case to == session.Completed && from != session.Completed:
		if notify != nil {
			for _, r := range replies {
				notify(r)
			}
			replies = nil
		}
		r, err := m.generate(ctx, sess)
		if err != nil {
			return replies, err
		}
		replies = append(replies, r)
	}
	return replies, nil
}

func (m *Machine) apply(sess *session.Session, cb Callback) (Reply, bool) {
	state := sess.State()
	switch cb {
	case PassportCorrect, PassportIncorrect:
		if state != session.AwaitingPassportConfirmation {
			break
		}
		if cb == PassportCorrect {
			sess.PassportConfirmed = true
			return msg(passportConfirmedText), true
		}
		sess.Passport = nil
		sess.PassportConfirmed = false
		return msg(passportRejectedText), true

	case VehicleCorrect, VehicleIncorrect:
		if state != session.AwaitingVehicleConfirmation {
			break
		}
		if cb == VehicleCorrect {
			sess.VehicleConfirmed = true
			return msg(vehicleConfirmedText), true
		}
		sess.Vehicle = nil
		sess.VehicleConfirmed = false
		return msg(vehicleRejectedText), true

	case PaymentAgreed, PaymentDisagreed:
		if state != session.AwaitingPaymentDecision {
			break
		}
		if cb == PaymentAgreed {
			sess.PaymentConfirmed = true
			return msg(paymentConfirmedText), true
		}
		return msg(fmt.Sprintf(paymentDisagreedFormat, m.price)), true
	}
	return msg(unknownCallbackText), false
}

func (m *Machine) generate(ctx context.Context, sess *session.Session) (Reply, error) {
	req, err := policy.NewRequest(sess, m.price)
	if err != nil {
		return Reply{}, fmt.Errorf("flow: %w", err)
	}
	out, err := m.generator.GeneratePolicy(ctx, req)
	var genErr *policy.GenerationError
	switch {
	case errors.As(err, &genErr):
		return msg(format.EscapeHTML(genErr.Body)), nil
	case err != nil:
		return Reply{}, fmt.Errorf("flow: generate policy: %w", err)
	case strings.TrimSpace(out) == "":
		return msg(emptyPolicyText), nil
	}
	return msg(format.EscapeHTML(out)), nil
}

// HandleCommand renders the fixed command replies; /restart resets the session.
func (m *Machine) HandleCommand(ctx context.Context, chatID int64, cmd Command) Reply {
	switch cmd {
	case CommandStart:
		return msg(startText)
	case CommandSend:
		return msg(sendText)
	case CommandRestart:
		from := m.store.GetOrCreate(chatID).State()
		m.store.Reset(chatID)
		m.logTransition(ctx, cmd.String(), from, session.AwaitingPassportPhoto)
		return msg(restartText)
	}
	return msg(usageText)
}

// Stats reports the tracked session count.
func (m *Machine) Stats() Stats {
	return Stats{Sessions: m.store.Len(), Price: m.price}
}

// Price is the configured insurance price.
func (m *Machine) Price() int { return m.price }

func (m *Machine) logTransition(ctx context.Context, cause string, from, to session.State) {
	logger.Info(ctx, logger.ComponentFlow, "flow.transition",
		slog.String("status", "ok"),
		slog.String("cause", cause),
		slog.String("from_state", from.String()),
		slog.String("to_state", to.String()),
	)
}

func (m *Machine) logPhoto(ctx context.Context, state session.State, outcome string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("status", "skip"),
		slog.String("state", state.String()),
	}
	if outcome != "" {
		attrs = append(attrs, slog.String("outcome", outcome))
	}
	logger.Info(ctx, logger.ComponentFlow, "flow.photo", append(attrs, extra...)...)
}
