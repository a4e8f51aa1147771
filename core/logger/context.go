package logger

import (
	"context"
	"log/slog"
	"strconv"
)

type metaKey struct{}

// Meta ties log lines to the Telegram update and the outbound operation
// they were written for. Zero fields are omitted from the output.
type Meta struct {
	RID      string
	UpdateID int
	UserID   int64
	ChatID   int64
	Handler  string
	OpID     string
}

// WithMeta returns ctx carrying m, replacing any Meta already present.
func WithMeta(ctx context.Context, m Meta) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, metaKey{}, m)
}

// MetaFrom returns the Meta stored in ctx, or the zero Meta.
func MetaFrom(ctx context.Context) Meta {
	if ctx == nil {
		return Meta{}
	}
	m, _ := ctx.Value(metaKey{}).(Meta)
	return m
}

// WithHandler names the bot handler serving the update.
func WithHandler(ctx context.Context, name string) context.Context {
	m := MetaFrom(ctx)
	m.Handler = name
	return WithMeta(ctx, m)
}

// WithOpID tags ctx with the id of an OCR or generation call so that its
// start and done lines can be joined.
func WithOpID(ctx context.Context, id string) context.Context {
	m := MetaFrom(ctx)
	m.OpID = id
	return WithMeta(ctx, m)
}

// ChatIDFrom returns the chat the current update belongs to.
func ChatIDFrom(ctx context.Context) int64 {
	return MetaFrom(ctx).ChatID
}

// RID is the correlation id of an update: update, chat and user ids in
// base36 joined by dots.
func RID(updateID int, chatID, userID int64) string {
	return strconv.FormatInt(int64(updateID), 36) + "." +
		strconv.FormatInt(chatID, 36) + "." +
		strconv.FormatInt(userID, 36)
}

func (m Meta) attrs() []slog.Attr {
	var out []slog.Attr
	if m.RID != "" {
		out = append(out, slog.String("rid", m.RID))
	}
	if m.UpdateID != 0 {
		out = append(out, slog.Int("update_id", m.UpdateID))
	}
	if m.UserID != 0 {
		out = append(out, slog.Int64("user_id", m.UserID))
	}
	if m.ChatID != 0 {
		out = append(out, slog.Int64("chat_id", m.ChatID))
	}
	if m.Handler != "" {
		out = append(out, slog.String("handler", m.Handler))
	}
	if m.OpID != "" {
		out = append(out, slog.String("op_id", m.OpID))
	}
	return out
}
