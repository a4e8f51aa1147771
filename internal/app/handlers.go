package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/m3rciful/insurebot/core/buildinfo"
	"github.com/m3rciful/insurebot/core/logger"
	"github.com/m3rciful/insurebot/core/telegram/callbacks"
	"github.com/m3rciful/insurebot/core/telegram/format"
	"github.com/m3rciful/insurebot/core/telegram/helpers"
	"github.com/m3rciful/insurebot/core/telegram/keyboard"
	"github.com/m3rciful/insurebot/internal/flow"

	tele "gopkg.in/telebot.v4"
)

const (
	photoTooLargeText = "Sorry, the photo is too large.\nPlease send a smaller one"
	documentText      = "Please send the document as a photo, not as a file"
	slowDownText      = "You are sending messages too fast. Please wait a moment"
	adminOnlyText     = "This command is only available to the bot administrator"
)

var errPhotoTooLarge = errors.New("photo exceeds size limit")

func (a *App) handleCommand(cmd flow.Command) tele.HandlerFunc {
	return func(c tele.Context) error {
		chatID, ok := helpers.ChatID(c)
		if !ok {
			return nil
		}
		return a.send(c, a.machine.HandleCommand(helpers.Context(c), chatID, cmd))
	}
}

// handleText answers any non-command text with the menu.
func (a *App) handleText(c tele.Context) error {
	return a.handleCommand(flow.ParseCommand(c.Text()))(c)
}

func (a *App) handlePhoto(c tele.Context) error {
	chatID, ok := helpers.ChatID(c)
	if !ok {
		return nil
	}
	ctx := helpers.Context(c)

	image, err := a.downloadPhoto(c, c.Message().Photo)
	if errors.Is(err, errPhotoTooLarge) {
		logger.Warn(ctx, logger.ComponentApp, "photo.rejected",
			slog.String("status", "skip"),
			slog.String("reason", "too_large"),
			slog.Int64("limit", a.cfg.Bot.MaxPhotoBytes),
		)
		return a.send(c, flow.Reply{Text: photoTooLargeText})
	}
	if err != nil {
		return err
	}

	replies, err := a.machine.HandlePhoto(ctx, chatID, image)
	if err != nil {
		return err
	}
	return a.sendAll(c, replies)
}

func (a *App) handleCallback(cb flow.Callback) tele.HandlerFunc {
	return func(c tele.Context) error {
		chatID, ok := helpers.ChatID(c)
		if !ok {
			return nil
		}
		ctx := helpers.Context(c)
		if err := helpers.ClearInlineKeyboard(c); err != nil {
			logger.Warn(ctx, logger.ComponentApp, "keyboard.clear_failed",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}

		var notifyErr error
		replies, err := a.machine.HandleCallback(ctx, chatID, cb, func(r flow.Reply) {
			if err := a.send(c, r); err != nil && notifyErr == nil {
				notifyErr = err
			}
		})
		sendErr := a.sendAll(c, replies)
		return errors.Join(err, notifyErr, sendErr)
	}
}

// handleDocument answers photos sent as files; the flow reads photos only.
func (a *App) handleDocument(c tele.Context) error {
	return helpers.SendHTML(c, documentText)
}

// handleLimited answers updates dropped by the rate limiter. Buttons get a
// toast so the chat stays clean.
func (a *App) handleLimited(c tele.Context) error {
	if c.Callback() != nil {
		return callbacks.Answer(c, &tele.CallbackResponse{Text: slowDownText})
	}
	return helpers.SendHTML(c, slowDownText)
}

func (a *App) handleAdminOnly(c tele.Context) error {
	return helpers.SendHTML(c, adminOnlyText)
}

func (a *App) handleStats(c tele.Context) error {
	st := a.machine.Stats()
	var failures uint64
	if d := a.dispatcher.Load(); d != nil {
		failures = d.Failures()
	}
	text := format.Lines(
		format.Heading("Bot stats"),
		format.Field("Sessions", strconv.Itoa(st.Sessions)),
		format.Field("Price", strconv.Itoa(st.Price)+"$"),
		format.Field("Send failures", strconv.FormatUint(failures, 10)),
		format.Field("Uptime", time.Since(a.startedAt).Round(time.Second).String()),
		format.Field("Version", buildinfo.String()),
	)
	return helpers.SendHTML(c, text)
}

func (a *App) downloadPhoto(c tele.Context, photo *tele.Photo) ([]byte, error) {
	if photo == nil {
		return nil, fmt.Errorf("app: message has no photo")
	}
	limit := a.cfg.Bot.MaxPhotoBytes
	if limit > 0 && photo.FileSize > limit {
		return nil, errPhotoTooLarge
	}
	data, err := a.fetch(c, &photo.File, limit)
	if err != nil {
		return nil, fmt.Errorf("app: download photo: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, errPhotoTooLarge
	}
	return data, nil
}

// downloadFile reads at most one byte past limit so oversized files are
// detected without buffering them whole.
func downloadFile(c tele.Context, f *tele.File, limit int64) ([]byte, error) {
	rc, err := c.Bot().File(f)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	if limit <= 0 {
		return io.ReadAll(rc)
	}
	return io.ReadAll(io.LimitReader(rc, limit+1))
}

func (a *App) sendAll(c tele.Context, replies []flow.Reply) error {
	var errs []error
	for _, r := range replies {
		if err := a.send(c, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) send(c tele.Context, r flow.Reply) error {
	if r.Text == "" {
		return nil
	}
	if len(r.Buttons) == 0 {
		return helpers.SendHTML(c, r.Text)
	}
	return helpers.SendHTML(c, r.Text, inlineMarkup(r.Buttons))
}

func inlineMarkup(buttons []flow.Button) *tele.ReplyMarkup {
	btns := make([]keyboard.Button, 0, len(buttons))
	for _, b := range buttons {
		btns = append(btns, keyboard.Button{Text: b.Text, Key: b.Callback.Key()})
	}
	return keyboard.Column(btns...)
}
