// Package notify sends case status change notifications through Telegram.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/caarlos0/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/multierr"

	"github.com/Norgate-AV/casewatch/internal/tracker"
)

const (
	// MaxMessageLength is the Telegram limit for a text message
	MaxMessageLength = 4096

	// Ellipsis marks a truncated message
	Ellipsis = ".."
)

// Sender delivers a single Telegram message. *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram notifies a single chat about changed cases
type Telegram struct {
	sender    Sender
	chatID    string
	maxLength int
	failFast  bool
	log       *log.Logger
}

// Option configures a Telegram notifier
type Option func(*Telegram)

// WithMaxLength overrides the message length ceiling
func WithMaxLength(n int) Option {
	return func(t *Telegram) {
		t.maxLength = n
	}
}

// WithFailFast stops sending at the first failed message
func WithFailFast(failFast bool) Option {
	return func(t *Telegram) {
		t.failFast = failFast
	}
}

// NewTelegram creates a notifier for chatID, which is either a numeric chat
// id or a public channel username such as "@mychannel".
func NewTelegram(sender Sender, chatID string, logger *log.Logger, opts ...Option) *Telegram {
	t := &Telegram{
		sender:    sender,
		chatID:    chatID,
		maxLength: MaxMessageLength,
		log:       logger,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// NewBot connects to the Bot API with token. endpoint is a format string
// such as tgbotapi.APIEndpoint; client carries the HTTP transport.
func NewBot(token, endpoint string, client tgbotapi.HTTPClient) (*tgbotapi.BotAPI, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}

	return bot, nil
}

// Notify sends one message per changed update, in order. Updates that are
// not flagged as changed are ignored. A failed message does not stop the
// remaining ones unless fail-fast is set; all failures are returned together.
func (t *Telegram) Notify(ctx context.Context, updates []tracker.Update) error {
	var errs error

	for _, u := range tracker.Changed(updates) {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}

		text := Truncate(Message(u), t.maxLength)
		t.log.WithField("receipt", u.Receipt).Info(text)

		if _, err := t.sender.Send(t.newMessage(text)); err != nil {
			err = fmt.Errorf("failed to send notification for %s: %w", u.Receipt, err)
			t.log.WithError(err).Error("notification failed")
			errs = multierr.Append(errs, err)

			if t.failFast {
				return errs
			}
		}
	}

	return errs
}

func (t *Telegram) newMessage(text string) tgbotapi.MessageConfig {
	if id, err := strconv.ParseInt(t.chatID, 10, 64); err == nil {
		return tgbotapi.NewMessage(id, text)
	}

	return tgbotapi.NewMessageToChannel(t.chatID, text)
}

// Message renders the notification text for an update
func Message(u tracker.Update) string {
	return fmt.Sprintf("Immigration Update! USCIS case %s changed.\n\n%s\n\n%s", u.Receipt, u.Status, u.Description)
}

// Truncate shortens msg so it never exceeds limit runes. Anything longer than
// limit minus the ellipsis is cut and ends in the ellipsis, which means a
// message of exactly limit runes is also shortened.
func Truncate(msg string, limit int) string {
	keep := limit - utf8.RuneCountInString(Ellipsis)
	if keep < 0 || utf8.RuneCountInString(msg) <= keep {
		return msg
	}

	var b strings.Builder
	n := 0
	for _, r := range msg {
		if n == keep {
			break
		}

		b.WriteRune(r)
		n++
	}

	b.WriteString(Ellipsis)

	return b.String()
}
