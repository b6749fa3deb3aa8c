// Package notify posts booking events to Telegram chats.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"roombook/internal/model"
	"roombook/internal/slots"
)

type telegramSender interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
}

const (
	queueSize   = 64
	sendTimeout = 10 * time.Second
)

// Telegram sends a message per booking event to every configured chat.
// Events are queued and delivered by Run, so a slow bot API never holds up
// the booking request that raised them.
type Telegram struct {
	tg     telegramSender
	chats  []int64
	loc    *time.Location
	logger zerolog.Logger
	queue  chan string
}

// NewTelegram connects the bot with token. Times are shown in loc.
func NewTelegram(token string, chats []int64, loc *time.Location, logger *zerolog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: sendTimeout})
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return newTelegram(api, chats, loc, logger), nil
}

func newTelegram(tg telegramSender, chats []int64, loc *time.Location, logger *zerolog.Logger) *Telegram {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "notify").Logger()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Telegram{tg: tg, chats: chats, loc: loc, logger: l, queue: make(chan string, queueSize)}
}

// Run delivers queued events until ctx is done, then flushes what is left.
func (t *Telegram) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case text := <-t.queue:
					t.send(text)
				default:
					return
				}
			}
		case text := <-t.queue:
			t.send(text)
		}
	}
}

// BookingCreated announces a new booking.
func (t *Telegram) BookingCreated(room model.Room, b model.Booking, user model.User) {
	t.broadcast(fmt.Sprintf("New booking\nRoom: %s\nDate: %s\nTime: %s-%s (%s)\nBy: %s%s",
		room.Title,
		b.Start.In(t.loc).Format("Mon 02.01.2006"),
		b.Start.In(t.loc).Format("15:04"),
		b.End.In(t.loc).Format("15:04"),
		slots.DurationLabel(b.Duration()),
		displayName(user),
		purposeLine(b.Purpose),
	))
}

// BookingCancelled announces a cancellation. b may only carry the ID when
// the booking was not in the loaded week.
func (t *Telegram) BookingCancelled(room model.Room, b model.Booking, user model.User) {
	if b.Start.IsZero() {
		t.broadcast(fmt.Sprintf("Booking cancelled\nID: %s\nBy: %s", b.ID, displayName(user)))
		return
	}
	t.broadcast(fmt.Sprintf("Booking cancelled\nRoom: %s\nDate: %s\nTime: %s-%s\nBy: %s",
		room.Title,
		b.Start.In(t.loc).Format("Mon 02.01.2006"),
		b.Start.In(t.loc).Format("15:04"),
		b.End.In(t.loc).Format("15:04"),
		displayName(user),
	))
}

func (t *Telegram) broadcast(text string) {
	select {
	case t.queue <- text:
	default:
		t.logger.Warn().Int("queued", len(t.queue)).Msg("notification queue full, dropping event")
	}
}

func (t *Telegram) send(text string) {
	for _, chatID := range t.chats {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := t.tg.Send(msg); err != nil {
			t.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to send notification")
		}
	}
}

func displayName(u model.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.ID
}

func purposeLine(purpose string) string {
	purpose = strings.TrimSpace(purpose)
	if purpose == "" {
		return ""
	}
	return "\nPurpose: " + purpose
}
