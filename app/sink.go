package app

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/ridhan354/xlreminder/core/telegram/helpers"
)

var errBotNotReady = errors.New("telegram bot not started yet")

// telegramSink delivers scheduler output directly through the bot. Sends
// are synchronous so callers can gate follow-up writes (dedup markers) on
// delivery.
type telegramSink struct {
	bot        atomic.Pointer[tele.Bot]
	chunkLimit int
}

func (s *telegramSink) setBot(b *tele.Bot) {
	s.bot.Store(b)
}

// Notify sends an HTML message, chunked on line boundaries.
func (s *telegramSink) Notify(ctx context.Context, chatID int64, html string) error {
	bot := s.bot.Load()
	if bot == nil {
		return errBotNotReady
	}
	to := &tele.User{ID: chatID}
	for _, chunk := range tghelpers.ChunkText(html, s.chunkLimit) {
		if _, err := bot.Send(to, chunk, tele.ModeHTML); err != nil {
			return err
		}
	}
	return nil
}

// SendDocument sends a file attachment with an HTML caption.
func (s *telegramSink) SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error {
	bot := s.bot.Load()
	if bot == nil {
		return errBotNotReady
	}
	doc := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(data)),
		FileName: filename,
		Caption:  caption,
	}
	_, err := bot.Send(&tele.User{ID: chatID}, doc, tele.ModeHTML)
	return err
}
