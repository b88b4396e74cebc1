package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/ridhan354/xlreminder/core/logger"
	"github.com/ridhan354/xlreminder/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func currentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	disp := currentDispatcher()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	if err := disp.Enqueue(ctx, action, endpoint, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

// SendText sends raw text (no parse mode) to the current recipient.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var sendOpts *tele.SendOptions
	if len(opts) > 0 {
		sendOpts = opts[0]
	}
	return sendAsync(c, "send.text", "sendMessage", func() error {
		if sendOpts != nil {
			return c.Send(text, sendOpts)
		}
		return c.Send(text)
	})
}

// SendHTML sends a message with HTML parse mode and optional reply markup.
func SendHTML(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: rm}
	return SendText(c, text, opts)
}

// EditHTML edits a message with HTML parse mode and optional reply markup.
func EditHTML(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	return c.Edit(text, &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: rm})
}

// EditOrSendHTML tries to edit the message (HTML) or sends a new one if edit fails.
func EditOrSendHTML(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	return c.EditOrSend(text, &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: rm})
}

// SendHTMLChunks splits text on line boundaries at the given limit and sends
// every chunk in order. The reply markup, when provided, is attached to the
// first chunk only so the keyboard stays next to the leading message.
func SendHTMLChunks(c tele.Context, text string, limit int, markup ...*tele.ReplyMarkup) error {
	chunks := ChunkText(text, limit)
	for i, chunk := range chunks {
		var err error
		if i == 0 {
			err = SendHTML(c, chunk, markup...)
		} else {
			err = SendHTML(c, chunk)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// EditOrSendHTMLChunks edits the current message with the first chunk and
// sends the remaining chunks as follow-up messages.
func EditOrSendHTMLChunks(c tele.Context, text string, limit int, markup ...*tele.ReplyMarkup) error {
	chunks := ChunkText(text, limit)
	if len(chunks) == 0 {
		return EditOrSendHTML(c, text, markup...)
	}
	if err := EditOrSendHTML(c, chunks[0], markup...); err != nil {
		return err
	}
	for _, chunk := range chunks[1:] {
		if err := SendHTML(c, chunk); err != nil {
			return err
		}
	}
	return nil
}
