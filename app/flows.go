package app

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/ridhan354/xlreminder/core/telegram/format"
	tghelpers "github.com/ridhan354/xlreminder/core/telegram/helpers"
	"github.com/ridhan354/xlreminder/core/telegram/state"
	"github.com/ridhan354/xlreminder/sched"
	"github.com/ridhan354/xlreminder/storage"
	"github.com/ridhan354/xlreminder/xl"
)

// Conversation states. Each one waits for a single text message or, for
// restore, a document upload.
const (
	stateAwaitNewNumber    state.State = "add_number"
	stateAwaitNewLabel     state.State = "add_label"
	stateAwaitSearchTerm   state.State = "search_term"
	stateAwaitEditLabel    state.State = "edit_label"
	stateAwaitReminderHour state.State = "reminder_hour"
	stateAwaitRestoreFile  state.State = "restore_file"
)

const (
	tempAddMSISDN  = "add_msisdn"
	tempEditMSISDN = "edit_msisdn"
)

const maxLabelLen = 32

func (a *App) registerFlows() {
	state.RegisterHandler(stateAwaitNewNumber, a.flowNewNumber)
	state.RegisterHandler(stateAwaitNewLabel, a.flowNewLabel)
	state.RegisterHandler(stateAwaitSearchTerm, a.flowSearchTerm)
	state.RegisterHandler(stateAwaitEditLabel, a.flowEditLabel)
	state.RegisterHandler(stateAwaitReminderHour, a.flowReminderHour)
	state.RegisterHandler(stateAwaitRestoreFile, a.flowRestoreFile)
}

func trimLabel(text string) string {
	label := strings.TrimSpace(text)
	if r := []rune(label); len(r) > maxLabelLen {
		label = string(r[:maxLabelLen])
	}
	return label
}

func (a *App) flowNewNumber(c tele.Context) error {
	msisdn, ok := xl.NormalizeMSISDN(c.Text())
	if !ok {
		return tghelpers.SendHTML(c, "Format nomor tidak valid. Contoh: <b>0819xxxxxxx</b>")
	}
	userID := c.Sender().ID
	a.fsm.SetTemp(userID, tempAddMSISDN, msisdn)
	a.fsm.SetState(userID, stateAwaitNewLabel)
	return tghelpers.SendHTML(c,
		fmt.Sprintf("Bagus. Beri <b>label/nama</b> untuk <code>%s</code> (misal: <i>IWAN</i>).", msisdn))
}

func (a *App) flowNewLabel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID
	raw, ok := a.fsm.GetTemp(userID, tempAddMSISDN)
	msisdn, _ := raw.(string)
	if !ok || msisdn == "" {
		a.fsm.Clear(userID)
		return tghelpers.SendHTML(c, "🏠 <b>Menu Utama</b>", a.mainMenu(ctx, userID))
	}
	label := trimLabel(c.Text())
	if label == "" {
		label = storage.DefaultLabel
	}

	msg := "Nomor berhasil didaftarkan."
	_, err := a.numbers.Create(ctx, userID, msisdn, label)
	switch {
	case errors.Is(err, storage.ErrDuplicateMSISDN):
		msg = "Nomor sudah terdaftar."
	case err != nil:
		return err
	}

	// First lookup right away so the overview has something to show.
	res := a.refresher.RefreshOne(ctx, msisdn)
	note := "✅ Data awal diambil."
	if !res.Success {
		note = "⚠️ " + format.Escape(res.Message)
	}

	a.fsm.Clear(userID)
	return tghelpers.SendHTML(c,
		fmt.Sprintf("%s\n%s\n\nKembali ke menu utama:", msg, note),
		a.mainMenu(ctx, userID))
}

func (a *App) flowSearchTerm(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID
	term := strings.TrimSpace(c.Text())
	if err := a.prefs.SetSearchQuery(ctx, userID, term); err != nil {
		return err
	}
	a.fsm.Clear(userID)
	return tghelpers.SendHTMLChunks(c, a.overviewText(ctx, userID), a.cfg.MessageChunk, a.mainMenu(ctx, userID))
}

func (a *App) flowEditLabel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID
	raw, ok := a.fsm.GetTemp(userID, tempEditMSISDN)
	msisdn, _ := raw.(string)
	if !ok || msisdn == "" {
		a.fsm.Clear(userID)
		return tghelpers.SendHTML(c, "🏠 <b>Menu Utama</b>", a.mainMenu(ctx, userID))
	}
	if err := a.numbers.UpdateLabel(ctx, userID, msisdn, trimLabel(c.Text())); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	a.fsm.Clear(userID)
	return tghelpers.SendHTML(c, "✅ Nama diperbarui.", a.mainMenu(ctx, userID))
}

func (a *App) flowReminderHour(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID
	hour, err := strconv.Atoi(strings.TrimSpace(c.Text()))
	if err != nil {
		return tghelpers.SendText(c, "Masukkan angka 0-23.")
	}
	if hour < 0 {
		hour = 0
	}
	if hour > 23 {
		hour = 23
	}
	if err := a.prefs.SetReminderHour(ctx, userID, hour); err != nil {
		return err
	}
	a.fsm.Clear(userID)
	return tghelpers.SendHTML(c,
		fmt.Sprintf("Jam reminder diset ke %s WIB.", fmtHour(hour)),
		a.mainMenu(ctx, userID))
}

func (a *App) flowRestoreFile(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID
	if !a.cfg.IsAdmin(userID) {
		a.fsm.Clear(userID)
		return nil
	}
	doc := c.Message().Document
	if doc == nil {
		return tghelpers.SendHTML(c, "❌ Harap kirim file .json / .json.gz.")
	}
	fn := doc.FileName
	if !strings.HasSuffix(fn, ".json") && !strings.HasSuffix(fn, ".json.gz") {
		return tghelpers.SendHTML(c, "❌ Ekstensi tidak dikenal. Kirim .json atau .json.gz.")
	}

	rc, err := c.Bot().File(&doc.File)
	if err != nil {
		return fmt.Errorf("download backup: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}

	backup, err := sched.ParseBackup(data)
	if err != nil {
		return tghelpers.SendHTML(c, fmt.Sprintf("❌ File tidak valid: <i>%s</i>", format.Escape(err.Error())))
	}
	recs := make([]storage.NumberRecord, 0, len(backup))
	for _, br := range backup {
		recs = append(recs, storage.NumberRecord{
			OwnerID:            br.OwnerID,
			MSISDN:             br.MSISDN,
			Label:              br.Label,
			LastFetchTS:        br.LastFetchTS,
			LastPayload:        []byte(br.LastPayload),
			LastError:          br.LastError,
			NextRetryTS:        br.NextRetryTS,
			LastNotifiedType:   br.LastNotifiedType,
			LastNotifiedExpiry: br.LastNotifiedExpiry,
			LastNotifiedAt:     br.LastNotifiedAt,
		})
	}
	inserted, err := a.numbers.Import(ctx, recs)
	if err != nil {
		return err
	}
	a.fsm.Clear(userID)
	return tghelpers.SendHTML(c,
		fmt.Sprintf("✅ Restore selesai. %d nomor dimuat, %d dilewati.", inserted, len(recs)-inserted),
		a.mainMenu(ctx, userID))
}
