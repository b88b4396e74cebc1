package app

import (
	"errors"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"

	coretelegram "github.com/ridhan354/xlreminder/core/telegram"
	"github.com/ridhan354/xlreminder/core/telegram/callbacks"
	"github.com/ridhan354/xlreminder/core/telegram/commands"
	"github.com/ridhan354/xlreminder/core/telegram/format"
	tghelpers "github.com/ridhan354/xlreminder/core/telegram/helpers"
	"github.com/ridhan354/xlreminder/storage"
	"github.com/ridhan354/xlreminder/views"
)

const helpText = "ℹ️ <b>Bantuan</b>\n\n" +
	"• Tambahkan nomor pelanggan melalui menu ➕.\n" +
	"• Overview menampilkan ringkasan paket aktif lengkap dengan kuota utama.\n" +
	"• Pengingat H-1/Hari-H dapat ditata lewat menu Pengaturan.\n" +
	"• Admin dapat melakukan backup dan restore langsung dari Telegram."

func (a *App) registerCommands(reg *coretelegram.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.cmdStart,
		Description: "Buka menu utama",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     a.cmdHelp,
		Description: "Tampilkan bantuan",
		Aliases:     []string{"bantuan"},
	})
	reg.RegisterCommand("/backup", commands.Command{
		Handler:     a.cmdBackup,
		Description: "Kirim backup data sekarang",
		AdminOnly:   true,
		Hidden:      true,
	})
}

func (a *App) registerCallbacks(reg *coretelegram.Registry) error {
	handlers := map[string]tele.HandlerFunc{
		"back_to_menu":            a.cbBackToMenu,
		"menu_overview":           a.cbOverview,
		"menu_sort_toggle":        a.cbSortToggle,
		"menu_search":             a.cbSearch,
		"menu_search_clear":       a.cbSearchClear,
		"menu_add":                a.cbAdd,
		"menu_edit":               a.cbEditMenu,
		"edit":                    a.cbEditPick,
		"menu_delete":             a.cbDeleteMenu,
		"delete":                  a.cbDeleteConfirm,
		"menu_check":              a.cbCheckMenu,
		"check":                   a.cbCheckNumber,
		"check_refresh_due":       a.cbRefreshDue,
		"check_refresh_force_all": a.cbRefreshForceAll,
		"menu_quick":              a.cbQuickMenu,
		"quick":                   a.cbQuickShow,
		"menu_ics":                a.cbICSMenu,
		"ics":                     a.cbICSExport,
		"menu_backup_now":         a.cbBackupNow,
		"menu_restore":            a.cbRestore,
		"menu_settings":           a.cbSettings,
		"settings_toggle":         a.cbSettingsToggle,
		"settings_hour":           a.cbSettingsHour,
		"menu_help":               a.cbHelp,
	}
	for key, h := range handlers {
		if err := reg.RegisterCallback(key, h); err != nil {
			return err
		}
	}
	return nil
}

// ------------------------------------------------------------------
// commands
// ------------------------------------------------------------------

func (a *App) cmdStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	user := c.Sender()
	if err := a.users.Ensure(ctx, user.ID, user.Username); err != nil {
		return err
	}
	text := "👋 <b>Selamat datang di XL Reminder Bot</b>\n\n" +
		a.overviewText(ctx, user.ID) +
		"\n— — —\nGunakan tombol di bawah ini 👇"
	return tghelpers.SendHTMLChunks(c, text, a.cfg.MessageChunk, a.mainMenu(ctx, user.ID))
}

func (a *App) cmdHelp(c tele.Context) error {
	return tghelpers.SendHTMLChunks(c, helpText, a.cfg.MessageChunk, a.singleBack())
}

func (a *App) cmdBackup(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	if !a.cfg.IsAdmin(c.Sender().ID) {
		return tghelpers.SendText(c, "Hanya admin.")
	}
	delivered := a.backups.Send(ctx, "🗄 Backup manual data XL Reminder.")
	return tghelpers.SendHTML(c,
		fmt.Sprintf("✅ Backup terkirim ke %d chat.", delivered),
		a.mainMenu(ctx, c.Sender().ID))
}

// ------------------------------------------------------------------
// menu callbacks
// ------------------------------------------------------------------

func (a *App) cbBackToMenu(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	a.fsm.Clear(c.Sender().ID)
	return tghelpers.EditOrSendHTML(c, "🏠 <b>Menu Utama</b>", a.mainMenu(ctx, c.Sender().ID))
}

func (a *App) cbOverview(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	_ = c.Edit("⏳ Membuat overview…")
	text := a.overviewText(ctx, c.Sender().ID)
	return tghelpers.EditOrSendHTMLChunks(c, text, a.cfg.MessageChunk, a.mainMenu(ctx, c.Sender().ID))
}

func (a *App) cbSortToggle(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID
	prefs, err := a.prefs.Get(ctx, userID)
	if err != nil {
		return err
	}
	order := storage.SortDesc
	if prefs.SortOrder == storage.SortDesc {
		order = storage.SortAsc
	}
	if err := a.prefs.SetSortOrder(ctx, userID, order); err != nil {
		return err
	}
	return a.cbOverview(c)
}

func (a *App) cbSearch(c tele.Context) error {
	a.fsm.SetState(c.Sender().ID, stateAwaitSearchTerm)
	return tghelpers.EditOrSendHTML(c, "🔎 Kirim kata kunci untuk <b>mencari</b> (nama atau nomor).")
}

func (a *App) cbSearchClear(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	if err := a.prefs.SetSearchQuery(ctx, c.Sender().ID, ""); err != nil {
		return err
	}
	return a.cbOverview(c)
}

func (a *App) cbAdd(c tele.Context) error {
	a.fsm.SetState(c.Sender().ID, stateAwaitNewNumber)
	return tghelpers.EditOrSendHTML(c, "➕ Kirim nomor XL kamu (0819… / +62819… / 62819…).")
}

func (a *App) cbHelp(c tele.Context) error {
	return tghelpers.EditOrSendHTMLChunks(c, helpText, a.cfg.MessageChunk, a.singleBack())
}

// ------------------------------------------------------------------
// number pickers
// ------------------------------------------------------------------

// pickNumber shows the user's numbers keyed for a follow-up callback, or
// the main menu when the list is empty.
func (a *App) pickNumber(c tele.Context, prompt, emptyText, key string, withRefresh bool) error {
	ctx := tghelpers.BuildContext(c)
	recs, err := a.numbers.ListByOwner(ctx, c.Sender().ID)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return tghelpers.EditOrSendHTML(c, emptyText, a.mainMenu(ctx, c.Sender().ID))
	}
	return tghelpers.EditOrSendHTML(c, prompt, a.numbersKeyboard(recs, key, withRefresh))
}

func (a *App) cbEditMenu(c tele.Context) error {
	return a.pickNumber(c, "Pilih nomor yang ingin diubah namanya:", "Belum ada nomor untuk diubah.", "edit", false)
}

func (a *App) cbEditPick(c tele.Context) error {
	msisdn := callbacks.CallbackPayload(c)
	if msisdn == "" {
		return nil
	}
	userID := c.Sender().ID
	a.fsm.SetTemp(userID, tempEditMSISDN, msisdn)
	a.fsm.SetState(userID, stateAwaitEditLabel)
	return tghelpers.EditOrSendHTML(c,
		fmt.Sprintf("Masukkan label baru untuk <code>%s</code>:", format.Escape(msisdn)))
}

func (a *App) cbDeleteMenu(c tele.Context) error {
	return a.pickNumber(c, "Pilih nomor yang ingin dihapus:", "Belum ada nomor.", "delete", false)
}

func (a *App) cbDeleteConfirm(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	msisdn := callbacks.CallbackPayload(c)
	msg := "✅ Nomor dihapus."
	if err := a.numbers.Delete(ctx, c.Sender().ID, msisdn); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		msg = "⚠️ Nomor tidak ditemukan."
	}
	return tghelpers.EditOrSendHTML(c, msg, a.mainMenu(ctx, c.Sender().ID))
}

// ------------------------------------------------------------------
// refresh
// ------------------------------------------------------------------

func (a *App) cbCheckMenu(c tele.Context) error {
	return a.pickNumber(c, "Pilih nomor untuk me-refresh data:", "Belum ada nomor terdaftar.", "check", true)
}

func (a *App) cbCheckNumber(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	msisdn := callbacks.CallbackPayload(c)
	res := a.refresher.RefreshOne(ctx, msisdn)
	text := "✅ Data diperbarui."
	if !res.Success {
		text = "⚠️ " + format.Escape(res.Message)
	}
	return tghelpers.EditOrSendHTML(c, text, a.mainMenu(ctx, c.Sender().ID))
}

func (a *App) cbRefreshDue(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	count := a.refresher.ScanOwner(ctx, c.Sender().ID)
	return tghelpers.EditOrSendHTML(c,
		fmt.Sprintf("✅ Refresh otomatis selesai untuk %d nomor.", count),
		a.mainMenu(ctx, c.Sender().ID))
}

func (a *App) cbRefreshForceAll(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	count := a.refresher.ForceOwner(ctx, c.Sender().ID)
	return tghelpers.EditOrSendHTML(c,
		fmt.Sprintf("♻️ Refresh paksa selesai untuk %d nomor.", count),
		a.mainMenu(ctx, c.Sender().ID))
}

// ------------------------------------------------------------------
// cached detail & calendar export
// ------------------------------------------------------------------

func (a *App) cbQuickMenu(c tele.Context) error {
	return a.pickNumber(c, "Pilih nomor untuk melihat detail cache:", "Belum ada nomor.", "quick", false)
}

func (a *App) cbQuickShow(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	msisdn := callbacks.CallbackPayload(c)
	rec, err := a.numbers.Get(ctx, c.Sender().ID, msisdn)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return tghelpers.EditOrSendHTML(c, "⚠️ Nomor tidak ditemukan.", a.singleBack())
		}
		return err
	}
	var text string
	switch {
	case rec.Payload() != nil:
		text = views.DetailMessage(rec.Payload(), time.Now().In(a.loc))
	case rec.LastError != "":
		text = fmt.Sprintf("🚫 <i>%s</i>", format.Escape(rec.LastError))
	default:
		text = "⚠️ Belum ada data untuk nomor ini."
	}
	return tghelpers.EditOrSendHTMLChunks(c, text, a.cfg.MessageChunk, a.singleBack())
}

func (a *App) cbICSMenu(c tele.Context) error {
	return a.pickNumber(c, "Pilih nomor untuk export ICS:", "Belum ada nomor.", "ics", false)
}

func (a *App) cbICSExport(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	msisdn := callbacks.CallbackPayload(c)
	rec, err := a.numbers.Get(ctx, c.Sender().ID, msisdn)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return tghelpers.EditOrSendHTML(c, "⚠️ Nomor tidak ditemukan.", a.singleBack())
		}
		return err
	}
	if rec.Payload() == nil {
		return tghelpers.EditOrSendHTML(c, "⚠️ Tidak ada cache untuk dibuatkan ICS.", a.singleBack())
	}
	if len(rec.Payload().Packages()) == 0 {
		return tghelpers.EditOrSendHTML(c, "⚠️ Paket tidak ditemukan.", a.singleBack())
	}
	recs, err := a.numbers.ListByOwner(ctx, c.Sender().ID)
	if err != nil {
		return err
	}
	now := time.Now().In(a.loc)
	ics := views.BuildICS(recs, now)
	return a.sink.SendDocument(ctx, c.Sender().ID,
		fmt.Sprintf("xl-expiry-%s.ics", now.Format("20060102")),
		ics,
		"📅 File ICS untuk 30 hari ke depan. UID stabil sehingga aman untuk impor ulang.")
}

// ------------------------------------------------------------------
// admin: backup & restore
// ------------------------------------------------------------------

func (a *App) requireAdmin(c tele.Context) bool {
	if a.cfg.IsAdmin(c.Sender().ID) {
		return true
	}
	_ = c.Respond(&tele.CallbackResponse{Text: "Hanya admin.", ShowAlert: true})
	return false
}

func (a *App) cbBackupNow(c tele.Context) error {
	if !a.requireAdmin(c) {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	_ = c.Edit("⏳ Membuat & mengirim backup…")
	a.backups.Send(ctx, "🗄 Backup manual data XL Reminder.")
	return tghelpers.EditOrSendHTML(c,
		"✅ Backup terkirim.\n\n🏠 Kembali ke menu:",
		a.mainMenu(ctx, c.Sender().ID))
}

func (a *App) cbRestore(c tele.Context) error {
	if !a.requireAdmin(c) {
		return nil
	}
	a.fsm.SetState(c.Sender().ID, stateAwaitRestoreFile)
	return tghelpers.EditOrSendHTML(c,
		"⬆️ Kirim file <b>.json</b> atau <b>.json.gz</b> untuk di-restore. ⚠️ Nomor yang sudah ada akan dilewati.")
}

// ------------------------------------------------------------------
// settings
// ------------------------------------------------------------------

func (a *App) cbSettings(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	prefs, err := a.prefs.Get(ctx, c.Sender().ID)
	if err != nil {
		return err
	}
	status := func(on bool) string {
		if on {
			return "✅ Aktif"
		}
		return "❌ Nonaktif"
	}
	text := "⚙️ <b>Pengaturan Reminder</b>\n\n" +
		fmt.Sprintf("• H-1: %s\n", status(prefs.RemindH1)) +
		fmt.Sprintf("• Hari-H: %s\n", status(prefs.RemindH0)) +
		fmt.Sprintf("• Jam kirim: %s WIB", fmtHour(prefs.ReminderHour))
	return tghelpers.EditOrSendHTML(c, text, a.settingsKeyboard(prefs))
}

func (a *App) cbSettingsToggle(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID
	prefs, err := a.prefs.Get(ctx, userID)
	if err != nil {
		return err
	}
	switch callbacks.CallbackPayload(c) {
	case "h1":
		err = a.prefs.SetRemindH1(ctx, userID, !prefs.RemindH1)
	case "h0":
		err = a.prefs.SetRemindH0(ctx, userID, !prefs.RemindH0)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	return a.cbSettings(c)
}

func (a *App) cbSettingsHour(c tele.Context) error {
	a.fsm.SetState(c.Sender().ID, stateAwaitReminderHour)
	return tghelpers.EditOrSendHTML(c, "🕒 Masukkan jam (0-23) untuk pengiriman reminder.")
}
