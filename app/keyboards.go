package app

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/ridhan354/xlreminder/core/telegram/helpers"
	"github.com/ridhan354/xlreminder/core/telegram/keyboard"
	"github.com/ridhan354/xlreminder/core/telegram/ui"
	"github.com/ridhan354/xlreminder/storage"
)

const backButtonText = "⬅️ Kembali"

// mainMenu builds the root inline keyboard. Rows appear and disappear
// with the user's data: list tools only when numbers exist, backup and
// restore only for admins.
func (a *App) mainMenu(ctx context.Context, userID int64) *tele.ReplyMarkup {
	prefs, _ := a.prefs.Get(ctx, userID)
	recs, _ := a.numbers.ListByOwner(ctx, userID)

	rows := [][]keyboard.InlineBtn{
		{{Text: "📊 Overview", Unique: "menu_overview"}},
		{{Text: "➕ Daftarkan Nomor", Unique: "menu_add"}},
	}
	if len(recs) > 0 {
		sortTxt := "↕️ Urut (Sisa Hari) ↓"
		if prefs != nil && prefs.SortOrder == storage.SortAsc {
			sortTxt = "↕️ Urut (Sisa Hari) ↑"
		}
		searchRow := []keyboard.InlineBtn{{Text: "🔎 Cari", Unique: "menu_search"}}
		if prefs != nil && prefs.SearchQuery != "" {
			searchRow = append(searchRow, keyboard.InlineBtn{Text: "🧹 Hapus Filter", Unique: "menu_search_clear"})
		}
		rows = append(rows,
			[]keyboard.InlineBtn{{Text: sortTxt, Unique: "menu_sort_toggle"}},
			searchRow,
			[]keyboard.InlineBtn{
				{Text: "✏️ Edit Nama", Unique: "menu_edit"},
				{Text: "🗑 Hapus Nomor", Unique: "menu_delete"},
			},
			[]keyboard.InlineBtn{
				{Text: "✅ Cek Sekarang", Unique: "menu_check"},
				{Text: "🔍 Detail Cepat", Unique: "menu_quick"},
			},
			[]keyboard.InlineBtn{{Text: "📅 Export ICS (30 hari)", Unique: "menu_ics"}},
		)
	}
	if a.cfg.IsAdmin(userID) {
		rows = append(rows, []keyboard.InlineBtn{
			{Text: "🗄 Backup", Unique: "menu_backup_now"},
			{Text: "♻️ Restore", Unique: "menu_restore"},
		})
	}
	rows = append(rows,
		[]keyboard.InlineBtn{{Text: "⚙️ Pengaturan", Unique: "menu_settings"}},
		[]keyboard.InlineBtn{{Text: "ℹ️ Bantuan", Unique: "menu_help"}},
	)
	return keyboard.InlineButtonsRows(rows...)
}

// numbersKeyboard lists the user's numbers two per row, each firing the
// given callback key with the MSISDN as payload.
func (a *App) numbersKeyboard(recs []storage.NumberRecord, key string, withRefresh bool) *tele.ReplyMarkup {
	var rows [][]keyboard.InlineBtn
	var row []keyboard.InlineBtn
	for _, rec := range recs {
		label := rec.Label
		if label == "" {
			label = rec.MSISDN
		}
		row = append(row, keyboard.InlineBtn{Text: label, Unique: key, Data: rec.MSISDN})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	if withRefresh {
		rows = append(rows, []keyboard.InlineBtn{
			{Text: "🔄 Refresh due", Unique: "check_refresh_due"},
			{Text: "♻️ Paksa semua", Unique: "check_refresh_force_all"},
		})
	}
	rows = append(rows, []keyboard.InlineBtn{{Text: backButtonText, Unique: "back_to_menu"}})
	return keyboard.InlineButtonsRows(rows...)
}

func (a *App) singleBack() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{{Text: backButtonText, Unique: "back_to_menu"}})
}

func (a *App) settingsKeyboard(prefs *storage.Prefs) *tele.ReplyMarkup {
	onOff := func(on bool) string {
		if on {
			return "✅ "
		}
		return "❌ "
	}
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: onOff(prefs.RemindH1) + "Toggle H-1", Unique: "settings_toggle", Data: "h1"},
			{Text: onOff(prefs.RemindH0) + "Toggle Hari-H", Unique: "settings_toggle", Data: "h0"},
		},
		[]keyboard.InlineBtn{{Text: "🕒 Ganti Jam", Unique: "settings_hour"}},
		[]keyboard.InlineBtn{{Text: backButtonText, Unique: "back_to_menu"}},
	)
}

// menuFallbacks routes unmapped updates back to the main menu.
type menuFallbacks struct {
	app *App
}

func (f *menuFallbacks) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		return tghelpers.SendHTML(c, "🏠 <b>Menu Utama</b>", f.app.mainMenu(ctx, c.Sender().ID))
	}
}

func (f *menuFallbacks) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, "❌ File tidak diharapkan. Gunakan menu Restore terlebih dahulu.")
	}
}

func (f *menuFallbacks) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: "Aksi tidak dikenal"})
	}
}

var _ ui.FallbackProvider = (*menuFallbacks)(nil)

func fmtHour(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}
