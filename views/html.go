// Package views renders user-facing message bodies: the HTML sent to
// Telegram chats and the ICS calendar export. Rendering is pure string
// building; callers pass in the records and the clock.
package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/ridhan354/xlreminder/core/telegram/format"
	"github.com/ridhan354/xlreminder/xl"
)

const indentNBSP = "&nbsp;&nbsp;"

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// ProgressBar renders a fixed-width usage bar for a quota percentage.
// A missing percentage renders as a placeholder.
func ProgressBar(percent *int, length int) string {
	if percent == nil {
		return "—"
	}
	p := format.DerefInt(percent, 0)
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	filled := p * length / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("─", length-filled)
	return fmt.Sprintf("<code>[%s] %d%%</code>", bar, p)
}

// QuotasBlock renders the quota lines of one package at the given indent.
func QuotasBlock(quotas []xl.Quota, indent string) string {
	var lines []string
	for _, q := range quotas {
		lines = append(lines, fmt.Sprintf("%s🔸 <b>%s</b>", indent, format.Escape(orDash(q.Name))))
		lines = append(lines, fmt.Sprintf("%s%s%s — sisa: <b>%s</b> / %s",
			indent, indentNBSP, ProgressBar(q.Percent, 20),
			format.Escape(orDash(q.Remaining)), format.Escape(orDash(q.Total))))
	}
	return strings.Join(lines, "\n")
}

func formatPackage(pkg xl.Package, index int, multi bool) string {
	name := pkg.Name
	if name == "" {
		name = "Unknown Package"
	}
	prefix := ""
	indent := indentNBSP
	if multi {
		prefix = fmt.Sprintf("%d. ", index)
		indent = strings.Repeat("&nbsp;", 6)
	}
	lines := []string{
		fmt.Sprintf("📦 %s<b>%s</b>", prefix, format.Escape(name)),
		fmt.Sprintf("⏳ Kedaluwarsa: <b>%s</b>", format.Escape(orDash(pkg.Expiry))),
	}
	if block := QuotasBlock(pkg.Quotas, indent); block != "" {
		lines = append(lines, block)
	}
	return strings.Join(lines, "\n")
}

// DetailMessage renders the full quota report for one number.
func DetailMessage(p *xl.Payload, now time.Time) string {
	subs := p.Subs()
	lines := []string{
		fmt.Sprintf("📡 <b>Informasi Kuota — %s</b>", format.Escape(orDash(subs.Operator))),
		fmt.Sprintf("📱 Nomor: <code>%s</code>", format.Escape(orDash(subs.MSISDN))),
		fmt.Sprintf("📶 Jaringan: <b>%s</b>  •  Validasi ID: <b>%s</b>",
			format.Escape(orDash(subs.NetType)), format.Escape(orDash(subs.IDVerified))),
		fmt.Sprintf("🕒 Masa Aktif: <b>%s</b>  •  Tenure: <b>%s</b>",
			format.Escape(orDash(subs.ExpDate)), format.Escape(orDash(subs.Tenure))),
		"",
	}

	if errMsg := p.PackageError(); errMsg != "" {
		lines = append(lines,
			"🚫 <b>Pengecekan Ditolak</b>",
			fmt.Sprintf("🧭 Pesan: <i>%s</i>", format.Escape(errMsg)),
			"",
		)
	} else {
		pkgs := p.Packages()
		if len(pkgs) == 0 {
			lines = append(lines, "⚠️ Tidak ada paket terdaftar.")
		} else {
			multi := len(pkgs) > 1
			if multi {
				lines = append(lines, fmt.Sprintf("📦 <b>%d paket aktif ditemukan:</b>", len(pkgs)))
			}
			for i, pkg := range pkgs {
				lines = append(lines, formatPackage(pkg, i+1, multi), "")
			}
			if lines[len(lines)-1] == "" {
				lines = lines[:len(lines)-1]
			}
		}
	}

	lines = append(lines, fmt.Sprintf("🔔 Dilaporkan: <i>%s</i>", now.Format("2006-01-02 15:04:05")))
	return strings.Join(lines, "\n")
}

// OverviewEntry is one number's section in the overview list.
type OverviewEntry struct {
	Label          string
	MSISDN         string
	Indicator      xl.Indicator
	PrimaryPackage string
	ExpiryText     string
	QuotasLine     string
	LastFetchTS    int64
	Error          string
	BlockedUntil   int64
}

// RenderOverviewEntry renders one section of the overview message.
func RenderOverviewEntry(e OverviewEntry, now time.Time) string {
	label := e.Label
	if label == "" {
		label = e.MSISDN
	}
	lines := []string{
		fmt.Sprintf("⚪ 👤 <b>%s</b>", format.Escape(label)),
		fmt.Sprintf("📱 <code>%s</code>", format.Escape(e.MSISDN)),
	}
	if e.Error != "" {
		lines = append(lines, fmt.Sprintf("🚫 <i>%s</i>", format.Escape(e.Error)))
		if e.BlockedUntil > 0 {
			waitMin := (e.BlockedUntil - now.Unix()) / 60
			if waitMin < 0 {
				waitMin = 0
			}
			lines = append(lines, fmt.Sprintf("⏳ Coba lagi dalam ~%d menit", waitMin))
		}
		return strings.Join(lines, "\n")
	}
	lines = append(lines,
		fmt.Sprintf("%s %s", e.Indicator.Icon, format.Escape(e.PrimaryPackage)),
		fmt.Sprintf("🗓️ Masa aktif paket: <b>%s</b>", format.Escape(orDash(e.ExpiryText))),
	)
	if e.QuotasLine != "" {
		lines = append(lines, e.QuotasLine)
	}
	if e.LastFetchTS > 0 {
		lastSync := time.Unix(e.LastFetchTS, 0).In(now.Location()).Format("02 Jan 2006 15:04")
		lines = append(lines, fmt.Sprintf("⏱️ Terakhir di-refresh: <i>%s</i>", lastSync))
	} else {
		lines = append(lines, "⚠️ Belum ada data. Gunakan menu cek untuk memuat.")
	}
	return strings.Join(lines, "\n")
}

// OverviewMessage joins entry sections with blank lines.
func OverviewMessage(sections []string) string {
	return strings.Join(sections, "\n\n")
}

// EmptyOverview is shown when a user has no tracked numbers yet.
const EmptyOverview = "Belum ada nomor terdaftar. Tekan <b>➕ Daftarkan Nomor</b> untuk menambahkan."

func reminderPackageLines(packages []xl.Package) []string {
	var lines []string
	multi := len(packages) > 1
	for i, pkg := range packages {
		name := strings.TrimSpace(pkg.Name)
		if name == "" {
			name = "-"
		}
		abbr := xl.AbbreviatePackage(name)
		prefix := "• "
		if multi {
			prefix = fmt.Sprintf("%d. ", i+1)
		}
		lines = append(lines, fmt.Sprintf("%s<b>%s</b> — %s",
			prefix, format.Escape(abbr), format.Escape(orDash(pkg.Expiry))))
		if !strings.EqualFold(name, abbr) {
			lines = append(lines, indentNBSP+format.Escape(name))
		}
		if q, ok := pkg.FirstQuota(); ok {
			lines = append(lines, fmt.Sprintf("%sSisa utama: <b>%s</b> / %s (%s)",
				indentNBSP, format.Escape(orDash(q.Remaining)),
				format.Escape(orDash(q.Total)), format.Escape(orDash(q.Name))))
		}
	}
	return lines
}

// ReminderMessage renders the H-1 or expiry-day notification body.
func ReminderMessage(msisdn, label, bucket, expiryText string, packages []xl.Package, now time.Time) string {
	ind := xl.IndicatorByDate(expiryText, now)
	header := "⏰ <b>Pengingat H-1</b>"
	if bucket == "H0" {
		header = "🔔 <b>Pengingat Paket</b>"
	}
	lines := []string{
		header,
		fmt.Sprintf("👤 %s", format.Escape(label)),
		fmt.Sprintf("📱 <code>%s</code>", format.Escape(msisdn)),
		fmt.Sprintf("%s Kedaluwarsa: <b>%s</b> (%s)", ind.Icon, format.Escape(expiryText), ind.Text),
		"",
	}
	lines = append(lines, reminderPackageLines(packages)...)
	return strings.Join(lines, "\n")
}
