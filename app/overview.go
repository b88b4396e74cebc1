package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ridhan354/xlreminder/core/telegram/format"
	"github.com/ridhan354/xlreminder/storage"
	"github.com/ridhan354/xlreminder/views"
	"github.com/ridhan354/xlreminder/xl"
)

const unknownDaysLeft = 9999

// overviewSortKey ranks a record by days left on its primary package.
// Records without data sink to the bottom of an ascending list and float
// to the top of a descending one, so stale entries never hide fresh ones.
func overviewSortKey(rec storage.NumberRecord, order string, now time.Time) int {
	p := rec.Payload()
	if p == nil {
		if order == storage.SortAsc {
			return unknownDaysLeft
		}
		return -unknownDaysLeft
	}
	pkgs := p.Packages()
	if len(pkgs) == 0 {
		return unknownDaysLeft
	}
	ind := xl.IndicatorByDate(pkgs[0].Expiry, now)
	if !ind.Known {
		return unknownDaysLeft
	}
	return ind.DaysLeft
}

// overviewText renders the user's full number list honoring the stored
// search filter and sort order.
func (a *App) overviewText(ctx context.Context, userID int64) string {
	recs, err := a.numbers.ListByOwner(ctx, userID)
	if err != nil {
		return views.EmptyOverview
	}

	order := storage.SortAsc
	query := ""
	if prefs, err := a.prefs.Get(ctx, userID); err == nil {
		order = prefs.SortOrder
		query = strings.ToLower(strings.TrimSpace(prefs.SearchQuery))
	}

	filtered := recs[:0]
	for _, rec := range recs {
		if query != "" &&
			!strings.Contains(strings.ToLower(rec.Label), query) &&
			!strings.Contains(rec.MSISDN, query) {
			continue
		}
		filtered = append(filtered, rec)
	}

	now := time.Now().In(a.loc)
	sort.SliceStable(filtered, func(i, j int) bool {
		ki := overviewSortKey(filtered[i], order, now)
		kj := overviewSortKey(filtered[j], order, now)
		if order == storage.SortDesc {
			return ki > kj
		}
		return ki < kj
	})

	var sections []string
	for _, rec := range filtered {
		entry := views.OverviewEntry{
			Label:          rec.Label,
			MSISDN:         rec.MSISDN,
			PrimaryPackage: "Belum cek",
			ExpiryText:     "-",
			LastFetchTS:    rec.LastFetchTS,
			Error:          rec.LastError,
			BlockedUntil:   rec.NextRetryTS,
		}
		if p := rec.Payload(); p != nil {
			if pkgs := p.Packages(); len(pkgs) > 0 {
				first := pkgs[0]
				abbr, expiry, fullName := xl.PrimaryPackageInfo(p)
				entry.PrimaryPackage = fullName
				if entry.PrimaryPackage == "" {
					entry.PrimaryPackage = abbr
				}
				entry.ExpiryText = expiry
				if q, ok := first.FirstQuota(); ok {
					entry.QuotasLine = fmt.Sprintf("📊 Sisa utama: <b>%s</b> / %s",
						format.Escape(orDash(q.Remaining)), format.Escape(orDash(q.Total)))
				}
			}
		}
		entry.Indicator = xl.IndicatorByDate(entry.ExpiryText, now)
		sections = append(sections, views.RenderOverviewEntry(entry, now))
	}
	if len(sections) == 0 {
		return views.EmptyOverview
	}
	return views.OverviewMessage(sections)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
