package sched

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ridhan354/xlreminder/policy"
	"github.com/ridhan354/xlreminder/quota"
	"github.com/ridhan354/xlreminder/storage"
	"github.com/ridhan354/xlreminder/xl"
)

type fakeStore struct {
	records  []storage.NumberRecord
	outcomes map[string]storage.FetchOutcome
	notified map[int64][2]string
}

func newFakeStore(recs ...storage.NumberRecord) *fakeStore {
	return &fakeStore{
		records:  recs,
		outcomes: map[string]storage.FetchOutcome{},
		notified: map[int64][2]string{},
	}
}

func (s *fakeStore) ListAll(ctx context.Context) ([]storage.NumberRecord, error) {
	return s.records, nil
}

func (s *fakeStore) ListByOwner(ctx context.Context, ownerID int64) ([]storage.NumberRecord, error) {
	var out []storage.NumberRecord
	for _, r := range s.records {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) ApplyFetch(ctx context.Context, msisdn string, out storage.FetchOutcome) error {
	s.outcomes[msisdn] = out
	return nil
}

func (s *fakeStore) SetLastNotified(ctx context.Context, id int64, notifType, expiry string) error {
	s.notified[id] = [2]string{notifType, expiry}
	return nil
}

type fakeSource struct {
	calls   []string
	results map[string]quota.Result
}

func (f *fakeSource) Fetch(ctx context.Context, msisdn string) quota.Result {
	f.calls = append(f.calls, msisdn)
	if res, ok := f.results[msisdn]; ok {
		return res
	}
	return quota.Result{Success: true, Payload: &xl.Payload{Success: true}}
}

type fakeSink struct {
	sent []string
	fail bool
}

func (f *fakeSink) Notify(ctx context.Context, chatID int64, html string) error {
	if f.fail {
		return context.DeadlineExceeded
	}
	f.sent = append(f.sent, html)
	return nil
}

func payloadWith(expiry string) []byte {
	p := xl.Payload{Success: true, Data: &xl.Data{PackageInfo: &xl.PackageInfo{
		Packages: []xl.Package{{Name: "Xtra Combo Flex", Expiry: expiry}},
	}}}
	raw, _ := json.Marshal(p)
	return raw
}

func TestForceOwnerPacesCalls(t *testing.T) {
	store := newFakeStore(
		storage.NumberRecord{ID: 1, OwnerID: 7, MSISDN: "628111"},
		storage.NumberRecord{ID: 2, OwnerID: 7, MSISDN: "628222"},
		storage.NumberRecord{ID: 3, OwnerID: 7, MSISDN: "628333"},
	)
	src := &fakeSource{}
	var slept []time.Duration
	ref := NewRefresher(store, src, 6*time.Hour).WithClock(
		func() time.Time { return time.Unix(1_000_000, 0) },
		func(d time.Duration) { slept = append(slept, d) },
	)

	count := ref.ForceOwner(context.Background(), 7)
	if count != 3 || len(src.calls) != 3 {
		t.Fatalf("expected 3 forced lookups, got count=%d calls=%v", count, src.calls)
	}
	if len(slept) != 2 {
		t.Fatalf("expected a pause between consecutive lookups, got %d", len(slept))
	}
	for _, d := range slept {
		if d != DefaultPace {
			t.Errorf("pace = %v, want %v", d, DefaultPace)
		}
	}
}

func TestScanAllRefreshesOnlyDue(t *testing.T) {
	now := int64(1_000_000)
	interval := 6 * time.Hour
	store := newFakeStore(
		storage.NumberRecord{ID: 1, MSISDN: "628stale", LastFetchTS: now - 30000},
		storage.NumberRecord{ID: 2, MSISDN: "628fresh", LastFetchTS: now - 100},
		storage.NumberRecord{ID: 3, MSISDN: "628blocked", LastFetchTS: now - 30000, NextRetryTS: now + 500},
	)
	src := &fakeSource{}
	ref := NewRefresher(store, src, interval).WithClock(
		func() time.Time { return time.Unix(now, 0) },
		func(time.Duration) {},
	)

	count := ref.ScanAll(context.Background())
	if count != 1 || len(src.calls) != 1 || src.calls[0] != "628stale" {
		t.Fatalf("expected only the stale unblocked record, got %v", src.calls)
	}
}

func TestRefreshOneRecordsFailure(t *testing.T) {
	now := int64(1_000_000)
	store := newFakeStore(storage.NumberRecord{ID: 1, MSISDN: "628111"})
	src := &fakeSource{results: map[string]quota.Result{
		"628111": {Message: "Batas maksimal pengecekan", BlockSeconds: 3 * 60 * 60},
	}}
	ref := NewRefresher(store, src, 6*time.Hour).WithClock(
		func() time.Time { return time.Unix(now, 0) },
		func(time.Duration) {},
	)

	ref.RefreshOne(context.Background(), "628111")
	out := store.outcomes["628111"]
	if out.Success {
		t.Fatal("outcome must be a failure")
	}
	if out.Now != now || out.BlockSeconds != 3*60*60 {
		t.Errorf("outcome timing wrong: %+v", out)
	}
}

func TestRemindersSendAndDedup(t *testing.T) {
	now := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	store := newFakeStore(storage.NumberRecord{
		ID: 1, OwnerID: 7, MSISDN: "628111", Label: "Ibu",
		LastPayload: payloadWith("05-03-2025"),
	})
	prefs := prefStoreFunc(func(ctx context.Context, userID int64) (*storage.Prefs, error) {
		return &storage.Prefs{UserID: userID, RemindH1: true, RemindH0: true, ReminderHour: 9}, nil
	})
	sink := &fakeSink{}
	job := NewReminders(store, prefs, sink, time.UTC).WithClock(func() time.Time { return now })

	job.RunOnce(context.Background())
	if len(sink.sent) != 1 {
		t.Fatalf("expected one reminder, got %d", len(sink.sent))
	}
	if !strings.Contains(sink.sent[0], "Pengingat H-1") {
		t.Errorf("wrong bucket header:\n%s", sink.sent[0])
	}
	if got := store.notified[1]; got != [2]string{policy.BucketH1, "05-03-2025"} {
		t.Errorf("dedup marker = %v", got)
	}

	// Second pass with the marker stored sends nothing.
	store.records[0].LastNotifiedType = policy.BucketH1
	store.records[0].LastNotifiedExpiry = "05-03-2025"
	sink.sent = nil
	job.RunOnce(context.Background())
	if len(sink.sent) != 0 {
		t.Fatalf("deduped reminder was sent again: %v", sink.sent)
	}

	// A topped-up package moves its expiry out of both windows.
	store.records[0].LastPayload = payloadWith("05-04-2025")
	job.RunOnce(context.Background())
	if len(sink.sent) != 0 {
		t.Fatal("expiry outside both windows must not notify")
	}
}

func TestRemindersHourGate(t *testing.T) {
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	store := newFakeStore(storage.NumberRecord{
		ID: 1, OwnerID: 7, MSISDN: "628111",
		LastPayload: payloadWith("05-03-2025"),
	})
	prefs := prefStoreFunc(func(ctx context.Context, userID int64) (*storage.Prefs, error) {
		return &storage.Prefs{UserID: userID, RemindH1: true, RemindH0: true, ReminderHour: 9}, nil
	})
	sink := &fakeSink{}
	job := NewReminders(store, prefs, sink, time.UTC).WithClock(func() time.Time { return now })

	job.RunOnce(context.Background())
	if len(sink.sent) != 0 {
		t.Fatal("reminder must not fire outside the user's hour")
	}
}

func TestRemindersSendFailureKeepsMarker(t *testing.T) {
	now := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	store := newFakeStore(storage.NumberRecord{
		ID: 1, OwnerID: 7, MSISDN: "628111",
		LastPayload: payloadWith("05-03-2025"),
	})
	prefs := prefStoreFunc(func(ctx context.Context, userID int64) (*storage.Prefs, error) {
		return &storage.Prefs{UserID: userID, RemindH1: true, RemindH0: true, ReminderHour: 9}, nil
	})
	sink := &fakeSink{fail: true}
	job := NewReminders(store, prefs, sink, time.UTC).WithClock(func() time.Time { return now })

	job.RunOnce(context.Background())
	if _, ok := store.notified[1]; ok {
		t.Fatal("failed send must not write the dedup marker")
	}
}

type prefStoreFunc func(ctx context.Context, userID int64) (*storage.Prefs, error)

func (f prefStoreFunc) Get(ctx context.Context, userID int64) (*storage.Prefs, error) {
	return f(ctx, userID)
}

type fakeDocSink struct {
	docs map[int64][]byte
}

func (f *fakeDocSink) SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error {
	if f.docs == nil {
		f.docs = map[int64][]byte{}
	}
	f.docs[chatID] = data
	return nil
}

type userStoreFunc func(ctx context.Context) ([]int64, error)

func (f userStoreFunc) ListIDs(ctx context.Context) ([]int64, error) { return f(ctx) }

func TestBackupExportRoundTrip(t *testing.T) {
	store := newFakeStore(storage.NumberRecord{
		ID: 1, OwnerID: 7, MSISDN: "628111", Label: "Ibu",
		LastPayload: payloadWith("05-03-2025"), LastFetchTS: 123,
	})
	sink := &fakeDocSink{}
	b := NewBackups(store, userStoreFunc(func(context.Context) ([]int64, error) { return nil, nil }),
		sink, []int64{42}, time.UTC, time.Sunday, 2)

	if got := b.Send(context.Background(), "test"); got != 1 {
		t.Fatalf("delivered = %d, want 1", got)
	}
	recs, err := ParseBackup(sink.docs[42])
	if err != nil {
		t.Fatalf("ParseBackup: %v", err)
	}
	if len(recs) != 1 || recs[0].MSISDN != "628111" || recs[0].LastFetchTS != 123 {
		t.Errorf("round trip mismatch: %+v", recs)
	}
}

func TestBackupRunIfDue(t *testing.T) {
	store := newFakeStore()
	sink := &fakeDocSink{}
	clock := time.Date(2025, 3, 9, 2, 0, 0, 0, time.UTC) // a Sunday
	b := NewBackups(store, userStoreFunc(func(context.Context) ([]int64, error) { return nil, nil }),
		sink, []int64{42}, time.UTC, time.Sunday, 2)
	b.WithClock(func() time.Time { return clock })

	b.RunIfDue(context.Background())
	if len(sink.docs) != 1 {
		t.Fatal("backup must fire on the configured weekday and hour")
	}

	// Same hour again: at most one backup per day.
	sink.docs = map[int64][]byte{}
	b.RunIfDue(context.Background())
	if len(sink.docs) != 0 {
		t.Fatal("backup must not repeat within the same day")
	}

	// Wrong hour never fires.
	sink.docs = map[int64][]byte{}
	clock = time.Date(2025, 3, 16, 3, 0, 0, 0, time.UTC)
	b.RunIfDue(context.Background())
	if len(sink.docs) != 0 {
		t.Fatal("backup must respect the configured hour")
	}
}
