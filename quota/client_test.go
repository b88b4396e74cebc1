package quota

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/end.php?check=package&number={number}", 2*time.Second)
}

func TestFetchSuccess(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()
		w.Write([]byte(`{
			"success": true,
			"data": {
				"subs_info": {"msisdn": "628123", "operator": "XL"},
				"package_info": {"packages": [{"name": "Xtra Combo Flex", "expiry": "05-03-2025"}]}
			}
		}`))
	})

	res := c.Fetch(context.Background(), "628123")
	if !res.Success {
		t.Fatalf("expected success, got message %q", res.Message)
	}
	if res.BlockSeconds != 0 {
		t.Errorf("success must not carry a block, got %d", res.BlockSeconds)
	}
	if got := len(res.Payload.Packages()); got != 1 {
		t.Errorf("expected 1 package, got %d", got)
	}
	if !strings.Contains(gotPath, "number=628123") {
		t.Errorf("msisdn not substituted into URL: %s", gotPath)
	}
}

func TestFetchStructuredFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "message": "Nomor tidak ditemukan"}`))
	})

	res := c.Fetch(context.Background(), "628123")
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Message != "Nomor tidak ditemukan" {
		t.Errorf("message = %q", res.Message)
	}
	if res.BlockSeconds != 0 {
		t.Errorf("plain failure must not block, got %d", res.BlockSeconds)
	}
	if res.Payload == nil {
		t.Error("structured failure should keep the payload")
	}
}

func TestFetchRateLimited(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "message": "Anda telah mencapai Batas Maksimal Pengecekan hari ini"}`))
	})

	res := c.Fetch(context.Background(), "628123")
	if res.Success {
		t.Fatal("expected failure")
	}
	if want := int64(3 * 60 * 60); res.BlockSeconds != want {
		t.Errorf("BlockSeconds = %d, want %d", res.BlockSeconds, want)
	}
}

func TestFetchNestedPackageError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"success": true,
			"data": {"package_info": {"error_message": "nomor diblokir sementara"}}
		}`))
	})

	res := c.Fetch(context.Background(), "628123")
	if res.Success {
		t.Fatal("success envelope with a package error must be a failure")
	}
	if res.Message != "nomor diblokir sementara" {
		t.Errorf("message = %q", res.Message)
	}
	if res.Payload == nil {
		t.Error("payload should survive a nested rejection")
	}
}

func TestFetchFailureWithoutMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false}`))
	})

	res := c.Fetch(context.Background(), "628123")
	if res.Message != "Unknown error" {
		t.Errorf("message = %q, want Unknown error", res.Message)
	}
}

func TestFetchBadStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	res := c.Fetch(context.Background(), "628123")
	if res.Success || res.Payload != nil {
		t.Fatal("expected transport failure with no payload")
	}
	if res.BlockSeconds != 0 {
		t.Error("transport failure must not block")
	}
}

func TestFetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	c := NewClient(srv.URL+"?number={number}", time.Second)

	res := c.Fetch(context.Background(), "628123")
	if res.Success || res.Payload != nil {
		t.Fatal("expected transport failure with no payload")
	}
	if res.Message == "" {
		t.Error("transport failure must carry a diagnostic message")
	}
}

func TestFetchMalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": tr`))
	})

	res := c.Fetch(context.Background(), "628123")
	if res.Success || res.Payload != nil {
		t.Fatal("expected decode failure with no payload")
	}
}

func TestIsRateLimited(t *testing.T) {
	if !IsRateLimited("BATAS MAKSIMAL PENGECEKAN tercapai") {
		t.Error("matching must be case-insensitive")
	}
	if IsRateLimited("saldo tidak cukup") {
		t.Error("unrelated message must not match")
	}
}
