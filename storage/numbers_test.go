package storage

import "testing"

func TestRetryDeadline(t *testing.T) {
	now := int64(1_000_000)
	cases := []struct {
		name string
		out  FetchOutcome
		want int64
	}{
		{"success", FetchOutcome{Now: now, Success: true}, 0},
		{"plain failure", FetchOutcome{Now: now, ErrorMessage: "Gagal"}, 0},
		{"rate limited", FetchOutcome{Now: now, ErrorMessage: "limit", BlockSeconds: 10800}, now + 10800},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.out.RetryDeadline(); got != tc.want {
				t.Errorf("RetryDeadline() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestDistinctOwners(t *testing.T) {
	// A restored backup may reference owners the database has never
	// seen; each of them must be seeded exactly once.
	recs := []NumberRecord{
		{OwnerID: 7, MSISDN: "628190000001"},
		{OwnerID: 9, MSISDN: "628190000002"},
		{OwnerID: 7, MSISDN: "628190000003"},
	}
	owners := distinctOwners(recs)
	if len(owners) != 2 || owners[0] != 7 || owners[1] != 9 {
		t.Fatalf("distinctOwners = %v, want [7 9]", owners)
	}
	if got := distinctOwners(nil); len(got) != 0 {
		t.Fatalf("distinctOwners(nil) = %v, want empty", got)
	}
}
