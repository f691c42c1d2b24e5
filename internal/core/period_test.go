package core

import "testing"

func TestParsePeriodIntegrated(t *testing.T) {
	cases := []struct {
		label string
		year  int
		seq   int
		ok    bool
	}{
		{"Term 1/2025", 2025, 1, true},
		{"Term 3/2024", 2024, 3, true},
		{"term 2/2025", 2025, 2, true},
		{"Term 4/2025", 0, 0, false}, // only three terms
		{"Term /2025", 0, 0, false},
		{"January 2025", 0, 0, false},
		{"", 0, 0, false},
	}
	for i, tc := range cases {
		p, err := ParsePeriod(Integrated, tc.label)
		if tc.ok {
			if err != nil {
				t.Fatalf("case %d (%q): unexpected error %v", i, tc.label, err)
			}
			if p.Year != tc.year || p.Seq != tc.seq {
				t.Fatalf("case %d (%q): got (%d,%d), want (%d,%d)", i, tc.label, p.Year, p.Seq, tc.year, tc.seq)
			}
		} else if err == nil {
			t.Fatalf("case %d (%q): expected error", i, tc.label)
		}
	}
}

func TestParsePeriodMonthly(t *testing.T) {
	cases := []struct {
		label string
		year  int
		seq   int
		ok    bool
	}{
		{"January 2025", 2025, 1, true},
		{"December 2024", 2024, 12, true},
		{"january 2025", 2025, 1, true},
		{"January/2025", 2025, 1, true},
		{"Janvier 2025", 0, 0, false},
		{"Term 1/2025", 0, 0, false},
		{"January", 0, 0, false},
	}
	for i, tc := range cases {
		p, err := ParsePeriod(Tahfidh, tc.label)
		if tc.ok {
			if err != nil {
				t.Fatalf("case %d (%q): unexpected error %v", i, tc.label, err)
			}
			if p.Year != tc.year || p.Seq != tc.seq {
				t.Fatalf("case %d (%q): got (%d,%d), want (%d,%d)", i, tc.label, p.Year, p.Seq, tc.year, tc.seq)
			}
		} else if err == nil {
			t.Fatalf("case %d (%q): expected error", i, tc.label)
		}
	}
}

func TestComparePeriods(t *testing.T) {
	cases := []struct {
		category Category
		a, b     string
		want     int
	}{
		{Integrated, "Term 1/2025", "Term 2/2025", -1},
		{Integrated, "Term 3/2024", "Term 1/2025", -1},
		{Integrated, "Term 2/2025", "Term 2/2025", 0},
		{Integrated, "Term 2/2025", "Term 1/2025", 1},
		{Talim, "January 2025", "February 2025", -1},
		{Talim, "December 2024", "January 2025", -1},
		{Talim, "March 2025", "March 2025", 0},
		// malformed labels sort first, deterministically
		{Talim, "garbage", "January 2025", -1},
		{Talim, "January 2025", "garbage", 1},
		{Talim, "aaa", "bbb", -1},
	}
	for i, tc := range cases {
		if got := ComparePeriods(tc.category, tc.a, tc.b); got != tc.want {
			t.Fatalf("case %d: ComparePeriods(%q, %q) = %d, want %d", i, tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSortFeeRecordsByPeriod(t *testing.T) {
	recs := []FeeRecord{
		{ID: "c", Period: "Term 3/2025"},
		{ID: "a", Period: "Term 2/2024"},
		{ID: "b", Period: "Term 1/2025"},
	}
	SortFeeRecordsByPeriod(Integrated, recs)
	want := []string{"a", "b", "c"}
	for i, id := range want {
		if recs[i].ID != id {
			t.Fatalf("position %d: got %s, want %s", i, recs[i].ID, id)
		}
	}
}
