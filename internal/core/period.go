package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Period is a parsed fee period label. Seq is the term number for the
// integrated category and the calendar month for the monthly categories,
// so (Year, Seq) orders periods chronologically in both schemes.
type Period struct {
	Label string
	Year  int
	Seq   int
}

// ParsePeriod parses a period label according to the student's category.
//
// Integrated students are billed per term ("Term 1/2025"); tahfidh and
// ta'lim students are billed per month ("January 2025", "January/2025").
func ParsePeriod(category Category, label string) (Period, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Period{}, ErrInvalidPeriod
	}
	if category == Integrated {
		return parseTermPeriod(label)
	}
	return parseMonthPeriod(label)
}

func parseTermPeriod(label string) (Period, error) {
	rest, ok := cutPrefixFold(label, "term")
	if !ok {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, label)
	}
	num, yearStr, ok := strings.Cut(strings.TrimSpace(rest), "/")
	if !ok {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, label)
	}
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil || n < 1 || n > 3 {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, label)
	}
	year, err := strconv.Atoi(strings.TrimSpace(yearStr))
	if err != nil || year < 2000 || year > 2199 {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, label)
	}
	return Period{Label: label, Year: year, Seq: n}, nil
}

func parseMonthPeriod(label string) (Period, error) {
	sep := " "
	if strings.Contains(label, "/") {
		sep = "/"
	}
	name, yearStr, ok := strings.Cut(label, sep)
	if !ok {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, label)
	}
	month := monthNumber(strings.TrimSpace(name))
	if month == 0 {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, label)
	}
	year, err := strconv.Atoi(strings.TrimSpace(yearStr))
	if err != nil || year < 2000 || year > 2199 {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, label)
	}
	return Period{Label: label, Year: year, Seq: month}, nil
}

func monthNumber(name string) int {
	for m := time.January; m <= time.December; m++ {
		if strings.EqualFold(name, m.String()) {
			return int(m)
		}
	}
	return 0
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

// key positions a period on a single chronological axis.
func (p Period) key() int {
	return p.Year*100 + p.Seq
}

// ComparePeriods orders two period labels chronologically for a category.
// The ordering is total: labels that fail to parse sort before valid ones,
// among themselves by raw label, so reconciliation never sees an undefined
// order even if a malformed label slipped past entry validation.
func ComparePeriods(category Category, a, b string) int {
	pa, errA := ParsePeriod(category, a)
	pb, errB := ParsePeriod(category, b)
	switch {
	case errA != nil && errB != nil:
		return strings.Compare(a, b)
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	}
	switch {
	case pa.key() < pb.key():
		return -1
	case pa.key() > pb.key():
		return 1
	default:
		return 0
	}
}

// SortFeeRecordsByPeriod sorts a student's fee records chronologically
// in place, using the category's period scheme.
func SortFeeRecordsByPeriod(category Category, records []FeeRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return ComparePeriods(category, records[i].Period, records[j].Period) < 0
	})
}
