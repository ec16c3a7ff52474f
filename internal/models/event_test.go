package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseRecord_AcceptsNumericAndStringIDs(t *testing.T) {
	rec, err := ParseRecord(json.RawMessage(`{"id": 412, "date": "20/09/2024", "event": "CPI y/y", "time": null, "currency": "usd", "actual": 2.5, "forecast": "2.4%", "previous": null}`))
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	if rec.ID != "412" {
		t.Errorf("ID = %q, want 412", rec.ID)
	}
	if rec.Time != nil {
		t.Errorf("Time = %v, want nil", *rec.Time)
	}
	if rec.CurrencyCode() != "USD" {
		t.Errorf("CurrencyCode = %q, want USD", rec.CurrencyCode())
	}
	if !rec.Previous.IsNull() || rec.Previous.Display() != NotAvailable {
		t.Errorf("Previous should be null and display N/A, got %q", rec.Previous.Display())
	}

	rec, err = ParseRecord(json.RawMessage(`{"id": "abc-1", "date": "21/09/2024", "event": "GDP"}`))
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	if rec.ID != "abc-1" {
		t.Errorf("ID = %q, want abc-1", rec.ID)
	}
}

func TestParseRecord_RequiredKeys(t *testing.T) {
	cases := map[string]string{
		"missing id":    `{"date": "20/09/2024", "event": "CPI"}`,
		"null id":       `{"id": null, "date": "20/09/2024", "event": "CPI"}`,
		"missing date":  `{"id": 1, "event": "CPI"}`,
		"missing event": `{"id": 1, "date": "20/09/2024"}`,
		"not an object": `[1, 2]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseRecord(json.RawMessage(raw)); err == nil {
				t.Errorf("expected error for %s", raw)
			}
		})
	}
}

func TestValue_KeepsJSONKind(t *testing.T) {
	var rec EventRecord
	in := `{"id":"1","date":"20/09/2024","time":"12:30","zone":"united states","currency":"USD","importance":"high","event":"NFP","actual":254,"forecast":"150K","previous":null}`
	if err := json.Unmarshal([]byte(in), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(out)
	for _, want := range []string{`"actual":254`, `"forecast":"150K"`, `"previous":null`} {
		if !strings.Contains(s, want) {
			t.Errorf("marshaled record %s missing %s", s, want)
		}
	}
}

func TestValue_Number(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2.5%", "2.5", true},
		{"150K", "150000", true},
		{"-1.2B", "-1200000000", true},
		{"1,234.5", "1234.5", true},
		{"", "0", false},
		{"n/a", "0", false},
	}
	for _, tc := range cases {
		got, ok := TextValue(tc.in).Number()
		if ok != tc.ok {
			t.Errorf("Number(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Errorf("Number(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
	if _, ok := NullValue().Number(); ok {
		t.Error("null value should not parse as a number")
	}
}

func TestCompare(t *testing.T) {
	if got := Compare(TextValue("3.1%"), TextValue("2.9%")); got != SurpriseBeat {
		t.Errorf("Compare beat = %v", got)
	}
	if got := Compare(TextValue("180K"), TextValue("200K")); got != SurpriseMiss {
		t.Errorf("Compare miss = %v", got)
	}
	if got := Compare(NumberValue(decimal.NewFromInt(5)), TextValue("5")); got != SurpriseInline {
		t.Errorf("Compare inline = %v", got)
	}
	if got := Compare(NullValue(), TextValue("5")); got != SurpriseUnknown {
		t.Errorf("Compare unknown = %v", got)
	}
}

func TestStartsAt(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	rec := EventRecord{ID: "1", Date: "20/09/2024", Time: StringPtr("08:30")}
	at, ok := rec.StartsAt(loc)
	if !ok {
		t.Fatal("expected a start time")
	}
	want := time.Date(2024, 9, 20, 8, 30, 0, 0, loc)
	if !at.Equal(want) {
		t.Errorf("StartsAt = %v, want %v", at, want)
	}

	for _, clock := range []*string{nil, StringPtr("All Day"), StringPtr("Tentative")} {
		rec.Time = clock
		if _, ok := rec.StartsAt(loc); ok {
			t.Errorf("StartsAt should fail for %v", clock)
		}
	}
}

func TestDates(t *testing.T) {
	d, err := ParseDate("05/03/2024")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Day() != 5 || d.Month() != time.March || d.Year() != 2024 {
		t.Errorf("ParseDate = %v", d)
	}
	if FormatDate(d) != "05/03/2024" {
		t.Errorf("FormatDate = %s", FormatDate(d))
	}
	if _, err := ParseDate("2024-03-05"); err == nil {
		t.Error("ParseDate should reject ISO dates")
	}

	late := time.Date(2024, 9, 20, 23, 59, 0, 0, time.FixedZone("X", 9*3600))
	if got := CalendarDate(late); !got.Equal(time.Date(2024, 9, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("CalendarDate = %v", got)
	}
}

func TestImportance(t *testing.T) {
	if !ImportanceHigh.AtLeast(ImportanceMedium) {
		t.Error("high should be at least medium")
	}
	if ImportanceLow.AtLeast(ImportanceHigh) {
		t.Error("low should not be at least high")
	}
	if Importance("HIGH").Rank() != 3 {
		t.Error("importance rank should be case-insensitive")
	}
	if Importance("").AtLeast(Importance("")) {
		t.Error("unknown importance never qualifies")
	}
}
