package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"
	"time"

	"bullion-bell/internal/calendar"
	"bullion-bell/internal/models"
	"bullion-bell/pkg/utils"
)

func plainOutput(buf *bytes.Buffer) *Output {
	return &Output{writer: buf}
}

func TestTable_AlignsColoredCells(t *testing.T) {
	var buf bytes.Buffer
	out := &Output{writer: &buf, colorEnabled: true}

	table := NewTable(out, "Cur", "Actual")
	table.AddRow("USD", out.Green("4.1%"))
	table.AddRow("JPY", "N/A")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	for _, l := range lines[2:] {
		if w := utils.VisibleWidth(l); w > len("Cur  Actual") {
			t.Errorf("row %q is %d columns wide", utils.StripANSI(l), w)
		}
	}
	if !strings.HasPrefix(utils.StripANSI(lines[2]), "USD  4.1%") {
		t.Errorf("row = %q", utils.StripANSI(lines[2]))
	}
}

func TestPage(t *testing.T) {
	records := make([]models.EventRecord, 5)
	tests := []struct {
		name       string
		size       int
		all        bool
		wantShown  int
		wantHidden int
	}{
		{"fits", 10, false, 5, 0},
		{"paged", 2, false, 2, 3},
		{"all", 2, true, 5, 0},
		{"unbounded", 0, false, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shown, hidden := page(records, tt.size, tt.all)
			if len(shown) != tt.wantShown || hidden != tt.wantHidden {
				t.Errorf("page = %d shown, %d hidden", len(shown), hidden)
			}
		})
	}
}

func TestParseAt(t *testing.T) {
	loc := time.UTC
	for _, in := range []string{"20/09/2024", "2024-09-20"} {
		got, err := parseAt(in, loc)
		if err != nil {
			t.Fatalf("parseAt(%q): %v", in, err)
		}
		if got.Year() != 2024 || got.Month() != time.September || got.Day() != 20 {
			t.Errorf("parseAt(%q) = %v", in, got)
		}
	}
	if _, err := parseAt("09/20/2024", loc); err == nil {
		t.Error("expected error for month/day order")
	}
}

func record(id, date string, imp models.Importance, actual, forecast string) models.EventRecord {
	cur := "USD"
	clock := "12:30"
	return models.EventRecord{
		ID:         models.EventID(id),
		Date:       date,
		Time:       &clock,
		Currency:   &cur,
		Importance: imp,
		Event:      "Event " + id,
		Actual:     models.TextValue(actual),
		Forecast:   models.TextValue(forecast),
		Previous:   models.NullValue(),
	}
}

func TestTerminalView_PublishPagesAndTags(t *testing.T) {
	var buf bytes.Buffer
	view := newTerminalView(context.Background(), plainOutput(&buf), nil, 2, false)

	view.Publish([]models.EventRecord{
		record("1", "19/09/2024", models.ImportanceHigh, "4.1%", "4.0%"),
		record("2", "20/09/2024", models.ImportanceLow, "", ""),
		record("3", "21/09/2024", models.ImportanceMedium, "1.0", "1.0"),
	}, calendar.SourceRemote)

	out := buf.String()
	if !strings.Contains(out, "[LIVE] 3 events") {
		t.Errorf("missing source header:\n%s", out)
	}
	if !strings.Contains(out, "Event 2") || strings.Contains(out, "Event 3") {
		t.Errorf("paging wrong:\n%s", out)
	}
	if !strings.Contains(out, "1 more events") {
		t.Errorf("missing overflow note:\n%s", out)
	}
	if !strings.Contains(out, "N/A") {
		t.Errorf("null values not shown as N/A:\n%s", out)
	}
	if view.publishes != 1 {
		t.Errorf("publishes = %d", view.publishes)
	}
}

func TestTerminalView_JSON(t *testing.T) {
	var buf bytes.Buffer
	view := newTerminalView(context.Background(), &Output{writer: &buf, jsonMode: true}, nil, 50, false)

	view.Publish([]models.EventRecord{record("7", "20/09/2024", models.ImportanceHigh, "1", "2")}, calendar.SourceCache)
	var got publishedWindow
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if got.Source != SourceCache || got.Count != 1 || got.Records[0].ID != "7" {
		t.Errorf("window = %+v", got)
	}

	buf.Reset()
	view.NotifyError(errors.New("provider down"))
	if !strings.Contains(buf.String(), `"error": "provider down"`) {
		t.Errorf("error JSON = %s", buf.String())
	}
}

func solid(c color.Color, w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestHalfBlocks(t *testing.T) {
	lines := halfBlocks(solid(color.RGBA{R: 200, A: 255}, 16, 16))
	if len(lines) != 8 {
		t.Fatalf("got %d lines, want 8", len(lines))
	}
	if w := utils.VisibleWidth(lines[0]); w != 16 {
		t.Errorf("line width = %d, want 16", w)
	}
	if !strings.Contains(lines[0], "\033[38;2;200;0;0m\033[48;2;200;0;0m▀") {
		t.Errorf("unexpected cell encoding %q", lines[0][:40])
	}

	if got := len(halfBlocks(solid(color.White, 4, 3))); got != 2 {
		t.Errorf("odd height rendered %d lines, want 2", got)
	}
}

func TestFlagChip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if x < 8 {
				img.Set(x, y, color.RGBA{B: 255, A: 255})
			} else {
				img.Set(x, y, color.RGBA{R: 255, A: 255})
			}
		}
	}

	chip := flagChip(img)
	if w := utils.VisibleWidth(chip); w != 2 {
		t.Errorf("chip width = %d, want 2", w)
	}
	if !strings.HasPrefix(chip, "\033[38;2;0;0;255m") || !strings.Contains(chip, "\033[38;2;255;0;0m") {
		t.Errorf("chip colors = %q", chip)
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := NewRootCmd("test")
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestRootCmd_Version(t *testing.T) {
	out, err := runCLI(t, "version", "--json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"version": "test"`) {
		t.Errorf("output = %s", out)
	}
}

func TestRootCmd_OfflineCalendar(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BULLION_LOG_LEVEL", "error")

	out, err := runCLI(t, "--config", dir, "calendar", "--offline", "--json", "--at", "20/09/2024")
	if err != nil {
		t.Fatalf("calendar: %v\n%s", err, out)
	}
	var got publishedWindow
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if got.Source != SourceCache || got.Count != 0 {
		t.Errorf("window = %+v", got)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	rec := record("42", "20/09/2024", models.ImportanceHigh, "4.1%", "4.0%")
	if err := writeCSV(&buf, []models.EventRecord{rec}); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if lines[0] != "id,date,time,zone,currency,importance,event,actual,forecast,previous" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "42,20/09/2024,12:30,,USD,high,Event 42,4.1%,4.0%," {
		t.Errorf("row = %q", lines[1])
	}
}
