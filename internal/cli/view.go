package cli

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"

	"bullion-bell/internal/calendar"
	"bullion-bell/internal/flags"
	"bullion-bell/internal/models"
	"bullion-bell/pkg/utils"
)

const eventColumnWidth = 48

// terminalView renders published calendar windows as tables.
type terminalView struct {
	ctx      context.Context
	out      *Output
	flags    *flags.Cache
	pageSize int
	all      bool

	publishes int
	errs      []error
}

func newTerminalView(ctx context.Context, out *Output, fc *flags.Cache, pageSize int, all bool) *terminalView {
	return &terminalView{
		ctx:      ctx,
		out:      out,
		flags:    fc,
		pageSize: pageSize,
		all:      all,
	}
}

type publishedWindow struct {
	Source  string               `json:"source"`
	Count   int                  `json:"count"`
	Records []models.EventRecord `json:"records"`
}

// Publish implements calendar.View.
func (v *terminalView) Publish(records []models.EventRecord, source calendar.Source) {
	v.publishes++
	tag := sourceName(source)

	shown, hidden := page(records, v.pageSize, v.all)

	if v.out.IsJSON() {
		v.out.JSON(publishedWindow{Source: tag, Count: len(records), Records: shown})
		return
	}

	v.out.Println()
	v.out.Printf("%s %d events\n", v.out.SourceTag(tag), len(records))

	table := NewTable(v.out, "", "Date", "Time", "Cur", "Impact", "Event", "Actual", "Forecast", "Previous")
	for _, rec := range shown {
		table.AddRow(
			v.chip(rec.CurrencyCode()),
			rec.Date,
			orDash(rec.ClockTime()),
			orDash(rec.CurrencyCode()),
			v.importance(rec.Importance),
			utils.Truncate(rec.Event, eventColumnWidth),
			v.actual(rec),
			rec.Forecast.Display(),
			rec.Previous.Display(),
		)
	}
	table.Render()

	if hidden > 0 {
		v.out.Dim("… %d more events (use --all to show every row)", hidden)
	}
}

// NotifyError implements calendar.View.
func (v *terminalView) NotifyError(err error) {
	v.errs = append(v.errs, err)
	if v.out.IsJSON() {
		v.out.JSON(map[string]string{"error": err.Error()})
		return
	}
	v.out.Error("Calendar sync failed: %v", err)
}

func (v *terminalView) chip(code string) string {
	if v.flags == nil || code == "" || !v.out.ColorEnabled() {
		return "  "
	}
	img, ok := v.flags.GetContext(v.ctx, code)
	if !ok {
		return "  "
	}
	return flagChip(img)
}

func (v *terminalView) importance(imp models.Importance) string {
	label := strings.ToLower(string(imp))
	switch models.Importance(label) {
	case models.ImportanceHigh:
		return v.out.Red("●●● " + label)
	case models.ImportanceMedium:
		return v.out.Yellow("●●○ " + label)
	case models.ImportanceLow:
		return v.out.DimText("●○○ " + label)
	default:
		return orDash(label)
	}
}

func (v *terminalView) actual(rec models.EventRecord) string {
	text := rec.Actual.Display()
	switch models.Compare(rec.Actual, rec.Forecast) {
	case models.SurpriseBeat:
		return v.out.Green(text)
	case models.SurpriseMiss:
		return v.out.Red(text)
	default:
		return text
	}
}

func sourceName(s calendar.Source) string {
	if s == calendar.SourceRemote {
		return SourceRemote
	}
	return SourceCache
}

// page returns the rows to draw and how many were left out.
func page(records []models.EventRecord, size int, all bool) ([]models.EventRecord, int) {
	if all || size <= 0 || len(records) <= size {
		return records, 0
	}
	return records[:size], len(records) - size
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// halfBlocks renders img with one "▀" per column and two pixel rows per
// line, foreground for the upper pixel and background for the lower.
func halfBlocks(img image.Image) []string {
	b := img.Bounds()
	var lines []string
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		var sb strings.Builder
		for x := b.Min.X; x < b.Max.X; x++ {
			top := img.At(x, y)
			bottom := top
			if y+1 < b.Max.Y {
				bottom = img.At(x, y+1)
			}
			sb.WriteString(cell(top, bottom))
		}
		sb.WriteString(ColorReset)
		lines = append(lines, sb.String())
	}
	return lines
}

// flagChip squeezes img into two terminal columns.
func flagChip(img image.Image) string {
	b := img.Bounds()
	midX := b.Min.X + b.Dx()/2
	midY := b.Min.Y + b.Dy()/2

	left := cell(
		average(img, image.Rect(b.Min.X, b.Min.Y, midX, midY)),
		average(img, image.Rect(b.Min.X, midY, midX, b.Max.Y)),
	)
	right := cell(
		average(img, image.Rect(midX, b.Min.Y, b.Max.X, midY)),
		average(img, image.Rect(midX, midY, b.Max.X, b.Max.Y)),
	)
	return left + right + ColorReset
}

func cell(top, bottom color.Color) string {
	tr, tg, tb := rgb8(top)
	br, bg, bb := rgb8(bottom)
	return fmt.Sprintf("\033[38;2;%d;%d;%dm\033[48;2;%d;%d;%dm▀", tr, tg, tb, br, bg, bb)
}

// rgb8 flattens c onto black.
func rgb8(c color.Color) (uint8, uint8, uint8) {
	r, g, b, _ := c.RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}

func average(img image.Image, r image.Rectangle) color.Color {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return color.Black
	}
	var sr, sg, sb, n uint64
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			sr += uint64(cr)
			sg += uint64(cg)
			sb += uint64(cb)
			n++
		}
	}
	return color.RGBA64{R: uint16(sr / n), G: uint16(sg / n), B: uint16(sb / n), A: 0xffff}
}
