// Package export writes a rendered week to a spreadsheet.
package export

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"roombook/internal/model"
	"roombook/internal/slots"
)

const (
	calendarSheet = "Calendar"
	bookingsSheet = "Bookings"
)

var bookingColumns = []string{"Title", "Start", "End", "Duration", "Purpose", "Creator"}

// WeekXLSX writes view as a grid sheet and bookings, the room's bookings in
// the week, as a list sorted by start. The list also holds bookings the grid
// cannot place, such as ones starting off the slot grid or before the week.
func WeekXLSX(w io.Writer, room model.Room, view *slots.WeekView, bookings []model.Booking) error {
	sw := newSheetWriter()
	defer sw.Close()

	if err := sw.AddSheet(calendarSheet); err != nil {
		return err
	}
	if err := writeGrid(sw, room, view); err != nil {
		return fmt.Errorf("write calendar: %w", err)
	}

	if err := sw.AddSheet(bookingsSheet); err != nil {
		return err
	}
	if err := sw.WriteHeader(bookingColumns); err != nil {
		return err
	}
	loc := view.Week.Start.Location()
	for _, b := range sortedByStart(bookings) {
		row := []interface{}{
			b.Title,
			b.Start.In(loc).Format("2006-01-02 15:04"),
			b.End.In(loc).Format("2006-01-02 15:04"),
			slots.DurationLabel(b.Duration()),
			b.Purpose,
			b.Creator,
		}
		if err := sw.WriteRow(row); err != nil {
			return fmt.Errorf("write bookings: %w", err)
		}
	}

	return sw.Save(w)
}

func writeGrid(sw *sheetWriter, room model.Room, view *slots.WeekView) error {
	if err := sw.WriteRow([]interface{}{fmt.Sprintf("%s, %s", room.Title, view.Week)}); err != nil {
		return err
	}

	values := GridValues(view)
	header := make([]string, len(values[0]))
	for i, v := range values[0] {
		header[i] = v.(string)
	}
	if err := sw.WriteHeader(header); err != nil {
		return err
	}

	first := sw.row
	for _, row := range values[1:] {
		if err := sw.WriteRow(row); err != nil {
			return err
		}
	}

	occupied, err := sw.file.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"F4CCCC"}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return err
	}

	for s := range view.Slots {
		for d := range view.Days {
			cell := view.Rows[s][d]
			if cell.State != slots.CellOccupiedStart {
				continue
			}
			last := s + cell.Span - 1
			if last >= len(view.Slots) {
				last = len(view.Slots) - 1
			}
			top, _ := excelize.CoordinatesToCellName(d+2, first+s)
			bottom, _ := excelize.CoordinatesToCellName(d+2, first+last)
			if last > s {
				if err := sw.file.MergeCell(sw.sheet, top, bottom); err != nil {
					return err
				}
			}
			if err := sw.file.SetCellStyle(sw.sheet, top, bottom, occupied); err != nil {
				return err
			}
		}
	}

	return sw.file.SetColWidth(sw.sheet, "B", "H", 22)
}

// GridValues lays view out as rows: a header with the day labels, then one
// row per slot with the booking title in its starting cell.
func GridValues(view *slots.WeekView) [][]interface{} {
	rows := make([][]interface{}, 0, len(view.Slots)+1)
	header := make([]interface{}, 0, len(view.Days)+1)
	header = append(header, "Time")
	for _, d := range view.Days {
		header = append(header, d.Format("Mon 02.01"))
	}
	rows = append(rows, header)

	for s, slot := range view.Slots {
		row := make([]interface{}, 0, len(view.Days)+1)
		row = append(row, slot.Label)
		for d := range view.Days {
			row = append(row, cellText(view.Rows[s][d]))
		}
		rows = append(rows, row)
	}
	return rows
}

func cellText(c slots.Cell) string {
	if c.State != slots.CellOccupiedStart || c.Booking == nil {
		return ""
	}
	if c.Booking.Creator == "" {
		return c.Booking.Title
	}
	return fmt.Sprintf("%s (%s)", c.Booking.Title, c.Booking.Creator)
}

func sortedByStart(bookings []model.Booking) []model.Booking {
	out := slices.Clone(bookings)
	slices.SortStableFunc(out, func(a, b model.Booking) int {
		return a.Start.Compare(b.Start)
	})
	return out
}

type sheetWriter struct {
	file  *excelize.File
	sheet string
	row   int
}

func newSheetWriter() *sheetWriter {
	return &sheetWriter{file: excelize.NewFile()}
}

// AddSheet starts a new sheet, reusing the default one first.
func (w *sheetWriter) AddSheet(name string) error {
	name = sheetName(name)
	if w.sheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	w.sheet = name
	w.row = 1
	return nil
}

// WriteHeader writes a bold header row.
func (w *sheetWriter) WriteHeader(columns []string) error {
	row := make([]interface{}, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	start := w.row
	if err := w.WriteRow(row); err != nil {
		return err
	}

	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	from, _ := excelize.CoordinatesToCellName(1, start)
	to, _ := excelize.CoordinatesToCellName(len(columns), start)
	return w.file.SetCellStyle(w.sheet, from, to, style)
}

func (w *sheetWriter) WriteRow(row []interface{}) error {
	if w.sheet == "" {
		return fmt.Errorf("no active sheet")
	}
	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.row)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.sheet, cell, val); err != nil {
			return err
		}
	}
	w.row++
	return nil
}

func (w *sheetWriter) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

func (w *sheetWriter) Close() error {
	return w.file.Close()
}

// sheetName strips characters Excel rejects and truncates to 31 runes.
func sheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, name)
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}
