package store

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/sheets/v4"

	"github.com/uhppoted/uhppoted-app-sheetdb/log"
)

// Sheets is a Backend that stores each sheet as a worksheet in a Google Sheets spreadsheet. The
// first row of the worksheet holds the column headers.
type Sheets struct {
	google        *sheets.Service
	spreadsheetID string
}

func NewSheets(google *sheets.Service, spreadsheetID string) *Sheets {
	return &Sheets{
		google:        google,
		spreadsheetID: spreadsheetID,
	}
}

func (s *Sheets) Headers(ctx context.Context, sheet string) ([]string, bool, error) {
	if exists, err := s.exists(ctx, sheet); err != nil {
		return nil, false, err
	} else if !exists {
		return nil, false, nil
	}

	response, err := s.google.Spreadsheets.Values.Get(s.spreadsheetID, fmt.Sprintf("%v!1:1", quote(sheet))).Context(ctx).Do()
	if err != nil {
		return nil, false, fmt.Errorf("Failed to retrieve headers for '%v' (%v)", sheet, err)
	}

	headers := []string{}
	if len(response.Values) > 0 {
		for _, v := range response.Values[0] {
			headers = append(headers, strings.TrimSpace(text(v)))
		}
	}

	return headers, true, nil
}

// Create adds the worksheet if it does not exist (or clears it if it does) and writes the header row.
func (s *Sheets) Create(ctx context.Context, sheet string, headers []string) error {
	exists, err := s.exists(ctx, sheet)
	if err != nil {
		return err
	}

	if !exists {
		rq := sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{
				&sheets.Request{
					AddSheet: &sheets.AddSheetRequest{
						Properties: &sheets.SheetProperties{
							Title: sheet,
						},
					},
				},
			},
		}

		if _, err := s.google.Spreadsheets.BatchUpdate(s.spreadsheetID, &rq).Context(ctx).Do(); err != nil {
			return fmt.Errorf("Failed to add worksheet '%v' (%v)", sheet, err)
		}

		log.Infof("added worksheet '%v'", sheet)
	} else if err := s.clear(ctx, []string{quote(sheet)}); err != nil {
		return err
	}

	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}

	return s.write(ctx, fmt.Sprintf("%v!A1:%v1", quote(sheet), column(len(headers))), row)
}

func (s *Sheets) Rows(ctx context.Context, sheet string) ([][]any, error) {
	response, err := s.google.Spreadsheets.Values.
		Get(s.spreadsheetID, quote(sheet)).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("Failed to retrieve rows for '%v' (%v)", sheet, err)
	}

	if len(response.Values) == 0 {
		return nil, fmt.Errorf("%w '%v'", ErrNoSheet, sheet)
	}

	width := len(response.Values[0])
	rows := [][]any{}

	for _, values := range response.Values[1:] {
		row := make([]any, width)
		for i := range row {
			if i < len(values) {
				row[i] = values[i]
			} else {
				row[i] = ""
			}
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func (s *Sheets) Append(ctx context.Context, sheet string, row []any) error {
	vr := sheets.ValueRange{
		Values: [][]any{cells(row)},
	}

	if _, err := s.google.Spreadsheets.Values.
		Append(s.spreadsheetID, fmt.Sprintf("%v!A1", quote(sheet)), &vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do(); err != nil {
		return fmt.Errorf("Failed to append row to '%v' (%v)", sheet, err)
	}

	return nil
}

func (s *Sheets) Update(ctx context.Context, sheet string, index int, row []any) error {
	if index < 0 {
		return fmt.Errorf("%w %v", ErrInvalidRow, index)
	}

	r := index + 2

	return s.write(ctx, fmt.Sprintf("%v!A%v:%v%v", quote(sheet), r, column(len(row)), r), row)
}

func (s *Sheets) exists(ctx context.Context, sheet string) (bool, error) {
	spreadsheet, err := s.google.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("Failed to fetch spreadsheet (%v)", err)
	}

	for _, ws := range spreadsheet.Sheets {
		if ws.Properties != nil && ws.Properties.Title == sheet {
			return true, nil
		}
	}

	return false, nil
}

func (s *Sheets) write(ctx context.Context, area string, row []any) error {
	vr := sheets.ValueRange{
		Range:  area,
		Values: [][]any{cells(row)},
	}

	if _, err := s.google.Spreadsheets.Values.Update(s.spreadsheetID, area, &vr).ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("Failed to update %v (%v)", area, err)
	}

	return nil
}

func (s *Sheets) clear(ctx context.Context, ranges []string) error {
	rq := sheets.BatchClearValuesRequest{
		Ranges: ranges,
	}

	if _, err := s.google.Spreadsheets.Values.BatchClear(s.spreadsheetID, &rq).Context(ctx).Do(); err != nil {
		return err
	}

	return nil
}

// cells replaces nil values with blanks, since the Sheets API leaves cells with null values unchanged.
func cells(row []any) []any {
	values := make([]any, len(row))
	for i, v := range row {
		if v == nil {
			values[i] = ""
		} else {
			values[i] = v
		}
	}

	return values
}

func quote(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

// column returns the A1 notation column letters for a 1-based column number.
func column(n int) string {
	if n < 1 {
		n = 1
	}

	letters := ""
	for n > 0 {
		n--
		letters = string(rune('A'+n%26)) + letters
		n /= 26
	}

	return letters
}
