package google

import (
	"context"
	"fmt"

	"google.golang.org/api/sheets/v4"
)

// SheetValues reads and writes cell values of one spreadsheet.
type SheetValues struct {
	srv           *sheets.Service
	spreadsheetID string
}

// Get returns the rows in rng as strings. Trailing empty cells are omitted by
// the API, so rows may be ragged.
func (v *SheetValues) Get(ctx context.Context, rng string) ([][]string, error) {
	resp, err := v.srv.Spreadsheets.Values.Get(v.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rng, err)
	}
	rows := make([][]string, 0, len(resp.Values))
	for _, r := range resp.Values {
		row := make([]string, len(r))
		for i, cell := range r {
			if cell != nil {
				row[i] = fmt.Sprint(cell)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Update writes rows starting at the top-left cell of rng. Values are stored
// as entered, not parsed.
func (v *SheetValues) Update(ctx context.Context, rng string, rows [][]string) error {
	values := make([][]interface{}, len(rows))
	for i, r := range rows {
		values[i] = make([]interface{}, len(r))
		for j, cell := range r {
			values[i][j] = cell
		}
	}
	_, err := v.srv.Spreadsheets.Values.Update(v.spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("writing %s: %w", rng, err)
	}
	return nil
}

// Clear empties every cell in rng.
func (v *SheetValues) Clear(ctx context.Context, rng string) error {
	_, err := v.srv.Spreadsheets.Values.Clear(v.spreadsheetID, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clearing %s: %w", rng, err)
	}
	return nil
}
