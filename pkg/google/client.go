package google

import (
	"context"
	"fmt"

	"github.com/harrisonrobin/taskboard/pkg/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Scopes are the OAuth scopes the spreadsheet sync needs.
var Scopes = []string{sheets.SpreadsheetsScope}

// NewClient authorizes through the cached OAuth token in configDir and
// returns a values client for one spreadsheet.
func NewClient(ctx context.Context, configDir, spreadsheetID string, log *zap.Logger) (*SheetValues, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("no spreadsheet configured; run `taskboard config set-sheet <id>`")
	}
	g := &auth.Google{Dir: configDir, Scopes: Scopes, Log: log}
	client, err := g.Client(ctx)
	if err != nil {
		return nil, err
	}
	return NewSheetValues(ctx, spreadsheetID, option.WithHTTPClient(client))
}

// NewSheetValues builds the Sheets service directly from client options.
func NewSheetValues(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*SheetValues, error) {
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Sheets client: %w", err)
	}
	return &SheetValues{srv: srv, spreadsheetID: spreadsheetID}, nil
}
