// Package export mirrors transactions into a Google Sheets spreadsheet as an
// off-site backup.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"grana/internal/core"
)

// SheetsClient appends and removes transaction rows in a single sheet. The
// first column holds the transaction id, which makes rows addressable for
// removal.
type SheetsClient struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

func NewSheetsClient(ctx context.Context, credsFile, spreadsheetID, sheetName string) (*SheetsClient, error) {
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if sheetName == "" {
		return nil, errors.New("missing sheet name")
	}
	if credsFile == "" {
		return nil, errors.New("missing credentials file")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsFile(credsFile),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsClient{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// Append adds one transaction as a row at the end of the sheet.
func (c *SheetsClient) Append(ctx context.Context, tx core.Transaction) error {
	row := []any{
		tx.ID,
		tx.Date.String(),
		tx.Description,
		tx.Amount.StringFixed(2),
		string(tx.Type),
		tx.CategoryName(),
		installmentLabel(tx),
		tx.UserID,
	}

	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, c.sheetName+"!A:H", &gsheet.ValueRange{Values: [][]any{row}}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}

	slog.InfoContext(ctx, "Transaction backed up to sheet",
		"id", tx.ID,
		"sheet", c.sheetName)
	return nil
}

// Remove deletes the row whose id column matches. A missing row is not an
// error: the backup may never have seen the record.
func (c *SheetsClient) Remove(ctx context.Context, id string) error {
	resp, err := c.svc.Spreadsheets.Values.
		Get(c.spreadsheetID, c.sheetName+"!A:A").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("read id column: %w", err)
	}

	rowIndex := -1
	for i, row := range resp.Values {
		if len(row) > 0 && fmt.Sprint(row[0]) == id {
			rowIndex = i
			break
		}
	}
	if rowIndex < 0 {
		slog.WarnContext(ctx, "Transaction not found in sheet, nothing to remove", "id", id)
		return nil
	}

	sheetID, err := c.sheetID(ctx)
	if err != nil {
		return err
	}

	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(rowIndex),
					EndIndex:   int64(rowIndex + 1),
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("delete row %d: %w", rowIndex+1, err)
	}

	slog.InfoContext(ctx, "Transaction removed from sheet backup", "id", id)
	return nil
}

func (c *SheetsClient) sheetID(ctx context.Context) (int64, error) {
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet metadata: %w", err)
	}
	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil && strings.EqualFold(sheet.Properties.Title, c.sheetName) {
			return sheet.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
}

func installmentLabel(tx core.Transaction) string {
	if tx.TotalInstallments > 1 {
		return fmt.Sprintf("%d/%d", tx.InstallmentNumber, tx.TotalInstallments)
	}
	if tx.IsRecurring {
		return "recorrente " + string(tx.RecurrencePeriod)
	}
	return ""
}
