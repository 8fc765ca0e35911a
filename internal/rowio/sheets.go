package rowio

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsClient wraps the Google Sheets API for range reads and updates.
type SheetsClient struct {
	service *sheets.Service
}

// NewSheetsClient builds a Sheets client. With an empty credentials path
// the service falls back to application default credentials.
func NewSheetsClient(ctx context.Context, credentialsFile string) (*SheetsClient, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "rowio: create sheets service")
	}
	return &SheetsClient{service: service}, nil
}

// SheetsSource reads a rectangular range from a Google Sheets
// spreadsheet. The range's first row is the header row.
type SheetsSource struct {
	Client        *SheetsClient
	SpreadsheetID string
	Range         *RangeRef
}

func (s *SheetsSource) Read(ctx context.Context) (*Table, error) {
	resp, err := s.Client.service.Spreadsheets.Values.Get(s.SpreadsheetID, s.Range.String()).Context(ctx).Do()
	if err != nil {
		return nil, eris.Wrapf(err, "rowio: read range %s", s.Range)
	}
	if len(resp.Values) == 0 {
		return nil, eris.Errorf("rowio: range %s has no header row", s.Range)
	}

	rows := make([][]string, 0, len(resp.Values)-1)
	for _, row := range resp.Values[1:] {
		rows = append(rows, cellStrings(row))
	}
	return &Table{Headers: cellStrings(resp.Values[0]), Rows: rows}, nil
}

// SheetsSink writes result columns into the block immediately right of
// the source range, header row included, preserving input row order.
type SheetsSink struct {
	Client        *SheetsClient
	SpreadsheetID string
	Source        *RangeRef
}

func (s *SheetsSink) Write(ctx context.Context, headers []string, records [][]string) error {
	target := s.Source.ResultRange(len(headers), len(records)+1)

	values := make([][]any, 0, len(records)+1)
	values = append(values, cellValues(headers))
	for _, rec := range records {
		values = append(values, cellValues(rec))
	}

	_, err := s.Client.service.Spreadsheets.Values.
		Update(s.SpreadsheetID, target.String(), &sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	return eris.Wrapf(err, "rowio: update range %s", target)
}

func cellStrings(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = fmt.Sprintf("%v", v)
	}
	return out
}

func cellValues(rec []string) []any {
	out := make([]any, len(rec))
	for i, v := range rec {
		out[i] = v
	}
	return out
}
