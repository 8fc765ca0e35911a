package rowio

import (
	"context"
	"encoding/csv"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVSource reads a lead sheet from a local CSV file. The first record
// is the header row.
type CSVSource struct {
	Path string
}

func (s *CSVSource) Read(ctx context.Context) (*Table, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, eris.Wrap(err, "rowio: open csv")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // lead sheets are ragged

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "rowio: read csv")
	}
	if len(records) == 0 {
		return nil, eris.Errorf("rowio: %s has no header row", s.Path)
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}
	return &Table{Headers: headers, Rows: records[1:]}, nil
}

// CSVSink writes the result table to a fresh CSV file.
type CSVSink struct {
	Path string
}

func (s *CSVSink) Write(ctx context.Context, headers []string, records [][]string) error {
	f, err := os.Create(s.Path)
	if err != nil {
		return eris.Wrap(err, "rowio: create output csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		return eris.Wrap(err, "rowio: write header")
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			return eris.Wrap(err, "rowio: write row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "rowio: flush output csv")
}
