package rowio

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// RangeRef is a parsed A1-notation range. Column and row indexes are
// zero-based and inclusive. EndRow == -1 means the row extent is open
// ("A2:E"); columns are always bounded.
type RangeRef struct {
	Sheet    string
	StartCol int
	StartRow int
	EndCol   int
	EndRow   int
}

// ParseRange parses A1 notation like "Sheet1!A2:E100", "'Lead List'!B2:F",
// or "A1:E50". A malformed or inverted range is an input error the batch
// must not start from.
func ParseRange(s string) (*RangeRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, eris.New("rowio: empty range")
	}

	r := &RangeRef{}
	if bang := strings.LastIndex(s, "!"); bang >= 0 {
		r.Sheet = strings.Trim(s[:bang], "'")
		s = s[bang+1:]
		if r.Sheet == "" {
			return nil, eris.New("rowio: range has empty sheet name")
		}
	}
	if s == "" {
		return nil, eris.New("rowio: range has no cells")
	}

	parts := strings.Split(s, ":")
	if len(parts) > 2 {
		return nil, eris.Errorf("rowio: malformed range %q", s)
	}

	var err error
	r.StartCol, r.StartRow, err = parseCell(parts[0])
	if err != nil {
		return nil, err
	}
	if r.StartRow < 0 {
		// A bare column start like "A:E100" has no anchor row.
		return nil, eris.Errorf("rowio: range start %q has no row", parts[0])
	}

	if len(parts) == 1 {
		r.EndCol, r.EndRow = r.StartCol, r.StartRow
		return r, nil
	}

	r.EndCol, r.EndRow, err = parseCell(parts[1])
	if err != nil {
		return nil, err
	}
	if r.EndCol < r.StartCol {
		return nil, eris.Errorf("rowio: range %q ends before it starts", s)
	}
	if r.EndRow >= 0 && r.EndRow < r.StartRow {
		return nil, eris.Errorf("rowio: range %q ends before it starts", s)
	}
	return r, nil
}

// parseCell splits an endpoint like "AB10" into zero-based column and
// row. A missing row part yields row -1 (open extent).
func parseCell(s string) (col, row int, err error) {
	if s == "" {
		return 0, 0, eris.New("rowio: empty range endpoint")
	}

	i := 0
	for i < len(s) && isColLetter(s[i]) {
		col = col*26 + int(upper(s[i])-'A') + 1
		i++
	}
	if col == 0 {
		return 0, 0, eris.Errorf("rowio: endpoint %q has no column letters", s)
	}
	col--

	if i == len(s) {
		return col, -1, nil
	}
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, 0, eris.Errorf("rowio: malformed endpoint %q", s)
		}
		row = row*10 + int(s[i]-'0')
	}
	if row == 0 {
		return 0, 0, eris.Errorf("rowio: endpoint %q addresses row 0", s)
	}
	return col, row - 1, nil
}

func isColLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

// String reassembles the range in A1 notation for the Sheets API.
func (r *RangeRef) String() string {
	var b strings.Builder
	if r.Sheet != "" {
		if strings.ContainsAny(r.Sheet, " !'") {
			b.WriteString("'" + strings.ReplaceAll(r.Sheet, "'", "''") + "'")
		} else {
			b.WriteString(r.Sheet)
		}
		b.WriteString("!")
	}
	b.WriteString(ColumnLabel(r.StartCol))
	fmt.Fprintf(&b, "%d", r.StartRow+1)
	if r.EndCol != r.StartCol || r.EndRow != r.StartRow {
		b.WriteString(":")
		b.WriteString(ColumnLabel(r.EndCol))
		if r.EndRow >= 0 {
			fmt.Fprintf(&b, "%d", r.EndRow+1)
		}
	}
	return b.String()
}

// ResultRange returns the block immediately right of this range where
// result columns land: same sheet, same anchor row, width columns wide
// and rows rows tall (header included).
func (r *RangeRef) ResultRange(width, rows int) *RangeRef {
	return &RangeRef{
		Sheet:    r.Sheet,
		StartCol: r.EndCol + 1,
		StartRow: r.StartRow,
		EndCol:   r.EndCol + width,
		EndRow:   r.StartRow + rows - 1,
	}
}

// ColumnLabel converts a zero-based column index to A1 letters
// (0 → "A", 25 → "Z", 26 → "AA").
func ColumnLabel(i int) string {
	var letters []byte
	for i >= 0 {
		letters = append([]byte{byte('A' + i%26)}, letters...)
		i = i/26 - 1
	}
	return string(letters)
}
