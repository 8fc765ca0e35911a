package rowio

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				cell := row.AddCell()
				cell.SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "leads.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestXLSXSource_Read(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sayfa1": {
			{"Şirket Adı", "Sektör", "Personel"},
			{"Hız Lojistik A.Ş.", "Lojistik", "1200"},
			{"Boya Kimya", "Kimya", "450"},
		},
	})

	src := &XLSXSource{Path: path}
	table, err := src.Read(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Şirket Adı", "Sektör", "Personel"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"Hız Lojistik A.Ş.", "Lojistik", "1200"}, table.Rows[0])
}

func TestXLSXSource_NamedSheet(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Özet":  {{"ignore"}},
		"Leads": {{"name"}, {"Acme"}},
	})

	src := &XLSXSource{Path: path, Sheet: "Leads"}
	table, err := src.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, table.Headers)
	require.Len(t, table.Rows, 1)
}

func TestXLSXSource_SheetNotFound(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sayfa1": {{"a"}},
	})

	src := &XLSXSource{Path: path, Sheet: "Missing"}
	_, err := src.Read(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestXLSXSource_EmptySheet(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sayfa1": {},
	})

	src := &XLSXSource{Path: path}
	_, err := src.Read(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no header row")
}

func TestXLSXSource_MissingFile(t *testing.T) {
	src := &XLSXSource{Path: filepath.Join(t.TempDir(), "absent.xlsx")}
	_, err := src.Read(context.Background())
	require.Error(t, err)
}
