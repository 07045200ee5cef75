package importer

import (
	"os"
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
	path := filepath.Join(t.TempDir(), "places.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func readTestXLSX(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test fixture
	require.NoError(t, err)
	return data
}

func TestReadXLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"ID", "Name", "Type", "City", "Country", "Lat", "Lon"},
			{"sf-1", "Sagrada Familia", "church", "Barcelona", "Spain", "41.4036", "2.1744"},
			{"", "", "", "", "", "", ""},
			{"cb-1", "Casa Batlló", "building", "Barcelona", "Spain", "", ""},
		},
	})

	places, err := ReadXLSX(readTestXLSX(t, path), XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, places, 2)

	assert.Equal(t, "sf-1", places[0].ID)
	assert.Equal(t, "church", places[0].Kind)
	require.NotNil(t, places[0].Coords)
	assert.InDelta(t, 41.4036, places[0].Coords.Lat, 1e-9)
	assert.Equal(t, "Casa Batlló", places[1].Name)
	assert.Nil(t, places[1].Coords)
}

func TestReadXLSX_SheetName(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Notes":  {{"hello"}},
		"Places": {{"name"}, {"Louvre"}},
	})

	places, err := ReadXLSX(readTestXLSX(t, path), XLSXOptions{SheetName: "Places"})
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "Louvre", places[0].Name)

	_, err = ReadXLSX(readTestXLSX(t, path), XLSXOptions{SheetName: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `sheet "Missing" not found`)
}

func TestReadXLSX_SheetIndexOutOfRange(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{"Sheet1": {{"name"}}})

	_, err := ReadXLSX(readTestXLSX(t, path), XLSXOptions{SheetIndex: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestReadXLSX_NotAWorkbook(t *testing.T) {
	_, err := ReadXLSX([]byte("not a zip"), XLSXOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xlsx: open workbook")
}
