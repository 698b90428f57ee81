package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func roster() Dataset {
	return Dataset{
		Title:   "Algebra",
		Headers: []string{"id", "first_name", "last_name", "age"},
		Rows: [][]string{
			{"1", "Ada", "Lovelace", "20"},
			{"2", "Grace", "Hopper", "30"},
		},
	}
}

func TestCSVExporter(t *testing.T) {
	out, err := NewCSVExporter().Render(roster())
	require.NoError(t, err)
	assert.Equal(t, "id,first_name,last_name,age\n1,Ada,Lovelace,20\n2,Grace,Hopper,30\n", string(out))
}

func TestExportersRejectBadDatasets(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)

	ragged := roster()
	ragged.Rows = append(ragged.Rows, []string{"3"})
	_, err = NewPDFExporter().Render(ragged)
	assert.Error(t, err)
	_, err = NewXLSXExporter().Render(ragged)
	assert.Error(t, err)
}

func TestPDFExporter(t *testing.T) {
	out, err := NewPDFExporter().Render(roster())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestXLSXExporter(t *testing.T) {
	out, err := NewXLSXExporter().Render(roster())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	assert.Equal(t, "Algebra", f.GetSheetName(0))
	rows, err := f.GetRows("Algebra")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"id", "first_name", "last_name", "age"},
		{"1", "Ada", "Lovelace", "20"},
		{"2", "Grace", "Hopper", "30"},
	}, rows)
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, defaultSheet, sheetName(""))
	assert.Equal(t, "AB", sheetName("A/B"))
	assert.Len(t, []rune(sheetName("An extremely long course name for a sheet title")), 31)
}
