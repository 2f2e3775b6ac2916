package docs

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTablesCoverOutputColumns(t *testing.T) {
	tables := Tables()
	require.Len(t, tables, 2)

	names := map[string]Column{}
	for _, c := range tables[0].Columns {
		names[c.Name] = c
	}
	for _, col := range []string{"book_id", "titulo", "isbn13", "rating_promedio", "fuente_ganadora", "ts_ultima_actualizacion"} {
		assert.Contains(t, names, col)
	}
	assert.False(t, names["book_id"].Nullable)
	assert.True(t, names["titulo"].Nullable)

	for _, table := range tables {
		for _, c := range table.Columns {
			assert.NotEmpty(t, c.Description, "%s.%s has no description", table.Name, c.Name)
		}
	}
}

func TestWriteSchema(t *testing.T) {
	path, err := WriteSchema(t.TempDir(), "v1.2.3", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "## dim_book")
	assert.Contains(t, content, "## book_source_detail")
	assert.Contains(t, content, "| book_id |")
	assert.Contains(t, content, "v1.2.3")
	assert.Contains(t, content, "2024-05-01T00:00:00Z")
}
