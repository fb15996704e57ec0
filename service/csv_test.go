package service

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.csv")
	table := &Table{
		Name:    "users",
		Columns: []string{"id", "name"},
		Rows: [][]any{
			{int64(1), "ada"},
			{int64(2), "grace"},
			{int64(3), nil},
		},
	}

	require.NoError(t, WriteCSV(table, path))

	records := readCSV(t, path)
	require.Len(t, records, len(table.Rows)+1)
	assert.Equal(t, table.Columns, records[0])
	assert.Equal(t, []string{"1", "ada"}, records[1])
	assert.Equal(t, []string{"3", ""}, records[3])
}

func TestWriteCSVRoundTripSingleEmptyColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.csv")
	table := &Table{
		Columns: []string{"note"},
		Rows:    [][]any{{"a"}, {nil}, {""}, {"b"}},
	}
	require.NoError(t, WriteCSV(table, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "note\na\n\"\"\n\"\"\nb\n", string(raw))

	records := readCSV(t, path)
	require.Len(t, records, 5)
	assert.Equal(t, []string{""}, records[2])
	assert.Equal(t, []string{"b"}, records[4])
}

func TestWriteCSVQuotesSpecialCharacters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.csv")
	table := &Table{
		Columns: []string{"body"},
		Rows: [][]any{
			{"a, b"},
			{"line1\nline2"},
			{`say "hi"`},
		},
	}
	require.NoError(t, WriteCSV(table, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "body\n\"a, b\"\n\"line1\nline2\"\n\"say \"\"hi\"\"\"\n", string(raw))

	records := readCSV(t, path)
	assert.Equal(t, "line1\nline2", records[2][0])
}

func TestWriteCSVHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, WriteCSV(&Table{Columns: []string{"a", "b"}}, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(raw))
}

func TestWriteCSVOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale,data\n1,2\n3,4\n"), 0o644))

	require.NoError(t, WriteCSV(&Table{Columns: []string{"id"}, Rows: [][]any{{int64(9)}}}, path))

	assert.Equal(t, [][]string{{"id"}, {"9"}}, readCSV(t, path))
}

func TestWriteCSVFailsOnMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "users.csv")
	err := WriteCSV(&Table{Columns: []string{"id"}}, path)
	require.Error(t, err)
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "abc", "abc"},
		{"bytes", []byte("raw"), "raw"},
		{"int64", int64(-42), "-42"},
		{"uint64", uint64(42), "42"},
		{"float", 3.25, "3.25"},
		{"whole float", float64(7), "7"},
		{"bool", true, "true"},
		{"date", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), "2024-03-09"},
		{"datetime", time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC), "2024-03-09 14:05:06"},
		{"datetime micros", time.Date(2024, 3, 9, 14, 5, 6, 120000000, time.UTC), "2024-03-09 14:05:06.12"},
		{"other", struct{ A int }{1}, "{1}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatCell(tt.in))
		})
	}
}
