package epidata

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	table := NewTable()
	if err := table.AddColumn("ID_County", []any{int64(1001), int64(1002)}); err != nil {
		t.Fatalf("AddColumn failed: %v", err)
	}
	if err := table.AddColumn("Population", []any{89504.0, 246601.0}); err != nil {
		t.Fatalf("AddColumn failed: %v", err)
	}
	return table
}

func TestWriteTableJSON(t *testing.T) {
	dir := t.TempDir()
	if err := WriteTable(sampleTable(t), dir, "counties", "json", nil); err != nil {
		t.Fatalf("WriteTable failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "counties.json"))
	if err != nil {
		t.Fatalf("Failed to read artifact: %v", err)
	}
	want := `[{"ID_County":1001,"Population":89504},{"ID_County":1002,"Population":246601}]`
	if string(data) != want {
		t.Errorf("Expected %s, got %s", want, string(data))
	}
}

func TestWriteTableUnsupportedFormat(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	err := WriteTable(sampleTable(t), dir, "counties", "xml", nil)

	var formatErr *UnsupportedFormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("Expected *UnsupportedFormatError, got %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("Expected no output directory for an unsupported format")
	}
}

func TestWriteTableTimeAsString(t *testing.T) {
	table := NewTable()
	table.AddColumn("Date", []any{
		time.Date(2020, 4, 24, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 4, 25, 0, 0, 0, 0, time.UTC),
	})
	table.AddColumn("Confirmed", []any{int64(150), int64(172)})

	dir := t.TempDir()
	if err := WriteTable(table, dir, "cases", "json_timeasstring", nil); err != nil {
		t.Fatalf("WriteTable failed: %v", err)
	}
	path := filepath.Join(dir, "cases.json")
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read artifact: %v", err)
	}

	// writing the parsed table again must be a no-op on the dates
	parsed, err := ReadJSONTable(path)
	if err != nil {
		t.Fatalf("ReadJSONTable failed: %v", err)
	}
	if err := WriteTable(parsed, dir, "cases", "json_timeasstring", nil); err != nil {
		t.Fatalf("WriteTable failed: %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read artifact: %v", err)
	}
	if string(first) != string(second) {
		t.Errorf("Expected identical output, got %s and %s", first, second)
	}

	dates, _ := parsed.Column("Date")
	if dates[0] != "2020-04-24" {
		t.Errorf("Expected ISO date string, got %v", dates[0])
	}
}

func TestWriteTableDelimited(t *testing.T) {
	dir := t.TempDir()
	if err := WriteTable(sampleTable(t), dir, "counties", "txt", &WriterOptions{Separator: '\t'}); err != nil {
		t.Fatalf("WriteTable failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "counties.txt"))
	if err != nil {
		t.Fatalf("Failed to read artifact: %v", err)
	}
	want := "ID_County\tPopulation\n1001\t89504\n1002\t246601\n"
	if string(data) != want {
		t.Errorf("Expected %q, got %q", want, string(data))
	}
}

func TestWriteTableKeyedStore(t *testing.T) {
	dir := t.TempDir()
	if err := WriteTable(sampleTable(t), dir, "counties", "hdf5", nil); err != nil {
		t.Fatalf("WriteTable failed: %v", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "counties.h5"))
	if err != nil {
		t.Fatalf("Failed to open artifact: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM data").Scan(&count); err != nil {
		t.Fatalf("Failed to query artifact: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 rows, got %d", count)
	}

	var population float64
	if err := db.QueryRow(`SELECT "Population" FROM data WHERE "ID_County" = 1002`).Scan(&population); err != nil {
		t.Fatalf("Failed to query artifact: %v", err)
	}
	if population != 246601 {
		t.Errorf("Expected 246601, got %f", population)
	}
}

func TestWriteTableOverwritesKeyedStore(t *testing.T) {
	dir := t.TempDir()
	if err := WriteTable(sampleTable(t), dir, "counties", "hdf5", nil); err != nil {
		t.Fatalf("WriteTable failed: %v", err)
	}

	smaller := NewTable()
	smaller.AddColumn("ID_County", []any{int64(1001)})
	smaller.AddColumn("Population", []any{89504.0})
	if err := WriteTable(smaller, dir, "counties", "hdf5", nil); err != nil {
		t.Fatalf("WriteTable failed: %v", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "counties.h5"))
	if err != nil {
		t.Fatalf("Failed to open artifact: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM data").Scan(&count); err != nil {
		t.Fatalf("Failed to query artifact: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected stale rows to be dropped, got %d rows", count)
	}
}

func TestOutputFormats(t *testing.T) {
	formats := OutputFormats()
	want := []string{"hdf5", "json", "json_timeasstring", "txt"}
	if len(formats) != len(want) {
		t.Fatalf("Expected %v, got %v", want, formats)
	}
	for i, name := range want {
		if formats[i] != name {
			t.Errorf("Expected %v, got %v", want, formats)
			break
		}
	}
}
