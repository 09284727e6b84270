package epidata

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Nicaras/memilio/logging"
	"github.com/Nicaras/memilio/metrics"
	_ "modernc.org/sqlite"
)

// WriterOptions carries caller-supplied parameters for the delimited
// text format.
type WriterOptions struct {
	// Separator between fields. Defaults to ','.
	Separator rune
}

// formatSpec binds one output format name to its file extension and
// serialization routine.
type formatSpec struct {
	ext   string
	write func(t *Table, path string, opts *WriterOptions) error
}

// outputFormats is the closed set of supported output formats. Unknown
// names fail at the WriteTable boundary, never silently.
var outputFormats = map[string]formatSpec{
	"json":              {".json", writeJSON},
	"json_timeasstring": {".json", writeJSONTimeAsString},
	"hdf5":              {".h5", writeKeyedTable},
	"txt":               {".txt", writeDelimited},
}

// OutputFormats returns the names of the supported output formats,
// sorted alphabetically.
func OutputFormats() []string {
	names := make([]string, 0, len(outputFormats))
	for name := range outputFormats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckDir creates directory, including parents, if it does not exist.
func CheckDir(directory string) error {
	return os.MkdirAll(directory, 0750)
}

// WriteTable serializes a table to <directory>/<filePrefix><ext>, with
// the extension determined by fileType. An existing artifact at the
// same path is overwritten.
func WriteTable(t *Table, directory, filePrefix, fileType string, opts *WriterOptions) error {
	format, ok := outputFormats[fileType]
	if !ok {
		return &UnsupportedFormatError{Format: fileType, Allowed: OutputFormats()}
	}

	if err := CheckDir(directory); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", directory, err)
	}

	outPath := filepath.Join(directory, filePrefix+format.ext)
	if err := format.write(t, outPath, opts); err != nil {
		return err
	}

	metrics.DatasetsWritten.WithLabelValues(fileType).Inc()
	logging.Info("Data has been written", "path", outPath)
	return nil
}

func writeJSON(t *Table, path string, _ *WriterOptions) error {
	data, err := t.MarshalRecords()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// writeJSONTimeAsString writes JSON records with any Date column
// coerced to ISO YYYY-MM-DD strings. Already-string dates pass through
// unchanged, so the coercion is idempotent.
func writeJSONTimeAsString(t *Table, path string, opts *WriterOptions) error {
	out := t
	if t.HasColumn("Date") {
		dates, _ := t.Column("Date")
		coerced := make([]any, len(dates))
		for i, v := range dates {
			if ts, ok := v.(time.Time); ok {
				coerced[i] = ts.Format("2006-01-02")
			} else {
				coerced[i] = v
			}
		}
		copied := NewTable()
		for _, name := range t.Columns() {
			values, _ := t.Column(name)
			if name == "Date" {
				values = coerced
			}
			if err := copied.AddColumn(name, values); err != nil {
				return err
			}
		}
		out = copied
	}
	return writeJSON(out, path, opts)
}

// writeKeyedTable writes the table into a single keyed table named
// "data" inside an embedded database file.
func writeKeyedTable(t *Table, path string, _ *WriterOptions) error {
	// overwrite semantics: a stale artifact must not leak old rows
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logging.Warn("Failed to close table store", "error", cerr)
		}
	}()

	names := t.Columns()
	defs := make([]string, len(names))
	placeholders := make([]string, len(names))
	for i, name := range names {
		defs[i] = fmt.Sprintf("%q %s", name, sqlType(t, name))
		placeholders[i] = "?"
	}
	if _, err := db.Exec(fmt.Sprintf("CREATE TABLE data (%s)", strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("failed to create data table: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = fmt.Sprintf("%q", name)
	}
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO data (%s) VALUES (%s)",
		strings.Join(quoted, ", "), strings.Join(placeholders, ", ")))
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		for c, v := range row {
			if ts, ok := v.(time.Time); ok {
				row[c] = ts.Format("2006-01-02")
			}
		}
		if _, err := stmt.Exec(row...); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// sqlType picks a storage type from the first non-nil cell of a column.
func sqlType(t *Table, name string) string {
	values, _ := t.Column(name)
	for _, v := range values {
		switch v.(type) {
		case int64:
			return "INTEGER"
		case float64:
			return "REAL"
		case string, time.Time:
			return "TEXT"
		}
	}
	return "TEXT"
}

func writeDelimited(t *Table, path string, opts *WriterOptions) error {
	sep := ','
	if opts != nil && opts.Separator != 0 {
		sep = opts.Separator
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			logging.Warn("Failed to close output file", "error", cerr)
		}
	}()

	writer := csv.NewWriter(file)
	writer.Comma = sep
	if err := writer.Write(t.Columns()); err != nil {
		return err
	}
	record := make([]string, t.NumCols())
	for i := 0; i < t.NumRows(); i++ {
		for c, v := range t.Row(i) {
			record[c] = AsString(v)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
