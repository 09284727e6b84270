package epidata

import (
	"archive/zip"
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"
)

func noProgress(float64) {}

func TestLoadCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dataset.csv" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("RS,GEN,EWZ\n1001,Flensburg,89504\n1002,Kiel,246601\n"))
	}))
	defer srv.Close()

	table, err := LoadCSV("dataset", CSVParams{APIURL: srv.URL + "/", Progress: noProgress})
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}
	if !reflect.DeepEqual(table.Columns(), []string{"RS", "GEN", "EWZ"}) {
		t.Errorf("Expected columns [RS GEN EWZ], got %v", table.Columns())
	}
	ewz, _ := table.Column("EWZ")
	if ewz[1] != int64(246601) {
		t.Errorf("Expected 246601, got %v", ewz[1])
	}
}

func TestLoadCSVForcedTypes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Key,Value\n01001,5\n"))
	}))
	defer srv.Close()

	table, err := LoadCSV("dataset", CSVParams{
		APIURL:   srv.URL + "/",
		DTypes:   map[string]ColumnType{"Key": TypeString, "Value": TypeFloat},
		Progress: noProgress,
	})
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}
	keys, _ := table.Column("Key")
	if keys[0] != "01001" {
		t.Errorf("Expected leading zero preserved, got %v", keys[0])
	}
	values, _ := table.Column("Value")
	if values[0] != 5.0 {
		t.Errorf("Expected float 5, got %v", values[0])
	}
}

func TestLoadCSVHeaderRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("a note about the file\nRS,GEN\n1001,Flensburg\n"))
	}))
	defer srv.Close()

	table, err := LoadCSV("dataset", CSVParams{APIURL: srv.URL + "/", Header: 1, Progress: noProgress})
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}
	if table.NumRows() != 1 {
		t.Errorf("Expected 1 data row, got %d", table.NumRows())
	}
}

func TestLoadCSVFallsBackWithoutContentLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// chunked response defeats progress tracking; the plain retry
		// must still succeed
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		w.Write([]byte("RS,GEN\n1001,Flensburg\n"))
	}))
	defer srv.Close()

	table, err := LoadCSV("dataset", CSVParams{APIURL: srv.URL + "/", Progress: noProgress})
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}
	if table.NumRows() != 1 {
		t.Errorf("Expected 1 row, got %d", table.NumRows())
	}
}

func TestLoadCSVNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := LoadCSV("missing", CSVParams{APIURL: srv.URL + "/", Progress: noProgress})
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected *NotFoundError, got %v", err)
	}
}

func TestLoadGeoJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/counties.geojson" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"type":"FeatureCollection","features":[
			{"type":"Feature","properties":{"RS":"1001","GEN":"Flensburg"},"geometry":{"type":"Point","coordinates":[9.43,54.78]}},
			{"type":"Feature","properties":{"RS":"1002","GEN":"Kiel"},"geometry":null}
		]}`))
	}))
	defer srv.Close()

	table, err := LoadGeoJSON("counties", GeoJSONParams{APIURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("LoadGeoJSON failed: %v", err)
	}
	if !reflect.DeepEqual(table.Columns(), []string{"RS", "GEN"}) {
		t.Errorf("Expected properties prefix stripped and geometry dropped, got %v", table.Columns())
	}
	gen, _ := table.Column("GEN")
	if !reflect.DeepEqual(gen, []any{"Flensburg", "Kiel"}) {
		t.Errorf("Expected [Flensburg Kiel], got %v", gen)
	}
}

func workbookBytes(t *testing.T, sheet string, rows [][]any) []byte {
	t.Helper()
	book := excelize.NewFile()
	defer book.Close()
	if sheet != "Sheet1" {
		if _, err := book.NewSheet(sheet); err != nil {
			t.Fatalf("Failed to create sheet: %v", err)
		}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("Failed to build cell name: %v", err)
		}
		if err := book.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("Failed to write row: %v", err)
		}
	}
	buf, err := book.WriteToBuffer()
	if err != nil {
		t.Fatalf("Failed to serialize workbook: %v", err)
	}
	return buf.Bytes()
}

func TestLoadExcel(t *testing.T) {
	payload := workbookBytes(t, "Sheet1", [][]any{
		{"Key", "Total"},
		{1001, 89504},
		{1002, 246601},
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	table, err := LoadExcel("book", ExcelParams{APIURL: srv.URL + "/", Extension: ".xlsx"})
	if err != nil {
		t.Fatalf("LoadExcel failed: %v", err)
	}
	if !reflect.DeepEqual(table.Columns(), []string{"Key", "Total"}) {
		t.Errorf("Expected columns [Key Total], got %v", table.Columns())
	}
	totals, _ := table.Column("Total")
	if totals[0] != int64(89504) {
		t.Errorf("Expected 89504, got %v", totals[0])
	}
}

func TestLoadExcelSheetName(t *testing.T) {
	payload := workbookBytes(t, "Tabelle_1A", [][]any{
		{"Name", "Count"},
		{"Berlin", 3669491},
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	table, err := LoadExcel("book", ExcelParams{
		APIURL:    srv.URL + "/",
		Extension: ".xlsx",
		SheetName: "Tabelle_1A",
	})
	if err != nil {
		t.Fatalf("LoadExcel failed: %v", err)
	}
	names, _ := table.Column("Name")
	if names[0] != "Berlin" {
		t.Errorf("Expected Berlin, got %v", names[0])
	}
}

func TestLoadExcelZipWrapped(t *testing.T) {
	inner := workbookBytes(t, "Sheet1", [][]any{
		{"Key", "Total"},
		{1001, 89504},
	})
	var buf bytes.Buffer
	archive := zip.NewWriter(&buf)
	member, err := archive.Create("book.xlsx")
	if err != nil {
		t.Fatalf("Failed to create archive member: %v", err)
	}
	member.Write(inner)
	archive.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	table, err := LoadExcel("book", ExcelParams{APIURL: srv.URL + "/", Extension: ".zip"})
	if err != nil {
		t.Fatalf("LoadExcel failed: %v", err)
	}
	if table.NumRows() != 1 {
		t.Errorf("Expected 1 row, got %d", table.NumRows())
	}
}

func TestUniqueNames(t *testing.T) {
	got := uniqueNames([]string{"A", "", "A", "B", "A"})
	want := []string{"A", "Unnamed: 1", "A.1", "B", "A.2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
