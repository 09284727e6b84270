package epidata

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Nicaras/memilio/logging"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/htmlindex"
)

// DefaultAPIURL is the ArcGIS open data endpoint that hosts most of the
// datasets handled by this package.
const DefaultAPIURL = "https://opendata.arcgis.com/datasets/"

// ColumnType forces the cell type of a CSV column.
type ColumnType int

const (
	// TypeAuto infers int, float or string per cell.
	TypeAuto ColumnType = iota
	// TypeString keeps the raw text.
	TypeString
	// TypeInt parses cells as integers.
	TypeInt
	// TypeFloat parses cells as floats.
	TypeFloat
)

// CSVParams configures LoadCSV. The zero value targets the ArcGIS
// datasets API with comma separation and a header in the first row.
// Params are value types: every call works on its own merged copy.
type CSVParams struct {
	APIURL    string // defaults to DefaultAPIURL
	Extension string // defaults to ".csv"
	Sep       rune   // defaults to ','
	Header    int    // row index holding the column labels
	Encoding  string // optional charset of the payload
	DTypes    map[string]ColumnType
	Timeout   time.Duration
	Progress  func(fraction float64)
}

func (p CSVParams) withDefaults() CSVParams {
	if p.APIURL == "" {
		p.APIURL = DefaultAPIURL
	}
	if p.Extension == "" {
		p.Extension = ".csv"
	}
	if p.Sep == 0 {
		p.Sep = ','
	}
	return p
}

// LoadCSV downloads and parses one CSV dataset. The download is
// attempted with progress tracking first; on any fetch-layer error a
// plain fetch is tried before giving up with a *NotFoundError.
func LoadCSV(target string, params CSVParams) (*Table, error) {
	p := params.withDefaults()
	url := p.APIURL + target + p.Extension

	progress := p.Progress
	if progress == nil {
		progress = NewPercentage("Downloading " + url).Set
	}

	payload, err := Download(url, DownloadOptions{Timeout: p.Timeout, Progress: progress})
	if err != nil {
		logging.Debug("Tracked download failed, retrying without progress", "url", url, "error", err)
		payload, err = Download(url, DownloadOptions{Timeout: p.Timeout})
		if err != nil {
			return nil, &NotFoundError{URL: url, Err: err}
		}
	}

	if p.Encoding != "" {
		enc, err := htmlindex.Get(p.Encoding)
		if err != nil {
			return nil, fmt.Errorf("unknown encoding %q: %w", p.Encoding, err)
		}
		payload, err = enc.NewDecoder().Bytes(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s as %s: %w", url, p.Encoding, err)
		}
	}

	return parseCSV(payload, p)
}

// parseCSV turns a CSV payload into a table using the header row index
// and forced column types from params.
func parseCSV(payload []byte, p CSVParams) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(payload))
	reader.Comma = p.Sep
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if p.Header < 0 || p.Header >= len(rows) {
		return nil, &DataError{Msg: fmt.Sprintf("header row %d out of range, file has %d rows", p.Header, len(rows))}
	}

	header := uniqueNames(rows[p.Header])
	cols := make([][]any, len(header))
	for _, row := range rows[p.Header+1:] {
		for c, name := range header {
			var cell any
			if c < len(row) {
				cell = typedCell(row[c], p.DTypes[name])
			}
			cols[c] = append(cols[c], cell)
		}
	}

	table := NewTable()
	for c, name := range header {
		if err := table.AddColumn(name, cols[c]); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func typedCell(s string, ct ColumnType) any {
	switch ct {
	case TypeString:
		return s
	case TypeInt:
		if n, ok := AsInt(s); ok {
			return n
		}
		return nil
	case TypeFloat:
		if f, ok := AsFloat(s); ok {
			return f
		}
		return nil
	default:
		return inferValue(s)
	}
}

// GeoJSONParams configures LoadGeoJSON.
type GeoJSONParams struct {
	APIURL    string // defaults to DefaultAPIURL
	Extension string // defaults to "geojson"
	Timeout   time.Duration
}

func (p GeoJSONParams) withDefaults() GeoJSONParams {
	if p.APIURL == "" {
		p.APIURL = DefaultAPIURL
	}
	if p.Extension == "" {
		p.Extension = "geojson"
	}
	return p
}

// propertyPrefixLen is the length of the "properties." prefix that the
// flattening step leaves on every remaining GeoJSON column name.
const propertyPrefixLen = len("properties.")

// LoadGeoJSON downloads one GeoJSON dataset and flattens its features
// into a table. The constant type and geometry fields are dropped and
// the properties prefix is stripped from the column names.
func LoadGeoJSON(target string, params GeoJSONParams) (*Table, error) {
	p := params.withDefaults()
	url := p.APIURL + target + "." + p.Extension

	payload, err := Download(url, DownloadOptions{Timeout: p.Timeout})
	if err != nil {
		return nil, &NotFoundError{URL: url, Err: err}
	}

	var doc struct {
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON from %s: %w", url, err)
	}

	var names []string
	cols := make(map[string][]any)
	for i, feature := range doc.Features {
		err := walkObject(feature, "", func(key string, val any) {
			if _, ok := cols[key]; !ok {
				names = append(names, key)
				cols[key] = make([]any, i)
			}
			cols[key] = append(cols[key], val)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to parse GeoJSON feature %d: %w", i, err)
		}
		for _, name := range names {
			if len(cols[name]) < i+1 {
				cols[name] = append(cols[name], nil)
			}
		}
	}

	table := NewTable()
	rename := make(map[string]string)
	for _, name := range names {
		if name == "type" || name == "geometry" || strings.HasPrefix(name, "geometry.") {
			continue
		}
		if err := table.AddColumn(name, cols[name]); err != nil {
			return nil, err
		}
		if len(name) > propertyPrefixLen {
			rename[name] = name[propertyPrefixLen:]
		}
	}
	table.Rename(rename)
	return table, nil
}

// ExcelParams configures LoadExcel. SheetName wins over SheetIndex when
// both are set.
type ExcelParams struct {
	APIURL     string // defaults to DefaultAPIURL
	Extension  string // defaults to ".xls"; ".zip" unwraps the first archive member
	SheetName  string
	SheetIndex int
	Header     int // row index holding the column labels
	Timeout    time.Duration
}

func (p ExcelParams) withDefaults() ExcelParams {
	if p.APIURL == "" {
		p.APIURL = DefaultAPIURL
	}
	if p.Extension == "" {
		p.Extension = ".xls"
	}
	return p
}

// LoadExcel downloads one spreadsheet dataset and parses a sheet into a
// table.
func LoadExcel(target string, params ExcelParams) (*Table, error) {
	p := params.withDefaults()
	url := p.APIURL + target + p.Extension

	payload, err := Download(url, DownloadOptions{Timeout: p.Timeout})
	if err != nil {
		return nil, &NotFoundError{URL: url, Err: err}
	}

	if strings.HasPrefix(p.Extension, ".zip") {
		payload, err = firstZipMember(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to unwrap archive from %s: %w", url, err)
		}
	}

	book, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet from %s: %w", url, err)
	}
	defer func() {
		if cerr := book.Close(); cerr != nil {
			logging.Warn("Failed to close spreadsheet", "error", cerr)
		}
	}()

	sheet := p.SheetName
	if sheet == "" {
		sheets := book.GetSheetList()
		if p.SheetIndex < 0 || p.SheetIndex >= len(sheets) {
			return nil, &DataError{Msg: fmt.Sprintf("sheet index %d out of range, workbook has %d sheets", p.SheetIndex, len(sheets))}
		}
		sheet = sheets[p.SheetIndex]
	}

	rows, err := book.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if p.Header < 0 || p.Header >= len(rows) {
		return nil, &DataError{Msg: fmt.Sprintf("header row %d out of range, sheet %q has %d rows", p.Header, sheet, len(rows))}
	}

	header := uniqueNames(rows[p.Header])
	cols := make([][]any, len(header))
	for _, row := range rows[p.Header+1:] {
		for c := range header {
			var cell any
			if c < len(row) {
				cell = inferValue(row[c])
			}
			cols[c] = append(cols[c], cell)
		}
	}

	table := NewTable()
	for c, name := range header {
		if err := table.AddColumn(name, cols[c]); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// uniqueNames disambiguates empty and duplicate header labels so they
// can serve as column names.
func uniqueNames(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, name := range header {
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n)
		} else {
			seen[name] = 1
		}
		out[i] = name
	}
	return out
}

// firstZipMember extracts the first file inside a zip archive.
func firstZipMember(payload []byte) ([]byte, error) {
	archive, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, err
	}
	if len(archive.File) == 0 {
		return nil, &DataError{Msg: "archive is empty"}
	}
	member, err := archive.File[0].Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := member.Close(); cerr != nil {
			logging.Warn("Failed to close archive member", "error", cerr)
		}
	}()
	return io.ReadAll(member)
}
