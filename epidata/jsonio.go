package epidata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// MarshalRecords serializes the table as a JSON array of records,
// preserving column order within each record.
func (t *Table) MarshalRecords() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i := 0; i < t.NumRows(); i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for c, name := range t.names {
			if c > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(name)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			val, err := json.Marshal(t.cols[name][i])
			if err != nil {
				return nil, fmt.Errorf("failed to serialize column %q row %d: %w", name, i, err)
			}
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// ParseRecords parses a JSON array of records into a table. Column order
// follows the first appearance of each key; records missing a key get a
// nil cell.
func ParseRecords(data []byte) (*Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, &DataError{Msg: "expected a JSON array of records"}
	}

	var names []string
	cols := make(map[string][]any)
	rows := 0
	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to parse record %d: %w", rows, err)
		}
		err := walkObject(raw, "", func(key string, val any) {
			if _, ok := cols[key]; !ok {
				names = append(names, key)
				cols[key] = make([]any, rows)
			}
			cols[key] = append(cols[key], val)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to parse record %d: %w", rows, err)
		}
		rows++
		// pad columns the record did not mention
		for _, name := range names {
			if len(cols[name]) < rows {
				cols[name] = append(cols[name], nil)
			}
		}
	}

	table := NewTable()
	for _, name := range names {
		if err := table.AddColumn(name, cols[name]); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// ReadJSONTable reads a previously written JSON artifact back into a table.
func ReadJSONTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRecords(data)
}

// walkObject walks the keys of a JSON object in document order, calling
// add for every scalar. Nested objects are flattened with a dot-joined
// prefix; arrays are reported as their raw JSON text.
func walkObject(raw []byte, prefix string, add func(key string, val any)) error {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return &DataError{Msg: "expected a JSON object"}
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return &DataError{Msg: "expected a JSON object key"}
		}
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return err
		}

		name := prefix + key
		trimmed := bytes.TrimSpace(val)
		switch {
		case len(trimmed) > 0 && trimmed[0] == '{':
			if err := walkObject(trimmed, name+".", add); err != nil {
				return err
			}
		case len(trimmed) > 0 && trimmed[0] == '[':
			add(name, string(trimmed))
		default:
			add(name, parseScalar(trimmed))
		}
	}
	return nil
}

// parseScalar converts a raw JSON scalar into a cell value.
func parseScalar(raw []byte) any {
	s := string(raw)
	switch {
	case s == "null" || s == "":
		return nil
	case raw[0] == '"':
		var str string
		if err := json.Unmarshal(raw, &str); err == nil {
			return str
		}
		return s
	case s == "true":
		return true
	case s == "false":
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
