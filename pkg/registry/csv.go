package registry

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// nullTokens are cell values read as null, matching the usual spreadsheet and
// dataframe exports of the registry.
var nullTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"NaN":  {},
	"nan":  {},
	"NULL": {},
	"null": {},
	"None": {},
	"<NA>": {},
}

func normalizeCell(v string) string {
	if _, ok := nullTokens[strings.TrimSpace(v)]; ok {
		return ""
	}
	return v
}

// ReadCSV reads a registry export with a header row. The delimiter is taken
// from the header: semicolon when it has semicolons but no commas, otherwise
// comma.
func ReadCSV(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	head, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	if len(bytes.TrimSpace(head)) == 0 {
		return NewTable(nil, nil)
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	firstLine := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		firstLine = head[:i]
	}
	if bytes.IndexByte(firstLine, ';') >= 0 && bytes.IndexByte(firstLine, ',') < 0 {
		reader.Comma = ';'
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}
	if len(records) == 0 {
		return NewTable(nil, nil)
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	rows := records[1:]
	for _, row := range rows {
		for j := range row {
			row[j] = normalizeCell(row[j])
		}
	}
	return NewTable(header, rows)
}

func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ReadFile loads a registry export, picking the reader from the extension.
func ReadFile(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSXFile(path)
	case ".csv", ".txt", "":
		return ReadCSVFile(path)
	default:
		return nil, fmt.Errorf("unsupported registry export %s", path)
	}
}
