package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// TableData is a materialized spreadsheet: the ordered header row plus one
// header->value map per data row. It is built once per batch pass; every
// later stage works off this snapshot instead of re-reading the file.
type TableData struct {
	Headers []string
	Rows    []map[string]string
}

// ExtractFile fetches the referenced file over HTTP and parses it into a
// TableData. Only .xlsx, .xls and .csv are accepted. The fetch happens
// exactly once and is never retried; the caller decides what a transient
// failure means.
func ExtractFile(ctx context.Context, client *http.Client, fileURL, fileName string) (*TableData, error) {
	if client == nil {
		client = http.DefaultClient
	}

	ext := fileExtension(fileName, fileURL)
	switch ext {
	case ".xlsx", ".xls", ".csv":
	default:
		return nil, inputErr(ErrUnsupportedFormat, "file_url",
			"unsupported file format %q: must be .xlsx, .xls or .csv", ext)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, inputErr(ErrFileRead, "file_url", "invalid file url: %s", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, inputErr(ErrFileRead, "file_url", "fetch file: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, inputErr(ErrFileRead, "file_url", "fetch file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, inputErr(ErrFileRead, "file_url", "read file body: %s", err)
	}

	return ExtractBytes(data, ext)
}

// ExtractBytes parses already-fetched file bytes. ext must include the dot.
func ExtractBytes(data []byte, ext string) (*TableData, error) {
	var (
		raw [][]string
		err error
	)
	switch ext {
	case ".xlsx":
		raw, err = parseXLSX(data)
	case ".xls":
		raw, err = parseXLS(data)
	case ".csv":
		raw, err = parseCSV(data)
	default:
		return nil, inputErr(ErrUnsupportedFormat, "file_url",
			"unsupported file format %q: must be .xlsx, .xls or .csv", ext)
	}
	if err != nil {
		return nil, err
	}

	headers := make([]string, 0, len(raw[0]))
	for _, h := range raw[0] {
		headers = append(headers, strings.TrimSpace(h))
	}
	if len(headers) == 0 || allBlank(headers) {
		return nil, inputErr(ErrEmptyFile, "file_url", "file has no header row")
	}

	rows := make([]map[string]string, 0, len(raw)-1)
	for _, cells := range raw[1:] {
		if allBlank(cells) {
			continue
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			value := ""
			if i < len(cells) {
				value = strings.TrimSpace(cells[i])
			}
			row[h] = value
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, inputErr(ErrEmptyFile, "file_url", "file has no data rows")
	}

	return &TableData{Headers: headers, Rows: rows}, nil
}

func parseXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, inputErr(ErrFileRead, "file_url", "open xlsx: %s", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, inputErr(ErrFileRead, "file_url", "read xlsx sheet: %s", err)
	}
	if len(rows) == 0 {
		return nil, inputErr(ErrEmptyFile, "file_url", "file has no header row")
	}
	return rows, nil
}

// parseXLS handles legacy Excel workbooks. The xls library only opens from a
// path, so the bytes take a detour through a temp file.
func parseXLS(data []byte) ([][]string, error) {
	tmp, err := os.CreateTemp("", "batch-*.xls")
	if err != nil {
		return nil, inputErr(ErrFileRead, "file_url", "temp xls file: %s", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, inputErr(ErrFileRead, "file_url", "write temp xls file: %s", err)
	}
	tmp.Close()

	book, err := xls.Open(tmp.Name(), "utf-8")
	if err != nil {
		return nil, inputErr(ErrFileRead, "file_url", "open xls: %s", err)
	}

	sheet := book.GetSheet(0)
	if sheet == nil {
		return nil, inputErr(ErrFileRead, "file_url", "xls has no sheets")
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return nil, inputErr(ErrEmptyFile, "file_url", "file has no header row")
	}
	return rows, nil
}

func parseCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, inputErr(ErrFileRead, "file_url", "parse csv: %s", err)
	}
	if len(rows) == 0 {
		return nil, inputErr(ErrEmptyFile, "file_url", "file has no header row")
	}
	return rows, nil
}

// fileExtension prefers the declared file name over the URL path, since
// storage URLs often carry opaque object keys.
func fileExtension(fileName, fileURL string) string {
	if ext := strings.ToLower(path.Ext(fileName)); ext != "" {
		return ext
	}
	trimmed := fileURL
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	return strings.ToLower(path.Ext(trimmed))
}

func allBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
