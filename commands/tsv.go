package commands

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/uhppoted/uhppoted-app-sheetdb/rowstore"
)

func objectsToTSV(f io.Writer, headers []string, objects []rowstore.Object) error {
	if len(headers) == 0 {
		return fmt.Errorf("Missing/invalid header row")
	}

	index := map[string]int{}
	for i, h := range headers {
		k := normalise(h)
		if _, ok := index[k]; ok {
			return fmt.Errorf("Duplicate column name '%s'", h)
		}

		index[k] = i
	}

	// ... header
	header := []string{}
	for _, h := range headers {
		header = append(header, clean(h))
	}

	// ... records
	records := [][]string{}
	for _, object := range objects {
		record := make([]string, len(headers))
		for i, h := range headers {
			record[i] = clean(cell(object[h]))
		}

		records = append(records, record)
	}

	// ... write
	w := csv.NewWriter(f)
	w.Comma = '\t'

	w.Write(header)
	for _, record := range records {
		w.Write(record)
	}

	w.Flush()

	return w.Error()
}

func tsvToObjects(f io.Reader) ([]string, []rowstore.Object, error) {
	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	if len(records) == 0 {
		return nil, nil, fmt.Errorf("TSV file is empty")
	}

	// header
	header := []string{}
	for _, v := range records[0] {
		header = append(header, strings.TrimSpace(v))
	}

	if len(header) == 0 || header[0] == "" {
		return nil, nil, fmt.Errorf("TSV file missing header")
	}

	// data
	objects := []rowstore.Object{}
	for line, record := range records[1:] {
		if len(record) > len(header) {
			return nil, nil, fmt.Errorf("TSV record %v has more fields than the header", line+2)
		}

		object := rowstore.Object{}
		for i, v := range record {
			if v = strings.TrimSpace(v); v != "" {
				object[header[i]] = value(v)
			}
		}

		if len(object) > 0 {
			objects = append(objects, object)
		}
	}

	return header, objects, nil
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// value converts plain decimal numbers to float64, leaving anything with a leading zero (IDs,
// phone numbers, etc) as text.
func value(v string) any {
	if regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?$`).MatchString(v) {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}

	return v
}

func clean(s string) string {
	return regexp.MustCompile(`[\t\r\n]+`).ReplaceAllString(strings.TrimSpace(s), " ")
}
