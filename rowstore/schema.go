package rowstore

import (
	"fmt"
	"sort"
)

// Row is the positional representation of a sheet row, one value per header column.
type Row []any

// Object is the structured representation of a row, keyed by column name.
type Object map[string]any

const (
	ColumnID        = "id"
	ColumnName      = "name"
	ColumnTimestamp = "Timestamp"
)

// Schema is the fixed, ordered set of sheet column names: management 'pre-headers' (id, name, ...)
// followed by the domain specific fields.
type Schema struct {
	preHeaders []string
	fields     []string
	headers    []string
	index      map[string]int
}

func NewSchema(preHeaders []string, fields []string) (*Schema, error) {
	schema := Schema{
		preHeaders: append([]string{}, preHeaders...),
		fields:     append([]string{}, fields...),
		index:      map[string]int{},
	}

	schema.headers = append(append([]string{}, preHeaders...), fields...)

	for i, h := range schema.headers {
		if _, ok := schema.index[h]; ok {
			return nil, fmt.Errorf("duplicate column name '%s'", h)
		}

		schema.index[h] = i
	}

	return &schema, nil
}

func (s *Schema) Headers() []string {
	return append([]string{}, s.headers...)
}

func (s *Schema) PreHeaders() []string {
	return append([]string{}, s.preHeaders...)
}

func (s *Schema) Fields() []string {
	return append([]string{}, s.fields...)
}

func (s *Schema) Len() int {
	if s == nil {
		return 0
	}

	return len(s.headers)
}

// Index returns the column index of a header.
func (s *Schema) Index(column string) (int, bool) {
	ix, ok := s.index[column]

	return ix, ok
}

// RowToObject zips a row with the schema headers.
func (s *Schema) RowToObject(row Row) (Object, error) {
	return RowToObject(row, s.headers)
}

// ObjectToRow converts an object to a full width row, with unset columns left nil. Fails without
// returning a partial row if the object has a key that is not a declared header.
func (s *Schema) ObjectToRow(obj Object) (Row, error) {
	row := make(Row, len(s.headers))

	for k, v := range obj {
		ix, ok := s.index[k]
		if !ok {
			return nil, &SchemaError{Column: k}
		}

		row[ix] = v
	}

	return row, nil
}

// columns returns the keys of an object sorted by column index, failing on any undeclared key.
func (s *Schema) columns(obj Object) ([]string, error) {
	keys := []string{}
	for k := range obj {
		if _, ok := s.index[k]; !ok {
			return nil, &SchemaError{Column: k}
		}

		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool { return s.index[keys[i]] < s.index[keys[j]] })

	return keys, nil
}

// RowToObject zips a row with a list of headers. The row and header lengths must match.
func RowToObject(row Row, headers []string) (Object, error) {
	if len(row) != len(headers) {
		return nil, fmt.Errorf("%w: expected %v values but got %v", ErrRowLength, len(headers), len(row))
	}

	obj := Object{}
	for i, v := range row {
		obj[headers[i]] = v
	}

	return obj, nil
}
