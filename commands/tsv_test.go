package commands

import (
	"reflect"
	"strings"
	"testing"

	"github.com/uhppoted/uhppoted-app-sheetdb/rowstore"
)

func TestObjectsToTSV(t *testing.T) {
	expected := `id	name	Timestamp	score	notes
u1	Smith, Alice	2020-01-01T00:00:00.000Z	5	line 1 line 2
u2	Jones, Bob		12.5	
`

	var f strings.Builder

	headers := []string{"id", "name", "Timestamp", "score", "notes"}
	objects := []rowstore.Object{
		{"id": "u1", "name": "Smith, Alice", "Timestamp": "2020-01-01T00:00:00.000Z", "score": float64(5), "notes": "line 1\nline 2"},
		{"id": "u2", "name": "Jones, Bob", "score": 12.5},
	}

	if err := objectsToTSV(&f, headers, objects); err != nil {
		t.Fatalf("Unexpected error returned from objectsToTSV (%v)", err)
	}

	if f.String() != expected {
		t.Errorf("Incorrect TSV\n   expected: %s\n   got:      %s\n", expected, f.String())
	}
}

func TestObjectsToTSVWithoutHeaders(t *testing.T) {
	var f strings.Builder

	if err := objectsToTSV(&f, nil, []rowstore.Object{{"id": "u1"}}); err == nil {
		t.Fatalf("Expected error return for missing headers, got %v", err)
	}
}

func TestObjectsToTSVWithDuplicatedColumn(t *testing.T) {
	var f strings.Builder

	if err := objectsToTSV(&f, []string{"id", "Score", "score"}, nil); err == nil {
		t.Fatalf("Expected error return for duplicated column, got %v", err)
	}
}

func TestTSVToObjects(t *testing.T) {
	tsv := `id	name	Timestamp	score	phone
u1	Smith, Alice		5	0123456
u2	Jones, Bob		-12.5	

`

	headers, objects, err := tsvToObjects(strings.NewReader(tsv))
	if err != nil {
		t.Fatalf("Unexpected error returned from tsvToObjects (%v)", err)
	}

	if !reflect.DeepEqual(headers, []string{"id", "name", "Timestamp", "score", "phone"}) {
		t.Errorf("Incorrect headers - got:%v", headers)
	}

	expected := []rowstore.Object{
		{"id": "u1", "name": "Smith, Alice", "score": float64(5), "phone": "0123456"},
		{"id": "u2", "name": "Jones, Bob", "score": float64(-12.5)},
	}

	if !reflect.DeepEqual(objects, expected) {
		t.Errorf("Incorrect objects\n   expected: %v\n   got:      %v", expected, objects)
	}
}

func TestTSVToObjectsWithEmptyFile(t *testing.T) {
	if _, _, err := tsvToObjects(strings.NewReader("")); err == nil {
		t.Fatalf("Expected error return for empty TSV file, got %v", err)
	}
}

func TestTSVToObjectsWithExtraFields(t *testing.T) {
	if _, _, err := tsvToObjects(strings.NewReader("id\tname\nu1\tAlice\textra\n")); err == nil {
		t.Fatalf("Expected error return for record with extra fields, got %v", err)
	}
}
