package bulk

import (
	"testing"

	"github.com/sandraschi/notion-mcp/internal/notion"
)

func TestParseRowsSniffsFormat(t *testing.T) {
	jsonRows, err := ParseRows(`[{"Name":"a","Amount":1}]`)
	if err != nil {
		t.Fatal(err)
	}
	if len(jsonRows) != 1 || jsonRows[0].Fields["Name"] != "a" {
		t.Errorf("json rows = %+v", jsonRows)
	}

	csvRows, err := ParseRows("Name,Amount\na,1\nb,2\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(csvRows) != 2 || csvRows[1].Fields["Name"] != "b" {
		t.Errorf("csv rows = %+v", csvRows)
	}

	if _, err := ParseRows("   "); !notion.IsKind(err, notion.KindValidation) {
		t.Errorf("empty input: got %v, want validation error", err)
	}
}

func TestParseCSVRows(t *testing.T) {
	rows, err := ParseCSVRows("Name,Amount,Active\n\"Smith, Jane\",12.5,yes\nBob,,no\n", ',')
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].Fields["Name"] != "Smith, Jane" {
		t.Errorf("quoted cell = %v", rows[0].Fields["Name"])
	}
	if rows[0].Fields["Amount"] != 12.5 {
		t.Errorf("number inference = %v (%T)", rows[0].Fields["Amount"], rows[0].Fields["Amount"])
	}
	if rows[0].Fields["Active"] != true {
		t.Errorf("bool inference = %v", rows[0].Fields["Active"])
	}
	if rows[1].Fields["Amount"] != nil {
		t.Errorf("empty cell should be nil, got %v", rows[1].Fields["Amount"])
	}
	if rows[0].Index != 0 || rows[1].Index != 1 {
		t.Errorf("row indexes = %d, %d", rows[0].Index, rows[1].Index)
	}
}

func TestParseCSVRowsRequiresHeaderAndData(t *testing.T) {
	if _, err := ParseCSVRows("Name,Amount\n", ','); !notion.IsKind(err, notion.KindValidation) {
		t.Errorf("header only: got %v, want validation error", err)
	}
}

func TestParseJSONRowsFlattensNestedValues(t *testing.T) {
	rows, err := ParseJSONRows(`[{"Name":"a","Meta":{"k":1},"Tags":["x","y"]}]`)
	if err != nil {
		t.Fatal(err)
	}
	fields := rows[0].Fields
	if s, ok := fields["Meta"].(string); !ok || s != `{"k":1}` {
		t.Errorf("nested object should flatten to JSON string, got %v (%T)", fields["Meta"], fields["Meta"])
	}
	if _, ok := fields["Tags"].([]any); !ok {
		t.Errorf("arrays stay native for list-valued kinds, got %T", fields["Tags"])
	}

	if _, err := ParseJSONRows(`[{"broken"`); !notion.IsKind(err, notion.KindValidation) {
		t.Errorf("malformed json: got %v, want validation error", err)
	}
}
