package bulk

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sandraschi/notion-mcp/internal/schema"
)

func exportRecords() []map[string]schema.Value {
	n := 12.5
	return []map[string]schema.Value{
		{
			"Name":   schema.Title("first; item"),
			"Amount": schema.Number(n),
			"Tags":   schema.MultiSelect("red", "blue"),
			"Done":   schema.Checkbox(true),
		},
		{
			"Name": schema.Title("second"),
			"Due":  schema.Date("2024-06-01", ""),
		},
	}
}

func TestExportCSVEscapesDelimiters(t *testing.T) {
	data, err := ExportRecords(exportRecords(), FormatCSV, nil)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("exported CSV does not re-parse: %v", err)
	}
	// Columns default to the sorted union of property names.
	wantHeader := []string{"Amount", "Done", "Due", "Name", "Tags"}
	for i, h := range wantHeader {
		if rows[0][i] != h {
			t.Fatalf("header = %v, want %v", rows[0], wantHeader)
		}
	}
	byCol := func(row []string, name string) string {
		for i, h := range rows[0] {
			if h == name {
				return row[i]
			}
		}
		return ""
	}
	if got := byCol(rows[1], "Name"); got != "first; item" {
		t.Errorf("cell with separator text = %q", got)
	}
	if got := byCol(rows[1], "Tags"); got != "red; blue" {
		t.Errorf("multi-valued cell = %q", got)
	}
	if got := byCol(rows[2], "Tags"); got != "" {
		t.Errorf("absent property cell = %q, want empty", got)
	}
}

func TestExportJSONKeepsNativeTypes(t *testing.T) {
	data, err := ExportRecords(exportRecords(), FormatJSON, nil)
	if err != nil {
		t.Fatal(err)
	}
	var out []map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("exported JSON does not re-parse: %v", err)
	}
	if out[0]["Amount"] != 12.5 {
		t.Errorf("Amount = %v (%T)", out[0]["Amount"], out[0]["Amount"])
	}
	if out[0]["Done"] != true {
		t.Errorf("Done = %v", out[0]["Done"])
	}
	tags, ok := out[0]["Tags"].([]any)
	if !ok || len(tags) != 2 {
		t.Errorf("Tags = %v", out[0]["Tags"])
	}
	if out[1]["Due"] != "2024-06-01" {
		t.Errorf("Due = %v", out[1]["Due"])
	}
	if _, ok := out[1]["Tags"]; ok {
		t.Error("absent properties should be omitted in JSON")
	}
}

func TestExportRespectsColumnSelection(t *testing.T) {
	data, err := ExportRecords(exportRecords(), FormatCSV, []string{"Name", "Amount"})
	if err != nil {
		t.Fatal(err)
	}
	rows, _ := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if len(rows[0]) != 2 || rows[0][0] != "Name" || rows[0][1] != "Amount" {
		t.Errorf("header = %v", rows[0])
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != FormatJSON {
		t.Errorf("default format = %v, %v", f, err)
	}
	if f, err := ParseFormat("CSV"); err != nil || f != FormatCSV {
		t.Errorf("case-folded format = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("unknown format should fail")
	}
}
