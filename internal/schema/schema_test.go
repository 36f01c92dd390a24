package schema

import (
	"reflect"
	"strings"
	"testing"

	"github.com/sandraschi/notion-mcp/internal/notion"
)

func TestParseRecordSchema(t *testing.T) {
	db := notion.Object{
		"properties": map[string]any{
			"Name":   map[string]any{"type": "title", "title": map[string]any{}},
			"Count":  map[string]any{"type": "number", "number": map[string]any{"format": "number"}},
			"Status": map[string]any{"type": "select", "select": map[string]any{"options": []any{
				map[string]any{"name": "Todo", "color": "gray"},
				map[string]any{"name": "Done", "color": "green"},
			}}},
		},
	}
	s, err := ParseRecordSchema(db)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 3 {
		t.Fatalf("Len = %d, want 3", s.Len())
	}
	def, ok := s.Lookup("Status")
	if !ok {
		t.Fatal("Status not found")
	}
	if def.Kind != KindSelect {
		t.Errorf("Status kind = %q", def.Kind)
	}
	if !reflect.DeepEqual(def.Options, []string{"Todo", "Done"}) {
		t.Errorf("Status options = %v", def.Options)
	}
	if !def.HasOption("Done") || def.HasOption("Shipped") {
		t.Error("HasOption misbehaves")
	}
	if got := s.Names(); !reflect.DeepEqual(got, []string{"Count", "Name", "Status"}) {
		t.Errorf("Names = %v", got)
	}
}

func TestParseRecordSchemaRejectsUnsupportedType(t *testing.T) {
	db := notion.Object{
		"properties": map[string]any{
			"Verified": map[string]any{"type": "verification", "verification": map[string]any{}},
		},
	}
	_, err := ParseRecordSchema(db)
	if !notion.IsKind(err, notion.KindSchema) {
		t.Fatalf("expected schema error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Verified") || !strings.Contains(err.Error(), "verification") {
		t.Errorf("error should name property and type: %v", err)
	}
}

func TestBuildPropertyDefinitions(t *testing.T) {
	spec := map[string]any{
		"Name":     "title",
		"Notes":    "text",
		"Price":    map[string]any{"type": "number", "format": "dollar"},
		"Done":     "checkbox",
		"Due":      "date",
		"Status":   map[string]any{"type": "select", "options": []any{"Todo", "Done"}},
		"Homepage": "url",
	}
	defs, err := BuildPropertyDefinitions(spec)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := defs["Name"].(notion.Object)["title"]; !ok {
		t.Error("Name should be a title property")
	}
	number := defs["Price"].(notion.Object)["number"].(notion.Object)
	if number["format"] != "dollar" {
		t.Errorf("Price format = %v", number["format"])
	}
	sel := defs["Status"].(notion.Object)["select"].(notion.Object)
	opts := sel["options"].([]notion.Object)
	if len(opts) != 2 || opts[0]["name"] != "Todo" {
		t.Errorf("Status options = %v", opts)
	}
	if _, ok := defs["Title"]; ok {
		t.Error("no synthetic Title property expected when the spec has a title")
	}
}

func TestBuildPropertyDefinitionsAddsMissingTitle(t *testing.T) {
	defs, err := BuildPropertyDefinitions(map[string]any{"Notes": "text"})
	if err != nil {
		t.Fatal(err)
	}
	title, ok := defs["Title"].(notion.Object)
	if !ok {
		t.Fatal("expected a synthetic Title property")
	}
	if _, ok := title["title"]; !ok {
		t.Errorf("synthetic Title has wrong shape: %v", title)
	}
}

func TestBuildPropertyDefinitionsErrors(t *testing.T) {
	tests := []struct {
		name string
		spec map[string]any
	}{
		{"unknown type", map[string]any{"X": "geolocation"}},
		{"relation without database_id", map[string]any{"X": map[string]any{"type": "relation"}}},
		{"formula without expression", map[string]any{"X": map[string]any{"type": "formula"}}},
		{"rollup missing properties", map[string]any{"X": map[string]any{"type": "rollup"}}},
		{"spec is neither string nor object", map[string]any{"X": 12}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildPropertyDefinitions(tt.spec); !notion.IsKind(err, notion.KindValidation) {
				t.Errorf("got %v, want validation error", err)
			}
		})
	}
}

func TestDecodeRecord(t *testing.T) {
	page := notion.Object{
		"id":  "p-1",
		"url": "https://notion.so/p-1",
		"properties": map[string]any{
			"Name": map[string]any{"type": "title", "title": []any{
				map[string]any{"plain_text": "Roadmap"},
			}},
			"Done": map[string]any{"type": "checkbox", "checkbox": true},
		},
	}
	rec, err := DecodeRecord(page)
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID != "p-1" || rec.URL != "https://notion.so/p-1" {
		t.Errorf("record identity = %q %q", rec.ID, rec.URL)
	}
	if rec.PlainTitle() != "Roadmap" {
		t.Errorf("PlainTitle = %q", rec.PlainTitle())
	}
	if !rec.Properties["Done"].Checkbox {
		t.Error("Done not decoded")
	}
}
