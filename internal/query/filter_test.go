package query

import (
	"reflect"
	"testing"

	"github.com/sandraschi/notion-mcp/internal/notion"
	"github.com/sandraschi/notion-mcp/internal/schema"
)

func testSchema() *schema.RecordSchema {
	return schema.NewRecordSchema(
		schema.PropertyDef{Name: "Name", Kind: schema.KindTitle},
		schema.PropertyDef{Name: "Status", Kind: schema.KindSelect, Options: []string{"Todo", "Done"}},
		schema.PropertyDef{Name: "Tags", Kind: schema.KindMultiSelect},
		schema.PropertyDef{Name: "Count", Kind: schema.KindNumber},
		schema.PropertyDef{Name: "Due", Kind: schema.KindDate},
		schema.PropertyDef{Name: "Done", Kind: schema.KindCheckbox},
		schema.PropertyDef{Name: "Score", Kind: schema.KindFormula},
		schema.PropertyDef{Name: "Created", Kind: schema.KindCreatedTime},
	)
}

func render(t *testing.T, f Filter) notion.Object {
	t.Helper()
	body, err := f.render(testSchema(), false)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return body
}

func TestLeafRendersPropertyClause(t *testing.T) {
	body := render(t, Leaf{Property: "Status", Op: OpEquals, Operand: "Done"})
	want := notion.Object{
		"property": "Status",
		"select":   notion.Object{"equals": "Done"},
	}
	if !reflect.DeepEqual(body, want) {
		t.Errorf("body = %v, want %v", body, want)
	}
}

func TestLeafValidationFailsBeforeAnyRendering(t *testing.T) {
	tests := []struct {
		name string
		leaf Leaf
	}{
		{"unknown property", Leaf{Property: "Ghost", Op: OpEquals, Operand: 1}},
		{"operator wrong for type", Leaf{Property: "Count", Op: OpContains, Operand: 3}},
		{"contains on checkbox", Leaf{Property: "Done", Op: OpContains, Operand: true}},
		{"computed kinds are not filterable", Leaf{Property: "Score", Op: OpEquals, Operand: 1}},
		{"missing operand", Leaf{Property: "Count", Op: OpGreaterThan}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.leaf.render(testSchema(), false)
			if !notion.IsKind(err, notion.KindValidation) {
				t.Errorf("got %v, want validation error", err)
			}
		})
	}
}

func TestDateOperatorAliases(t *testing.T) {
	body := render(t, Leaf{Property: "Due", Op: OpGreaterThan, Operand: "2024-06-01"})
	clause := body["date"].(notion.Object)
	if _, ok := clause["after"]; !ok {
		t.Errorf("greater_than on a date should render as after, got %v", clause)
	}

	body = render(t, Leaf{Property: "Due", Op: OpAtMost, Operand: "2024-06-01"})
	clause = body["date"].(notion.Object)
	if _, ok := clause["on_or_before"]; !ok {
		t.Errorf("less_than_or_equal_to on a date should render as on_or_before, got %v", clause)
	}
}

func TestTimestampKindsUseTimestampKeyword(t *testing.T) {
	body := render(t, Leaf{Property: "Created", Op: OpAfter, Operand: "2024-01-01"})
	if _, ok := body["created_time"]; !ok {
		t.Errorf("created_time leaf should use the created_time keyword, got %v", body)
	}
}

func TestIsEmptyForcesTrueOperand(t *testing.T) {
	body := render(t, Leaf{Property: "Status", Op: OpIsEmpty})
	clause := body["select"].(notion.Object)
	if clause["is_empty"] != true {
		t.Errorf("is_empty operand = %v, want true", clause["is_empty"])
	}
}

func TestGroupRendering(t *testing.T) {
	body := render(t, And{
		Leaf{Property: "Status", Op: OpEquals, Operand: "Done"},
		Leaf{Property: "Count", Op: OpGreaterThan, Operand: 5},
	})
	children, ok := body["and"].([]notion.Object)
	if !ok || len(children) != 2 {
		t.Fatalf("and body = %v", body)
	}

	// A single-child group collapses to the child.
	body = render(t, Or{Leaf{Property: "Done", Op: OpEquals, Operand: true}})
	if _, ok := body["or"]; ok {
		t.Errorf("single-child group should unwrap, got %v", body)
	}
	if body["property"] != "Done" {
		t.Errorf("unwrapped body = %v", body)
	}

	if _, err := (And{}).render(testSchema(), false); !notion.IsKind(err, notion.KindValidation) {
		t.Errorf("empty group: got %v, want validation error", err)
	}
}

func TestNotPushesNegationOntoLeaves(t *testing.T) {
	body := render(t, Not{Child: Leaf{Property: "Status", Op: OpEquals, Operand: "Done"}})
	clause := body["select"].(notion.Object)
	if _, ok := clause["does_not_equal"]; !ok {
		t.Errorf("negated equals should render does_not_equal, got %v", clause)
	}

	// De Morgan: not(and(A, B)) becomes or(not A, not B).
	body = render(t, Not{Child: And{
		Leaf{Property: "Status", Op: OpEquals, Operand: "Done"},
		Leaf{Property: "Count", Op: OpGreaterThan, Operand: 5},
	}})
	children, ok := body["or"].([]notion.Object)
	if !ok || len(children) != 2 {
		t.Fatalf("negated and should become or, got %v", body)
	}
	count := children[1]["number"].(notion.Object)
	if _, ok := count["less_than_or_equal_to"]; !ok {
		t.Errorf("negated greater_than should become less_than_or_equal_to, got %v", count)
	}

	// Double negation cancels.
	body = render(t, Not{Child: Not{Child: Leaf{Property: "Status", Op: OpEquals, Operand: "Done"}}})
	clause = body["select"].(notion.Object)
	if _, ok := clause["equals"]; !ok {
		t.Errorf("double negation should cancel, got %v", clause)
	}

	// starts_with has no inverse operator.
	_, err := Not{Child: Leaf{Property: "Name", Op: OpStartsWith, Operand: "P"}}.render(testSchema(), false)
	if !notion.IsKind(err, notion.KindValidation) {
		t.Errorf("non-negatable operator under not: got %v, want validation error", err)
	}
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter(map[string]any{
		"and": []any{
			map[string]any{"property": "Status", "op": "equals", "value": "Done"},
			map[string]any{"not": map[string]any{"property": "Count", "op": "greater_than", "value": 5.0}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	group, ok := f.(And)
	if !ok || len(group) != 2 {
		t.Fatalf("parsed = %#v", f)
	}
	leaf := group[0].(Leaf)
	if leaf.Property != "Status" || leaf.Op != OpEquals || leaf.Operand != "Done" {
		t.Errorf("leaf = %+v", leaf)
	}
	if _, ok := group[1].(Not); !ok {
		t.Errorf("second child = %#v, want Not", group[1])
	}
}

func TestParseFilterDefaultsToEquals(t *testing.T) {
	f, err := ParseFilter(map[string]any{"property": "Status", "value": "Done"})
	if err != nil {
		t.Fatal(err)
	}
	if leaf := f.(Leaf); leaf.Op != OpEquals {
		t.Errorf("op = %q, want equals", leaf.Op)
	}
}

func TestParseFilterErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"no property and no group", map[string]any{"op": "equals"}},
		{"and is not an array", map[string]any{"and": "x"}},
		{"not is not an object", map[string]any{"not": []any{}}},
		{"group child not an object", map[string]any{"or": []any{"x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseFilter(tt.raw); !notion.IsKind(err, notion.KindValidation) {
				t.Errorf("got %v, want validation error", err)
			}
		})
	}
}
