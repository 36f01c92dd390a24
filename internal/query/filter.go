package query

import (
	"github.com/mitchellh/mapstructure"

	"github.com/sandraschi/notion-mcp/internal/notion"
	"github.com/sandraschi/notion-mcp/internal/schema"
)

// ── FilterExpression ───────────────────────────────────────
// A filter is a tree: leaves compare one property against an
// operand, inner nodes compose children with and/or/not. Every leaf
// is validated against the target schema while the request body is
// rendered, so a bad property name or an operator/type mismatch
// never reaches the network.

// Operator is a comparison applied at a leaf.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "does_not_equal"
	OpContains    Operator = "contains"
	OpNotContains Operator = "does_not_contain"
	OpStartsWith  Operator = "starts_with"
	OpEndsWith    Operator = "ends_with"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpAtLeast     Operator = "greater_than_or_equal_to"
	OpAtMost      Operator = "less_than_or_equal_to"
	OpBefore      Operator = "before"
	OpAfter       Operator = "after"
	OpOnOrBefore  Operator = "on_or_before"
	OpOnOrAfter   Operator = "on_or_after"
	OpIsEmpty     Operator = "is_empty"
	OpIsNotEmpty  Operator = "is_not_empty"
)

// operatorsByKind is the compatibility table: which operators each
// property kind accepts. A closed table, like the codec.
var operatorsByKind = map[schema.Kind]map[Operator]bool{
	schema.KindTitle:       textOperators(),
	schema.KindRichText:    textOperators(),
	schema.KindURL:         textOperators(),
	schema.KindEmail:       textOperators(),
	schema.KindPhoneNumber: textOperators(),
	schema.KindNumber: opSet(OpEquals, OpNotEquals, OpGreaterThan, OpLessThan,
		OpAtLeast, OpAtMost, OpIsEmpty, OpIsNotEmpty),
	schema.KindCheckbox: opSet(OpEquals, OpNotEquals),
	schema.KindSelect:   opSet(OpEquals, OpNotEquals, OpIsEmpty, OpIsNotEmpty),
	schema.KindStatus:   opSet(OpEquals, OpNotEquals, OpIsEmpty, OpIsNotEmpty),
	schema.KindMultiSelect: opSet(OpContains, OpNotContains, OpIsEmpty,
		OpIsNotEmpty),
	schema.KindDate: opSet(OpEquals, OpBefore, OpAfter, OpOnOrBefore,
		OpOnOrAfter, OpGreaterThan, OpLessThan, OpAtLeast, OpAtMost,
		OpIsEmpty, OpIsNotEmpty),
	schema.KindPeople:   opSet(OpContains, OpNotContains, OpIsEmpty, OpIsNotEmpty),
	schema.KindRelation: opSet(OpContains, OpNotContains, OpIsEmpty, OpIsNotEmpty),
	schema.KindFiles:    opSet(OpIsEmpty, OpIsNotEmpty),
	schema.KindCreatedTime: opSet(OpEquals, OpBefore, OpAfter, OpOnOrBefore,
		OpOnOrAfter),
	schema.KindLastEditedTime: opSet(OpEquals, OpBefore, OpAfter, OpOnOrBefore,
		OpOnOrAfter),
	// Computed kinds (formula, rollup) are not filterable through the
	// simplified surface; leaves referencing them fail validation.
}

func textOperators() map[Operator]bool {
	return opSet(OpEquals, OpNotEquals, OpContains, OpNotContains,
		OpStartsWith, OpEndsWith, OpIsEmpty, OpIsNotEmpty)
}

func opSet(ops ...Operator) map[Operator]bool {
	m := make(map[Operator]bool, len(ops))
	for _, op := range ops {
		m[op] = true
	}
	return m
}

// dateOperatorAliases maps number-style comparisons onto the date
// operators the remote service expects.
var dateOperatorAliases = map[Operator]Operator{
	OpGreaterThan: OpAfter,
	OpLessThan:    OpBefore,
	OpAtLeast:     OpOnOrAfter,
	OpAtMost:      OpOnOrBefore,
}

// negations maps each operator to its inverse, used to push Not
// nodes down onto leaves (the remote service has no negation node).
var negations = map[Operator]Operator{
	OpEquals:      OpNotEquals,
	OpNotEquals:   OpEquals,
	OpContains:    OpNotContains,
	OpNotContains: OpContains,
	OpIsEmpty:     OpIsNotEmpty,
	OpIsNotEmpty:  OpIsEmpty,
	OpBefore:      OpOnOrAfter,
	OpAfter:       OpOnOrBefore,
	OpOnOrBefore:  OpAfter,
	OpOnOrAfter:   OpBefore,
	OpGreaterThan: OpAtMost,
	OpLessThan:    OpAtLeast,
	OpAtLeast:     OpLessThan,
	OpAtMost:      OpGreaterThan,
}

// Filter is a node in the expression tree.
type Filter interface {
	// render validates the node against the schema and produces the
	// remote filter JSON. negate is true inside an odd number of Not
	// wrappers.
	render(s *schema.RecordSchema, negate bool) (notion.Object, error)
}

// Leaf compares a single property.
type Leaf struct {
	Property string
	Op       Operator
	Operand  any
}

// And matches when all children match.
type And []Filter

// Or matches when any child matches.
type Or []Filter

// Not inverts its child via operator negation and De Morgan's laws.
type Not struct {
	Child Filter
}

func (l Leaf) render(s *schema.RecordSchema, negate bool) (notion.Object, error) {
	def, ok := s.Lookup(l.Property)
	if !ok {
		return nil, notion.NewError(notion.KindValidation,
			"filter references property %q which does not exist in the database schema", l.Property)
	}

	op := l.Op
	allowed, ok := operatorsByKind[def.Kind]
	if !ok || !allowed[op] {
		return nil, notion.NewError(notion.KindValidation,
			"operator %q is not valid for property %q of type %q", op, l.Property, def.Kind)
	}

	if negate {
		inverse, ok := negations[op]
		if !ok {
			return nil, notion.NewError(notion.KindValidation,
				"operator %q on property %q cannot be negated", op, l.Property)
		}
		op = inverse
	}

	// Date-family properties use before/after rather than the
	// numeric comparison names.
	if def.Kind == schema.KindDate || def.Kind == schema.KindCreatedTime ||
		def.Kind == schema.KindLastEditedTime {
		if alias, ok := dateOperatorAliases[op]; ok {
			op = alias
		}
	}

	operand := l.Operand
	if op == OpIsEmpty || op == OpIsNotEmpty {
		// The remote service requires the literal true here.
		operand = true
	}
	if operand == nil {
		return nil, notion.NewError(notion.KindValidation,
			"operator %q on property %q requires an operand", op, l.Property)
	}

	return notion.Object{
		"property":             l.Property,
		filterKeyword(def.Kind): notion.Object{string(op): operand},
	}, nil
}

func (a And) render(s *schema.RecordSchema, negate bool) (notion.Object, error) {
	// ¬(A ∧ B) = ¬A ∨ ¬B
	key := "and"
	if negate {
		key = "or"
	}
	return renderGroup(key, a, s, negate)
}

func (o Or) render(s *schema.RecordSchema, negate bool) (notion.Object, error) {
	key := "or"
	if negate {
		key = "and"
	}
	return renderGroup(key, o, s, negate)
}

func (n Not) render(s *schema.RecordSchema, negate bool) (notion.Object, error) {
	if n.Child == nil {
		return nil, notion.NewError(notion.KindValidation, "not filter requires a child expression")
	}
	return n.Child.render(s, !negate)
}

func renderGroup(key string, children []Filter, s *schema.RecordSchema, negate bool) (notion.Object, error) {
	if len(children) == 0 {
		return nil, notion.NewError(notion.KindValidation, "%s filter requires at least one child", key)
	}
	if len(children) == 1 {
		return children[0].render(s, negate)
	}
	rendered := make([]notion.Object, 0, len(children))
	for _, child := range children {
		body, err := child.render(s, negate)
		if err != nil {
			return nil, err
		}
		rendered = append(rendered, body)
	}
	return notion.Object{key: rendered}, nil
}

// filterKeyword maps a property kind to the remote filter key.
// Timestamp kinds filter through the timestamp clause keyword.
func filterKeyword(kind schema.Kind) string {
	switch kind {
	case schema.KindCreatedTime:
		return "created_time"
	case schema.KindLastEditedTime:
		return "last_edited_time"
	default:
		return string(kind)
	}
}

// ── Parsing ────────────────────────────────────────────────
// Tool callers pass filters as JSON objects:
//   {"property": "Status", "op": "equals", "value": "Done"}
//   {"and": [ ... ]} / {"or": [ ... ]} / {"not": { ... }}

type leafSpec struct {
	Property string `mapstructure:"property"`
	Op       string `mapstructure:"op"`
	Value    any    `mapstructure:"value"`
}

// ParseFilter converts the caller-facing JSON form into a Filter tree.
func ParseFilter(raw map[string]any) (Filter, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	if children, ok := raw["and"]; ok {
		return parseGroup("and", children, func(fs []Filter) Filter { return And(fs) })
	}
	if children, ok := raw["or"]; ok {
		return parseGroup("or", children, func(fs []Filter) Filter { return Or(fs) })
	}
	if child, ok := raw["not"]; ok {
		childMap, ok := child.(map[string]any)
		if !ok {
			return nil, notion.NewError(notion.KindValidation, "not filter must contain an object")
		}
		inner, err := ParseFilter(childMap)
		if err != nil {
			return nil, err
		}
		return Not{Child: inner}, nil
	}

	var spec leafSpec
	if err := mapstructure.Decode(raw, &spec); err != nil {
		return nil, notion.NewError(notion.KindValidation, "malformed filter: %v", err)
	}
	if spec.Property == "" {
		return nil, notion.NewError(notion.KindValidation,
			"filter object needs a property name or an and/or/not group")
	}
	op := spec.Op
	if op == "" {
		op = string(OpEquals)
	}
	return Leaf{Property: spec.Property, Op: Operator(op), Operand: spec.Value}, nil
}

func parseGroup(key string, raw any, wrap func([]Filter) Filter) (Filter, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, notion.NewError(notion.KindValidation, "%s filter must contain an array", key)
	}
	children := make([]Filter, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, notion.NewError(notion.KindValidation, "%s filter children must be objects", key)
		}
		child, err := ParseFilter(m)
		if err != nil {
			return nil, err
		}
		if child != nil {
			children = append(children, child)
		}
	}
	if len(children) == 0 {
		return nil, notion.NewError(notion.KindValidation, "%s filter requires at least one child", key)
	}
	return wrap(children), nil
}
