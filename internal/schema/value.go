package schema

// ── PropertyValue ──────────────────────────────────────────
// Simplified internal representation of a remote property value.
// A tagged union: Kind selects which field carries the payload.
// Values hold enough type information to be re-encoded without loss;
// remote-only presentation metadata (select option colors, rich-text
// annotations, file expiry URLs) is intentionally dropped and does
// NOT survive a decode→encode round trip.

// Kind identifies a remote property type. The string values are the
// remote service's own type tags.
type Kind string

const (
	KindTitle          Kind = "title"
	KindRichText       Kind = "rich_text"
	KindNumber         Kind = "number"
	KindCheckbox       Kind = "checkbox"
	KindSelect         Kind = "select"
	KindMultiSelect    Kind = "multi_select"
	KindStatus         Kind = "status"
	KindDate           Kind = "date"
	KindPeople         Kind = "people"
	KindRelation       Kind = "relation"
	KindURL            Kind = "url"
	KindEmail          Kind = "email"
	KindPhoneNumber    Kind = "phone_number"
	KindFiles          Kind = "files"
	KindFormula        Kind = "formula"
	KindRollup         Kind = "rollup"
	KindCreatedTime    Kind = "created_time"
	KindLastEditedTime Kind = "last_edited_time"
)

// DateRange is a date or datetime span. End is empty for a single
// date. Values are ISO-8601 strings exactly as the remote sends them.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

// FileRef references an uploaded or external file.
type FileRef struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url"`
}

// Value is the tagged union over all supported property payloads.
type Value struct {
	Kind Kind `json:"kind"`

	// Text carries title, rich_text, url, email, phone_number and the
	// string results of computed properties.
	Text string `json:"text,omitempty"`

	// Number is a pointer so an unset number survives round trips.
	Number *float64 `json:"number,omitempty"`

	Checkbox bool       `json:"checkbox,omitempty"`
	Date     *DateRange `json:"date,omitempty"`

	// Choice carries select and status; Choices carries multi_select.
	Choice  string   `json:"choice,omitempty"`
	Choices []string `json:"choices,omitempty"`

	// People and Relations are ordered ID sequences.
	People    []string  `json:"people,omitempty"`
	Relations []string  `json:"relations,omitempty"`
	Files     []FileRef `json:"files,omitempty"`

	// Computed holds a decoded formula/rollup result. Read-only:
	// values of these kinds refuse to encode.
	Computed any `json:"computed,omitempty"`
}

// ── Constructors ───────────────────────────────────────────
// Convenience builders used by the bulk mapper and tests.

func Title(s string) Value    { return Value{Kind: KindTitle, Text: s} }
func Text(s string) Value     { return Value{Kind: KindRichText, Text: s} }
func URL(s string) Value      { return Value{Kind: KindURL, Text: s} }
func Email(s string) Value    { return Value{Kind: KindEmail, Text: s} }
func Phone(s string) Value    { return Value{Kind: KindPhoneNumber, Text: s} }
func Checkbox(b bool) Value   { return Value{Kind: KindCheckbox, Checkbox: b} }
func Select(name string) Value { return Value{Kind: KindSelect, Choice: name} }
func Status(name string) Value { return Value{Kind: KindStatus, Choice: name} }

func Number(n float64) Value {
	return Value{Kind: KindNumber, Number: &n}
}

func MultiSelect(names ...string) Value {
	return Value{Kind: KindMultiSelect, Choices: names}
}

func Date(start, end string) Value {
	return Value{Kind: KindDate, Date: &DateRange{Start: start, End: end}}
}

func People(ids ...string) Value {
	return Value{Kind: KindPeople, People: ids}
}

func Relation(ids ...string) Value {
	return Value{Kind: KindRelation, Relations: ids}
}

// IsComputed reports whether the kind is read-only on the remote side.
func (k Kind) IsComputed() bool {
	switch k {
	case KindFormula, KindRollup, KindCreatedTime, KindLastEditedTime:
		return true
	default:
		return false
	}
}

// IsChoice reports whether the kind draws values from an enumerated
// option set declared on the schema.
func (k Kind) IsChoice() bool {
	return k == KindSelect || k == KindMultiSelect || k == KindStatus
}
