package schema

import (
	"github.com/sandraschi/notion-mcp/internal/notion"
)

// ── Record decoding ────────────────────────────────────────
// Pages returned by the remote carry a "properties" map of raw
// property objects. DecodeRecord turns one page into the internal
// value model, one codec-table lookup per property.

// DecodeProperties decodes a raw properties map. Unsupported types
// surface as a schema error naming the property and its type; nothing
// is silently dropped.
func DecodeProperties(props notion.Object) (map[string]Value, error) {
	values := make(map[string]Value, len(props))
	for name, raw := range props {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, notion.NewError(notion.KindSchema, "property %q has a malformed value", name)
		}
		v, err := Decode(obj)
		if err != nil {
			return nil, err
		}
		values[name] = v
	}
	return values, nil
}

// DecodeRecord decodes the properties of a full page object and
// returns them with the page ID and URL.
type DecodedRecord struct {
	ID         string           `json:"id"`
	URL        string           `json:"url,omitempty"`
	Properties map[string]Value `json:"properties"`
}

func DecodeRecord(page notion.Object) (DecodedRecord, error) {
	rec := DecodedRecord{}
	rec.ID, _ = page["id"].(string)
	rec.URL, _ = page["url"].(string)
	props, _ := page["properties"].(map[string]any)
	values, err := DecodeProperties(props)
	if err != nil {
		return DecodedRecord{}, err
	}
	rec.Properties = values
	return rec, nil
}

// PlainTitle extracts the title text from a decoded record, or "".
func (r DecodedRecord) PlainTitle() string {
	for _, v := range r.Properties {
		if v.Kind == KindTitle {
			return v.Text
		}
	}
	return ""
}
