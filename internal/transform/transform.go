// Package transform converts raw API rows into typed records.
//
// Transform is a pure function of the row, the stream schema and the
// catalog metadata. Values are never coerced across JSON kinds: a string
// does not become an integer and a number does not become a string. The
// only conversion is parsing date-time strings into timestamps.
package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/custodia-labs/tap-freshcaller/internal/core/domain"
)

// Transform converts raw into a record shaped by schema. Properties missing
// from the schema or deselected in md are dropped. A nil md keeps every
// schema property.
func Transform(raw domain.Row, schema *domain.Schema, md domain.Metadata) (domain.Record, error) {
	t := transformer{md: md}
	v, err := t.object(map[string]any(raw), schema, "", []string{})
	if err != nil {
		return domain.Record{}, err
	}
	return domain.Record{Data: v}, nil
}

type transformer struct {
	md domain.Metadata
}

// value converts v against schema, trying each allowed type in order.
// crumb is the metadata breadcrumb of v; nil disables selection below it.
func (t transformer) value(v any, schema *domain.Schema, path string, crumb []string) (domain.Value, error) {
	if schema == nil || len(schema.Type) == 0 {
		return infer(v, path)
	}

	var nested error
	for _, typ := range schema.Type {
		out, ok, err := t.as(typ, v, schema, path, crumb)
		if err != nil {
			// A deeper mismatch is more useful than the outer one.
			nested = err
			continue
		}
		if ok {
			return out, nil
		}
	}
	if nested != nil {
		return domain.Value{}, nested
	}
	return domain.Value{}, &MismatchError{Path: path, Want: schema.Type, Got: describe(v)}
}

// as attempts one schema type. ok is false when v is not of that kind.
func (t transformer) as(typ string, v any, schema *domain.Schema, path string, crumb []string) (domain.Value, bool, error) {
	switch typ {
	case domain.TypeNull:
		if v == nil {
			return domain.Null(), true, nil
		}

	case domain.TypeBoolean:
		if b, ok := v.(bool); ok {
			return domain.Bool(b), true, nil
		}

	case domain.TypeInteger:
		if i, ok := asInteger(v); ok {
			return domain.Integer(i), true, nil
		}

	case domain.TypeNumber:
		if f, ok := asNumber(v); ok {
			return domain.Number(f), true, nil
		}

	case domain.TypeString:
		s, ok := v.(string)
		if !ok {
			break
		}
		if schema.Format == domain.FormatDateTime {
			ts, err := domain.ParseTimestamp(s)
			if err != nil {
				return domain.Value{}, false, nil
			}
			return domain.DateTime(ts), true, nil
		}
		return domain.String(s), true, nil

	case domain.TypeObject:
		m, ok := asMap(v)
		if !ok {
			break
		}
		out, err := t.object(m, schema, path, crumb)
		if err != nil {
			return domain.Value{}, false, err
		}
		return out, true, nil

	case domain.TypeArray:
		items, ok := v.([]any)
		if !ok {
			break
		}
		out := make([]domain.Value, 0, len(items))
		for i, item := range items {
			converted, err := t.value(item, schema.Items, fmt.Sprintf("%s[%d]", path, i), nil)
			if err != nil {
				return domain.Value{}, false, err
			}
			out = append(out, converted)
		}
		return domain.Array(out), true, nil
	}

	return domain.Value{}, false, nil
}

// object converts the declared, selected properties of m.
func (t transformer) object(m map[string]any, schema *domain.Schema, path string, crumb []string) (domain.Value, error) {
	if schema == nil || len(schema.Properties) == 0 {
		return infer(m, path)
	}

	fields := make(map[string]domain.Value, len(schema.Properties))
	for name, prop := range schema.Properties {
		raw, present := m[name]
		if !present {
			continue
		}

		var child []string
		if crumb != nil {
			child = append(append(make([]string, 0, len(crumb)+2), crumb...), "properties", name)
			if t.md != nil && !t.md.FieldSelected(child) {
				continue
			}
		}

		v, err := t.value(raw, prop, join(path, name), child)
		if err != nil {
			return domain.Value{}, err
		}
		fields[name] = v
	}
	return domain.Object(fields), nil
}

// infer converts a value whose schema declares no type.
func infer(v any, path string) (domain.Value, error) {
	switch x := v.(type) {
	case nil:
		return domain.Null(), nil
	case bool:
		return domain.Bool(x), nil
	case string:
		return domain.String(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return domain.Integer(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return domain.Value{}, &MismatchError{Path: path, Want: domain.SchemaType{domain.TypeNumber}, Got: "number " + x.String()}
		}
		return domain.Number(f), nil
	case float64:
		return domain.Number(x), nil
	case int:
		return domain.Integer(int64(x)), nil
	case int64:
		return domain.Integer(x), nil
	case []any:
		out := make([]domain.Value, 0, len(x))
		for i, item := range x {
			converted, err := infer(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return domain.Value{}, err
			}
			out = append(out, converted)
		}
		return domain.Array(out), nil
	}

	if m, ok := asMap(v); ok {
		fields := make(map[string]domain.Value, len(m))
		for name, raw := range m {
			converted, err := infer(raw, join(path, name))
			if err != nil {
				return domain.Value{}, err
			}
			fields[name] = converted
		}
		return domain.Object(fields), nil
	}

	return domain.Value{}, &MismatchError{Path: path, Got: describe(v)}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case domain.Row:
		return m, true
	}
	return nil, false
}

func asInteger(v any) (int64, bool) {
	switch x := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(x.String(), 10, 64); err == nil {
			return i, true
		}
		// Accept integral decimals such as 3.0.
		f, err := x.Float64()
		if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			return 0, false
		}
		return int64(f), true
	case float64:
		if x != math.Trunc(x) || math.Abs(x) > 1<<53 {
			return 0, false
		}
		return int64(x), true
	case int:
		return int64(x), true
	case int64:
		return x, true
	}
	return 0, false
}

func asNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

func describe(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return strconv.Quote(x)
	case json.Number:
		return "number " + x.String()
	case float64, int, int64:
		return fmt.Sprintf("number %v", x)
	case []any:
		return "array"
	}
	if _, ok := asMap(v); ok {
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
