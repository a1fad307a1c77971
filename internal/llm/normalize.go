package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ParseError reports a model response that could not be turned into a table.
// Raw is the untouched response so the operator can see what came back.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse model response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	fencedBlock  = regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*[ \t]*\r?\n?(.*?)```")
	openingFence = regexp.MustCompile("^```[A-Za-z0-9_+-]*[ \t]*\r?\n?")
)

// StripCodeFences removes Markdown code-fence markup (with or without a
// language tag) and surrounding whitespace. When the text holds a fenced
// block among other prose, the first block's body is returned. Text that
// already starts as JSON is left alone so fences inside string values survive.
func StripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		return s
	}
	if m := fencedBlock.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	// unterminated fences
	s = openingFence.ReplaceAllString(s, "")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Normalize strips fences from a model response and converts the JSON into a
// table: one row per array element, or a single row for an object. Nested
// object keys become dotted column names. Any failure is a *ParseError.
func Normalize(raw string) (*Table, error) {
	cleaned := StripCodeFences(raw)
	if cleaned == "" {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("empty response")}
	}

	var decoded any
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	if err := validateTableShape(decoded); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}

	t := NewTable()
	doc := gjson.Parse(cleaned)
	if doc.IsArray() {
		doc.ForEach(func(_, item gjson.Result) bool {
			t.Rows = append(t.Rows, flattenObject(t, item))
			return true
		})
	} else {
		t.Rows = append(t.Rows, flattenObject(t, doc))
	}
	return t, nil
}

func flattenObject(t *Table, obj gjson.Result) Row {
	row := Row{}
	flattenInto(t, row, "", obj)
	return row
}

func flattenInto(t *Table, row Row, prefix string, obj gjson.Result) {
	obj.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		if prefix != "" {
			key = prefix + "." + key
		}
		if v.IsObject() {
			flattenInto(t, row, key, v)
			return true
		}
		t.addColumn(key)
		row[key] = cellValue(v)
		return true
	})
}

// cellValue keeps JSON scalars typed; nested arrays are stored as compact JSON text.
func cellValue(v gjson.Result) any {
	switch v.Type {
	case gjson.Null:
		return nil
	case gjson.True, gjson.False:
		return v.Bool()
	case gjson.Number:
		if !strings.ContainsAny(v.Raw, ".eE") {
			if n, ok := exactInt(v); ok {
				return n
			}
		}
		return v.Float()
	case gjson.String:
		return v.Str
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(v.Raw)); err != nil {
			return v.Raw
		}
		return buf.String()
	}
}

func exactInt(v gjson.Result) (int64, bool) {
	n, err := strconv.ParseInt(v.Raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
