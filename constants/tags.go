package constants

import "strings"

// DefaultTags is the tag catalog offered on the submit and history forms.
var DefaultTags = []string{
	"auto de infração",
	"recibo",
	"nota fiscal",
	"documento geral",
	"formulário",
	"documento técnico",
}

// CanonicalizeTag matches input against catalog case-insensitively and returns
// the catalog spelling. Unknown tags are reported with ok=false.
func CanonicalizeTag(catalog []string, input string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}
	for _, tag := range catalog {
		if normalized == strings.ToLower(tag) {
			return tag, true
		}
	}
	return "", false
}

// FilterTags keeps the inputs that belong to catalog, in input order, without repeats.
func FilterTags(catalog []string, inputs []string) []string {
	out := make([]string, 0, len(inputs))
	seen := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		tag, ok := CanonicalizeTag(catalog, in)
		if !ok {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
