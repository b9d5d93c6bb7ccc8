package transition

import (
	"encoding/json"
	"sort"
	"strings"
)

// GateClassifier decides whether the gate stage's raw result reports the
// case information as complete. It must be a pure function of text.
type GateClassifier func(text string) bool

// AlwaysComplete is the classifier used when none is configured.
func AlwaysComplete(string) bool { return true }

// DefaultIncompleteMarkers are the phrases MarkerClassifier treats as an
// incomplete verdict when the result carries no structured flag.
var DefaultIncompleteMarkers = []string{
	"INCOMPLEET",
	"ONVOLLEDIG",
	"INFORMATIE ONTBREEKT",
	"INCOMPLETE",
}

// completenessFields are the JSON fields read as a boolean verdict.
var completenessFields = []string{"complete", "compleet", "volledig", "is_complete", "information_complete"}

var (
	completeStatuses   = []string{"complete", "compleet", "volledig"}
	incompleteStatuses = []string{"incomplete", "incompleet", "onvolledig"}
)

// MarkerClassifier returns a classifier that looks for a structured verdict
// first and falls back to phrase matching:
//
//  1. the first JSON object in the text is decoded and a boolean
//     completeness field, or a "status" string, decides;
//  2. otherwise any of markers (case-insensitive) means incomplete;
//  3. otherwise the text counts as complete.
//
// A nil or empty markers slice uses DefaultIncompleteMarkers.
func MarkerClassifier(markers []string) GateClassifier {
	if len(markers) == 0 {
		markers = DefaultIncompleteMarkers
	}
	upper := make([]string, 0, len(markers))
	for _, m := range markers {
		if m = strings.TrimSpace(m); m != "" {
			upper = append(upper, strings.ToUpper(m))
		}
	}

	return func(text string) bool {
		if verdict, ok := structuredVerdict(text); ok {
			return verdict
		}
		haystack := strings.ToUpper(text)
		for _, m := range upper {
			if strings.Contains(haystack, m) {
				return false
			}
		}
		return true
	}
}

// structuredVerdict decodes the first JSON object in text and looks for a
// completeness flag at the top level or one level down.
func structuredVerdict(text string) (bool, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return false, false
	}
	var doc map[string]any
	if err := json.NewDecoder(strings.NewReader(text[start:])).Decode(&doc); err != nil {
		return false, false
	}
	if v, ok := verdictFrom(doc); ok {
		return v, true
	}
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if obj, isObj := doc[k].(map[string]any); isObj {
			if v, ok := verdictFrom(obj); ok {
				return v, true
			}
		}
	}
	return false, false
}

// verdictFrom checks completenessFields in order, then "status", so that a
// document carrying several flags is classified the same way every time.
// Field names match case-insensitively; keys differing only in case are
// tried in sorted order.
func verdictFrom(obj map[string]any) (bool, bool) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, f := range completenessFields {
		for _, k := range keys {
			if !strings.EqualFold(k, f) {
				continue
			}
			switch v := obj[k].(type) {
			case bool:
				return v, true
			case string:
				if b, ok := parseVerdictWord(v); ok {
					return b, true
				}
			}
		}
	}
	for _, k := range keys {
		if s, isStr := obj[k].(string); isStr && strings.EqualFold(k, "status") {
			if b, ok := parseVerdictWord(s); ok {
				return b, true
			}
		}
	}
	return false, false
}

func parseVerdictWord(s string) (bool, bool) {
	w := strings.ToLower(strings.TrimSpace(s))
	switch w {
	case "true", "ja", "yes":
		return true, true
	case "false", "nee", "no":
		return false, true
	}
	for _, c := range incompleteStatuses {
		if w == c {
			return false, true
		}
	}
	for _, c := range completeStatuses {
		if w == c {
			return true, true
		}
	}
	return false, false
}
