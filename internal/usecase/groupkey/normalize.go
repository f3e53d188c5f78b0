// Package groupkey turns broker group paths into lookup keys and resolves a
// partner's commission rule for them. It is the only place group strings are
// matched; trade storage, aggregation and sync all go through it.
package groupkey

import (
	"strings"
)

const bbookSegment = "bbook"

// Normalize returns the ordered candidate keys for a raw group path such as
// `real\Bbook\Standard\dynamic-2000x-20Pips`. Order: lower-cased original,
// forward-slash form, backslash form, last segment, segment after "bbook".
// Empty input yields nil.
func Normalize(raw string) []string {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if lower == "" {
		return nil
	}

	keys := make([]string, 0, 6)
	seen := make(map[string]struct{}, 6)
	add := func(k string) {
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	add(lower)
	add(strings.ReplaceAll(lower, `\`, "/"))
	add(strings.ReplaceAll(lower, "/", `\`))

	segments := splitSegments(lower)
	if len(segments) > 0 {
		add(segments[len(segments)-1])
	}
	for i, seg := range segments {
		if seg == bbookSegment && i+1 < len(segments) {
			add(segments[i+1])
		}
	}

	return keys
}

// AssignmentKey is the rule map key for an assignment's group id (or its
// name when the id is blank).
func AssignmentKey(groupID, groupName string) string {
	key := strings.ToLower(strings.TrimSpace(groupID))
	if key == "" {
		key = strings.ToLower(strings.TrimSpace(groupName))
	}
	return key
}

func splitSegments(path string) []string {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	segments := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}
