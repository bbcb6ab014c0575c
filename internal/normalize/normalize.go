// Package normalize reconciles the heterogeneous shapes returned by tool
// servers into canonical forms. Different endpoints answer the same logical
// operation with hierarchical iteration trees, collections nested under
// different keys, or relation lists wrapping the actual items; everything
// here is total — malformed input degrades to an empty result, never a
// panic or an error.
package normalize

import (
	"encoding/json"
	"fmt"
)

// Decode unwraps a raw tool-call content value into parsed JSON. Content may
// be a plain string, a JSON-encoded string, a structured object, or a list
// whose first element carries a text field. Returns nil when nothing
// parseable is found.
func Decode(raw any) any {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		if len(v) == 0 {
			return nil
		}
		if m, ok := v[0].(map[string]any); ok {
			if text, ok := m["text"].(string); ok {
				return decodeString(text)
			}
		}
		if s, ok := v[0].(string); ok {
			return decodeString(s)
		}
		return v
	case map[string]any:
		if text, ok := v["text"].(string); ok {
			return decodeString(text)
		}
		return v
	case string:
		return decodeString(v)
	default:
		return v
	}
}

func decodeString(s string) any {
	var parsed any
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		// Plain text is still a valid final value for the chat path.
		return s
	}
	return parsed
}

// Items normalizes a work-item collection response into a flat list of item
// maps. Recognized shapes, in order:
//   - a map carrying workItemRelations (relation list)
//   - a map carrying workItems, value, or items (first non-empty wins)
//   - a bare list
//
// Anything else yields an empty list.
func Items(raw any) []map[string]any {
	switch v := raw.(type) {
	case map[string]any:
		if rels, ok := v["workItemRelations"].([]any); ok {
			return mapItems(rels)
		}
		for _, key := range []string{"workItems", "value", "items"} {
			if list, ok := v[key].([]any); ok && len(list) > 0 {
				return mapItems(list)
			}
		}
		return nil
	case []any:
		return mapItems(v)
	default:
		return nil
	}
}

func mapItems(list []any) []map[string]any {
	items := make([]map[string]any, 0, len(list))
	for _, el := range list {
		if m, ok := el.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items
}

// ExtractIDs collects item ids across the id fields used by the different
// endpoints: id, workItemId, and the ids of nested target/source relation
// objects. Duplicates are removed preserving first-seen order. The
// iteration-membership query and the detailed-item query return different id
// fields for the same logical item, so all of them are tried.
func ExtractIDs(items []map[string]any) []any {
	var ids []any
	seen := make(map[string]bool)

	add := func(v any) {
		if v == nil {
			return
		}
		key := fmt.Sprint(v)
		if seen[key] {
			return
		}
		seen[key] = true
		ids = append(ids, v)
	}

	for _, item := range items {
		add(item["id"])
		add(item["workItemId"])
		for _, rel := range []string{"target", "source"} {
			if obj, ok := item[rel].(map[string]any); ok {
				add(obj["id"])
			}
		}
	}
	return ids
}

// FlattenTree walks an iteration tree depth-first, parent before children,
// and returns the nodes as a flat list. The input is not mutated.
func FlattenTree(nodes []map[string]any) []map[string]any {
	var flat []map[string]any
	var walk func(node map[string]any)
	walk = func(node map[string]any) {
		flat = append(flat, node)
		if children, ok := node["children"].([]any); ok {
			for _, child := range children {
				if m, ok := child.(map[string]any); ok {
					walk(m)
				}
			}
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return flat
}

// ResolveIteration finds the iteration node matching reference. Every
// flattened node is compared by id, identifier, path, then name; the first
// match wins. Comparison is on string forms because some endpoints return
// numeric ids where others return strings.
func ResolveIteration(nodes []map[string]any, reference string) (map[string]any, bool) {
	for _, node := range FlattenTree(nodes) {
		for _, field := range []string{"id", "identifier", "path", "name"} {
			v, ok := node[field]
			if !ok || v == nil {
				continue
			}
			if fmt.Sprint(v) == reference {
				return node, true
			}
		}
	}
	return nil, false
}
