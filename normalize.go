package artcache

import "github.com/tidwall/gjson"

// extractionRule returns the item list found in a payload, if any.
type extractionRule struct {
	name    string
	extract func(gjson.Result) (gjson.Result, bool)
}

func bareList() extractionRule {
	return extractionRule{
		name: "list",
		extract: func(root gjson.Result) (gjson.Result, bool) {
			return root, root.IsArray()
		},
	}
}

func listAt(path string) extractionRule {
	return extractionRule{
		name: path,
		extract: func(root gjson.Result) (gjson.Result, bool) {
			if !root.IsObject() {
				return gjson.Result{}, false
			}
			list := root.Get(path)
			return list, list.IsArray()
		},
	}
}

// The envelopes the backend is known to send, most specific first.
var extractionRules = []extractionRule{
	bareList(),
	listAt("data.items"),
	listAt("items"),
	listAt("data"),
	listAt("artworks"),
	listAt("data.artworks"),
	listAt("results"),
}

// Normalize extracts the item list from a catalog payload.
// The first rule that yields a list wins; list elements that are not items
// are skipped. A payload that matches no rule is an empty catalog.
func Normalize(payload []byte) []Item {
	items := make([]Item, 0)
	if !gjson.ValidBytes(payload) {
		return items
	}
	root := gjson.ParseBytes(payload)
	for _, rule := range extractionRules {
		list, ok := rule.extract(root)
		if !ok {
			continue
		}
		list.ForEach(func(_, v gjson.Result) bool {
			if it, ok := itemFromResult(v); ok {
				items = append(items, it)
			}
			return true
		})
		return items
	}
	return items
}

// extractItem finds a single item in a mutation response envelope.
func extractItem(payload []byte) (Item, bool) {
	if !gjson.ValidBytes(payload) {
		return Item{}, false
	}
	root := gjson.ParseBytes(payload)
	for _, v := range []gjson.Result{root, root.Get("data"), root.Get("item"), root.Get("artwork"), root.Get("data.item")} {
		if it, ok := itemFromResult(v); ok {
			return it, true
		}
	}
	return Item{}, false
}

// errorMessage finds the human readable message in an error envelope.
func errorMessage(payload []byte) string {
	if !gjson.ValidBytes(payload) {
		return ""
	}
	root := gjson.ParseBytes(payload)
	if !root.IsObject() {
		return ""
	}
	return firstString(root, "message", "error.message", "error", "detail")
}
