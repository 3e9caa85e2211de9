package artcache

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Item is one artwork in the catalog.
type Item struct {
	ID          string  `json:"id" yaml:"id"`
	Title       string  `json:"title" yaml:"title"`
	Price       float64 `json:"price" yaml:"price"`
	Category    string  `json:"category" yaml:"category"`
	Image       string  `json:"image" yaml:"image"`
	Description string  `json:"description" yaml:"description"`
	Artist      string  `json:"artist,omitempty" yaml:"artist,omitempty"`
	Year        int     `json:"year,omitempty" yaml:"year,omitempty"`
	Available   bool    `json:"available,omitempty" yaml:"available,omitempty"`
}

// UnmarshalJSON accepts the field spellings the backend has used over time:
// numeric or string ids (also as `_id`), `name` for the title,
// `imageUrl`/`image_url` for the image and prices sent as strings.
func (it *Item) UnmarshalJSON(b []byte) error {
	if !gjson.ValidBytes(b) {
		return ErrInvalidPayload
	}
	*it, _ = itemFromResult(gjson.ParseBytes(b))
	return nil
}

// itemFromResult decodes an item from a JSON object.
// The boolean is false if the value is not an object with an identifier.
func itemFromResult(v gjson.Result) (Item, bool) {
	if !v.IsObject() {
		return Item{}, false
	}
	it := Item{
		ID:          firstString(v, "id", "_id"),
		Title:       firstString(v, "title", "name"),
		Price:       v.Get("price").Float(),
		Category:    firstString(v, "category"),
		Image:       firstString(v, "image", "imageUrl", "image_url"),
		Description: firstString(v, "description"),
		Artist:      firstString(v, "artist"),
		Year:        int(v.Get("year").Int()),
		Available:   v.Get("available").Bool(),
	}
	return it, it.ID != ""
}

func firstString(v gjson.Result, paths ...string) string {
	for _, path := range paths {
		if r := v.Get(path); r.Exists() && r.Type != gjson.Null {
			if s := strings.TrimSpace(r.String()); s != "" {
				return s
			}
		}
	}
	return ""
}

type Provenance string

const (
	ProvenanceCache    Provenance = "cache"
	ProvenanceNetwork  Provenance = "network"
	ProvenanceFallback Provenance = "fallback"
)

// ResolvedCatalog is what views render.
// Provenance is informational only.
type ResolvedCatalog struct {
	Items      []Item
	Provenance Provenance
	// Entity tag of Items, if known.
	Validator string
	// True if this resolution wrote a new snapshot to the store.
	Stored bool
	// The failure that forced the fallback, if any.
	Err error
}

// Find returns the item whose identifier equals id.
func (c ResolvedCatalog) Find(id string) (Item, bool) {
	id = strings.TrimSpace(id)
	for _, it := range c.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Categories returns the distinct item categories in catalog order.
func (c ResolvedCatalog) Categories() []string {
	seen := make(map[string]struct{})
	categories := make([]string, 0)
	for _, it := range c.Items {
		if it.Category == "" {
			continue
		}
		k := strings.ToLower(it.Category)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		categories = append(categories, it.Category)
	}
	return categories
}

// InCategory returns the items of the given category, compared case-insensitively.
// An empty category matches every item.
func (c ResolvedCatalog) InCategory(category string) []Item {
	category = strings.TrimSpace(category)
	if category == "" {
		return c.Items
	}
	items := make([]Item, 0)
	for _, it := range c.Items {
		if strings.EqualFold(it.Category, category) {
			items = append(items, it)
		}
	}
	return items
}
