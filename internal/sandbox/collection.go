package sandbox

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// collection is an ordered in-memory resource collection. Entities are loose
// JSON objects so partial updates merge fields without a per-resource schema.
type collection struct {
	mu    sync.Mutex
	order []string
	items map[string]map[string]any
	now   func() time.Time
}

func newCollection(now func() time.Time) *collection {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &collection{
		items: make(map[string]map[string]any),
		now:   now,
	}
}

func (c *collection) list(match func(map[string]any) bool) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]map[string]any, 0, len(c.order))
	for _, id := range c.order {
		item := c.items[id]
		if match == nil || match(item) {
			out = append(out, cloneObject(item))
		}
	}
	return out
}

func (c *collection) get(id string) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[id]
	if !ok {
		return nil, false
	}
	return cloneObject(item), true
}

// insert stores obj, assigning an id when absent, and stamps created_at and
// updated_at.
func (c *collection) insert(obj map[string]any) map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := cloneObject(obj)
	id, _ := item["id"].(string)
	if id == "" {
		id = uuid.NewString()
		item["id"] = id
	}
	stamp := c.now().Format(time.RFC3339)
	if _, ok := item["created_at"]; !ok {
		item["created_at"] = stamp
	}
	item["updated_at"] = stamp

	if _, exists := c.items[id]; !exists {
		c.order = append(c.order, id)
	}
	c.items[id] = item
	return cloneObject(item)
}

// patch merges fields into the stored entity. The id field is immutable.
func (c *collection) patch(id string, fields map[string]any) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[id]
	if !ok {
		return nil, false
	}
	for k, v := range fields {
		if k == "id" || k == "created_at" {
			continue
		}
		item[k] = v
	}
	item["updated_at"] = c.now().Format(time.RFC3339)
	return cloneObject(item), true
}

// replace swaps the whole entity body, preserving id and created_at.
func (c *collection) replace(id string, obj map[string]any) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, ok := c.items[id]
	if !ok {
		return nil, false
	}
	item := cloneObject(obj)
	item["id"] = id
	item["created_at"] = prev["created_at"]
	item["updated_at"] = c.now().Format(time.RFC3339)
	c.items[id] = item
	return cloneObject(item), true
}

func (c *collection) delete(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

func cloneObject(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	return out
}

// numField reads a numeric field regardless of whether it was decoded from
// JSON (float64) or YAML (int).
func numField(obj map[string]any, key string) (float64, bool) {
	switch v := obj[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func strField(obj map[string]any, key string) string {
	v, _ := obj[key].(string)
	return v
}
