package reststore

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/Ratio1/reststore_go/pkg/record"
)

// cache maps primary-key values to records in insertion order. It is not
// safe for concurrent use; Store guards it.
type cache struct {
	entries *orderedmap.OrderedMap[string, record.Record]
}

func newCache() *cache {
	return &cache{entries: orderedmap.New[string, record.Record]()}
}

func (c *cache) get(key string) (record.Record, bool) {
	return c.entries.Get(key)
}

// put inserts or replaces key. Replacing keeps the original position.
func (c *cache) put(key string, r record.Record) {
	c.entries.Set(key, r)
}

func (c *cache) remove(key string) bool {
	_, ok := c.entries.Delete(key)
	return ok
}

func (c *cache) len() int {
	return c.entries.Len()
}

func (c *cache) snapshot() []record.Record {
	out := make([]record.Record, 0, c.entries.Len())
	for pair := c.entries.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}
