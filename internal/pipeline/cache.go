package pipeline

import (
	"container/list"
	"os"
	"sync"

	"github.com/couchcryptid/eews-analyzer/internal/domain"
)

// dataset is an analyzed data file. Records are shared between callers and
// must be treated as read-only.
type dataset struct {
	records   []domain.AnalyzedRecord
	malformed int
}

// fileVersion identifies one version of a data file. A rewritten file changes
// size or modification time and misses the cache.
type fileVersion struct {
	path    string
	size    int64
	modTime int64
}

func versionOf(path string, info os.FileInfo) fileVersion {
	return fileVersion{path: path, size: info.Size(), modTime: info.ModTime().UnixNano()}
}

type cached struct {
	version fileVersion
	ds      dataset
}

// datasetCache keeps the most recently used datasets, bounded by capacity.
// Safe for concurrent use.
type datasetCache struct {
	capacity int

	mu    sync.Mutex
	order *list.List // front is most recent; values are *cached
	index map[fileVersion]*list.Element
}

func newDatasetCache(capacity int) *datasetCache {
	return &datasetCache{
		capacity: max(capacity, 1),
		order:    list.New(),
		index:    make(map[fileVersion]*list.Element),
	}
}

func (c *datasetCache) get(v fileVersion) (dataset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[v]
	if !ok {
		return dataset{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cached).ds, true
}

func (c *datasetCache) put(v fileVersion, ds dataset) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[v]; ok {
		el.Value.(*cached).ds = ds
		c.order.MoveToFront(el)
		return
	}

	c.index[v] = c.order.PushFront(&cached{version: v, ds: ds})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.index, oldest.Value.(*cached).version)
	}
}

func (c *datasetCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
