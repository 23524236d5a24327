package formula

import (
	"container/list"
	"sync"

	"github.com/expr-lang/expr/vm"
)

// programCache is a capacity-bounded LRU of compiled formula bodies. Programs
// are read-only once compiled, so a cached program can be run by any number
// of VMs.
type programCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List // front = most-recently used
}

type programEntry struct {
	body    string
	program *vm.Program
}

func newProgramCache(capacity int) *programCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &programCache{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

func (c *programCache) Get(body string) (*vm.Program, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[body]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*programEntry).program, true
}

func (c *programCache) Put(body string, program *vm.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[body]; ok {
		c.order.MoveToFront(el)
		el.Value.(*programEntry).program = program
		return
	}

	if c.order.Len() >= c.capacity {
		if back := c.order.Back(); back != nil {
			c.order.Remove(back)
			delete(c.items, back.Value.(*programEntry).body)
		}
	}

	c.items[body] = c.order.PushFront(&programEntry{body: body, program: program})
}

func (c *programCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
