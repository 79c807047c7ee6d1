package gcoll

import (
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
)

// Collections hands out one Backend per collection name, all bound to the
// same environment. It is safe for concurrent use.
type Collections struct {
	env      *Env
	backends *xsync.MapOf[string, *Backend]
}

// NewCollections returns an empty registry over env (Shared when nil).
func NewCollections(env *Env) *Collections {
	return &Collections{
		env:      env,
		backends: xsync.NewMapOf[string, *Backend](),
	}
}

// Get returns the backend of the named collection, creating it on first use.
func (c *Collections) Get(name string) *Backend {
	b, _ := c.backends.LoadOrCompute(name, func() *Backend {
		return New(name, c.env)
	})
	return b
}

// Lookup returns the backend of name if Get created one.
func (c *Collections) Lookup(name string) (*Backend, bool) {
	return c.backends.Load(name)
}

// Names returns the names of the created collections, sorted.
func (c *Collections) Names() []string {
	names := make([]string, 0, c.backends.Size())
	c.backends.Range(func(name string, _ *Backend) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// Len returns the number of created collections.
func (c *Collections) Len() int {
	return c.backends.Size()
}
