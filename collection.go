package gcoll

// Collection is the operation surface the rule engine uses. Backends other
// than the persistent one (an in-process map, a remote store) implement the
// same methods so they can be swapped.
type Collection interface {
	// Name is the collection name copied into every VariableValue.
	Name() string

	// Store adds value under key, keeping the values already there.
	Store(key, value string) bool

	// StoreOrUpdateFirst leaves value as the only value of key.
	StoreOrUpdateFirst(key, value string) bool

	// UpdateFirst is StoreOrUpdateFirst for a key that must already exist.
	UpdateFirst(key, value string) bool

	// Delete removes key. Deleting an absent key succeeds.
	Delete(key string) bool

	// ResolveFirst returns the first value of key in duplicate order.
	ResolveFirst(key string) (string, bool)

	// ResolveDuplicates returns every value of key in duplicate order.
	ResolveDuplicates(key string) []VariableValue

	// ResolveByPrefix returns the records whose key starts with prefix.
	ResolveByPrefix(prefix string, exclusions KeyExclusions) []VariableValue

	// ResolveByPattern returns the records whose key matches pattern.
	ResolveByPattern(pattern string, exclusions KeyExclusions) []VariableValue
}

// VariableValue is one resolved record. It is a copy owned by the caller.
type VariableValue struct {
	Collection string
	Key        string
	Value      string
}

// KeyExclusions reports keys that must be left out of prefix and pattern
// results.
type KeyExclusions interface {
	ToOmit(key string) bool
}

// ExclusionFunc adapts a function to KeyExclusions.
type ExclusionFunc func(key string) bool

// ToOmit calls f(key).
func (f ExclusionFunc) ToOmit(key string) bool {
	return f(key)
}

type keySet map[string]struct{}

func (s keySet) ToOmit(key string) bool {
	_, ok := s[key]
	return ok
}

// ExcludeKeys returns exclusions omitting exactly the given keys.
func ExcludeKeys(keys ...string) KeyExclusions {
	s := make(keySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func omitted(exclusions KeyExclusions, key string) bool {
	return exclusions != nil && exclusions.ToOmit(key)
}
