package cache

const (
	DefaultNamespace = "artcache"

	keySeparator = ":"
	entryKind    = "entry"
	etagKind     = "etag"
)

// Keyer builds the storage record keys for a Store.
// All records are prefixed with the namespace so they cannot collide with
// unrelated values kept in the same storage.
type Keyer struct {
	// Namespace for all records written by the store.
	Namespace string
	// Record key prefix for this namespace.
	Prefix string
}

func NewKeyer(namespace string) Keyer {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return Keyer{
		Namespace: namespace,
		Prefix:    namespace + keySeparator,
	}
}

// EntryKey is the record holding the payload, validator and timestamp for a resource key.
func (k Keyer) EntryKey(key string) string {
	return k.Prefix + entryKind + keySeparator + key
}

// ValidatorKey is the record holding just the validator for a resource key.
func (k Keyer) ValidatorKey(key string) string {
	return k.Prefix + etagKind + keySeparator + key
}

// LastValidatorKey is the global record holding the most recently stored validator.
func (k Keyer) LastValidatorKey() string {
	return k.Prefix + etagKind
}
