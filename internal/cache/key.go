package cache

import (
	"fmt"
	"strings"
)

// Key builds a deterministic cache key from a resource kind and every
// parameter that affects the result set (pagination, filters, sort).
// Identical effective parameters always produce the same key; any
// differing parameter produces a different one. Example: Key("users", 1, 10)
// is "users:1:10".
func Key(kind string, parts ...any) string {
	var b strings.Builder
	b.WriteString(kind)
	for _, p := range parts {
		b.WriteByte(':')
		fmt.Fprintf(&b, "%v", p)
	}
	return b.String()
}

// Prefix returns the invalidation prefix covering every key of a resource
// kind.
func Prefix(kind string) string {
	return kind + ":"
}

// kindOf extracts the resource-kind prefix of a key for metric labels.
func kindOf(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
