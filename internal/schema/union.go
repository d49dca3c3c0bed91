package schema

import (
	"github.com/zeebo/xxh3"
)

// UnionKey hashes the union subset of tags. Keys are taken in the descriptor's
// sorted order and only those present in tags contribute, so two tag sets
// share a key exactly when their union subsets are equal.
func UnionKey(u *UnionSpec, tags map[string]string) uint64 {
	h := xxh3.New()
	for _, k := range u.Keys {
		v, ok := tags[k]
		if !ok {
			continue
		}
		_, _ = h.WriteString(k)
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(v)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// UnionTags returns the union subset of tags.
func UnionTags(u *UnionSpec, tags map[string]string) map[string]string {
	out := make(map[string]string, len(u.Keys))
	for _, k := range u.Keys {
		if v, ok := tags[k]; ok {
			out[k] = v
		}
	}
	return out
}
