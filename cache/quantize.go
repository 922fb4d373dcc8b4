package cache

import (
	"hash/fnv"
	"time"
)

// quantize maps t to a bucket of width d. The bucket boundary is shifted by
// an offset derived from name so that different keys do not all expire at
// the same instant.
func quantize(t time.Time, d time.Duration, name string) int64 {
	if d <= 0 {
		return 0
	}
	h := fnv.New64a()
	h.Write([]byte(name))
	offset := int64(h.Sum64() % uint64(d))
	return (t.UnixNano() + offset) / int64(d)
}
