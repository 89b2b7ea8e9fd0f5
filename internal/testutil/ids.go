package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs returns an id generator yielding prefix-0001, prefix-0002, ...
//
// Stores built with it produce byte-identical logs across runs, which golden
// snapshots rely on. Safe for concurrent use.
func SequentialIDs(prefix string) func() string {
	if prefix == "" {
		prefix = "evt"
	}
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%04d", prefix, n)
	}
}
