package service

import (
	"sort"
	"sync"
)

// keyedLocks 按字符串键的互斥锁集合。键按字典序统一排序后再逐个获取，
// 任意两条日志即使键集合有交集也不会相互形成环，从而不会死锁。
type keyedLocks struct {
	mu   sync.Mutex
	held map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{held: make(map[string]*keyLock)}
}

// Lock 按排好序的键依次上锁，返回的函数按反序释放
func (k *keyedLocks) Lock(keys ...string) func() {
	sorted := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		sorted = append(sorted, key)
	}
	sort.Strings(sorted)

	acquired := make([]*keyLock, 0, len(sorted))
	for _, key := range sorted {
		k.mu.Lock()
		l, ok := k.held[key]
		if !ok {
			l = &keyLock{}
			k.held[key] = l
		}
		l.refs++
		k.mu.Unlock()
		l.mu.Lock()
		acquired = append(acquired, l)
	}

	names := sorted
	return func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			acquired[i].mu.Unlock()
			k.mu.Lock()
			acquired[i].refs--
			if acquired[i].refs == 0 {
				delete(k.held, names[i])
			}
			k.mu.Unlock()
		}
	}
}
