package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

type memoryValue struct {
	data     []byte
	expireAt time.Time
}

type memoryList struct {
	items    [][]byte // newest first
	expireAt time.Time
}

func expired(deadline, now time.Time) bool {
	return !deadline.IsZero() && now.After(deadline)
}

// MemoryStore implements Store in process memory with the same TTL
// and transaction semantics as the Redis store. Used in tests and as
// a standalone backend for local runs without Redis.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]*memoryValue
	lists  map[string]*memoryList

	// now is swappable so tests can control expiry.
	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]*memoryValue),
		lists:  make(map[string]*memoryList),
		now:    time.Now,
	}
}

// SetClock overrides the store clock; test hook.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) GetJSON(_ context.Context, key string, dest interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok || expired(v.expireAt, s.now()) {
		return ErrNotFound
	}
	return json.Unmarshal(v.data, dest)
}

func (s *MemoryStore) SetJSON(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(key, data, ttl)
	return nil
}

func (s *MemoryStore) Push(ctx context.Context, key string, value interface{}, maxLen int64, ttl time.Duration) error {
	return s.Tx(ctx, PushOp{Key: key, Value: value, MaxLen: maxLen, TTL: ttl})
}

func (s *MemoryStore) Range(_ context.Context, key string, start, stop int64) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.lists[key]
	if !ok || expired(l.expireAt, s.now()) {
		return nil, nil
	}
	n := int64(len(l.items))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return nil, nil
	}
	out := make([][]byte, 0, stop-start+1)
	for _, item := range l.items[start : stop+1] {
		cp := make([]byte, len(item))
		copy(cp, item)
		out = append(out, cp)
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	now := s.now()
	for _, key := range keys {
		if v, ok := s.values[key]; ok {
			if !expired(v.expireAt, now) {
				deleted++
			}
			delete(s.values, key)
		}
		if l, ok := s.lists[key]; ok {
			if !expired(l.expireAt, now) {
				deleted++
			}
			delete(s.lists, key)
		}
	}
	return deleted, nil
}

func (s *MemoryStore) Exists(_ context.Context, keys ...string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	for _, key := range keys {
		if v, ok := s.values[key]; ok && !expired(v.expireAt, now) {
			return true, nil
		}
		if l, ok := s.lists[key]; ok && !expired(l.expireAt, now) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) Tx(_ context.Context, ops ...Op) error {
	// Marshal first: a failed marshal must not half-apply the tx.
	payloads := make([][]byte, len(ops))
	for i, op := range ops {
		switch o := op.(type) {
		case SetOp:
			b, err := json.Marshal(o.Value)
			if err != nil {
				return err
			}
			payloads[i] = b
		case PushOp:
			b, err := json.Marshal(o.Value)
			if err != nil {
				return err
			}
			payloads[i] = b
		case DelOp:
		default:
			return errors.New("store: unsupported op")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, op := range ops {
		switch o := op.(type) {
		case SetOp:
			s.setLocked(o.Key, payloads[i], o.TTL)
		case PushOp:
			s.pushLocked(o.Key, payloads[i], o.MaxLen, o.TTL)
		case DelOp:
			delete(s.values, o.Key)
			delete(s.lists, o.Key)
		}
	}
	return nil
}

func (s *MemoryStore) View(_ context.Context, valueKeys, listKeys []string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	snap := &Snapshot{
		Values: make(map[string][]byte, len(valueKeys)),
		Lists:  make(map[string][][]byte, len(listKeys)),
	}
	for _, key := range valueKeys {
		if v, ok := s.values[key]; ok && !expired(v.expireAt, now) {
			cp := make([]byte, len(v.data))
			copy(cp, v.data)
			snap.Values[key] = cp
		}
	}
	for _, key := range listKeys {
		l, ok := s.lists[key]
		if !ok || expired(l.expireAt, now) || len(l.items) == 0 {
			continue
		}
		items := make([][]byte, len(l.items))
		for i, item := range l.items {
			cp := make([]byte, len(item))
			copy(cp, item)
			items[i] = cp
		}
		snap.Lists[key] = items
	}
	return snap, nil
}

func (s *MemoryStore) setLocked(key string, data []byte, ttl time.Duration) {
	var expireAt time.Time
	if ttl > 0 {
		expireAt = s.now().Add(ttl)
	}
	s.values[key] = &memoryValue{data: data, expireAt: expireAt}
}

func (s *MemoryStore) pushLocked(key string, data []byte, maxLen int64, ttl time.Duration) {
	l, ok := s.lists[key]
	if !ok || expired(l.expireAt, s.now()) {
		l = &memoryList{}
		s.lists[key] = l
	}
	l.items = append([][]byte{data}, l.items...)
	if maxLen > 0 && int64(len(l.items)) > maxLen {
		l.items = l.items[:maxLen]
	}
	if ttl > 0 {
		l.expireAt = s.now().Add(ttl)
	}
}
