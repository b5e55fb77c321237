package storage

// MemoryStore implements Store in memory. It backs tests and serves as the
// degraded mode when no durable backend can be opened: history then lasts
// for the session only.
type MemoryStore struct {
	entries map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string][]byte{}}
}

func (s *MemoryStore) Get(key string) ([]byte, bool, error) {
	v, ok := s.entries[key]
	return v, ok, nil
}

func (s *MemoryStore) Put(key string, value []byte) error {
	s.entries[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
