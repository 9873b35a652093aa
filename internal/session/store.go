package session

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Store is an LRU of sessions with a sliding TTL: every Get or Put pushes the
// expiry forward. When full, the least recently used session is evicted.
type Store struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
	now     func() time.Time
}

type entry struct {
	id        string
	sess      *Session
	expiresAt time.Time
}

func NewStore(maxSize int, ttl time.Duration) *Store {
	return &Store{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
}

// Get returns the live session for id.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[id]
	if !ok {
		return nil, false
	}
	e := elem.Value.(*entry)
	now := s.now()
	if now.After(e.expiresAt) {
		s.remove(elem)
		return nil, false
	}
	e.expiresAt = now.Add(s.ttl)
	s.lru.MoveToFront(elem)
	return e.sess, true
}

// Put stores sess under sess.ID, replacing any previous value.
func (s *Store) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &entry{id: sess.ID, sess: sess, expiresAt: s.now().Add(s.ttl)}
	if elem, ok := s.items[sess.ID]; ok {
		elem.Value = e
		s.lru.MoveToFront(elem)
		return
	}
	s.items[sess.ID] = s.lru.PushFront(e)

	if s.maxSize > 0 && s.lru.Len() > s.maxSize {
		if oldest := s.lru.Back(); oldest != nil {
			s.remove(oldest)
		}
	}
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.items[id]; ok {
		s.remove(elem)
	}
}

func (s *Store) remove(elem *list.Element) {
	delete(s.items, elem.Value.(*entry).id)
	s.lru.Remove(elem)
}

// CleanExpired drops expired sessions and returns how many were removed.
func (s *Store) CleanExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var expired []*list.Element
	for elem := s.lru.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*entry).expiresAt) {
			expired = append(expired, elem)
		}
	}
	for _, elem := range expired {
		s.remove(elem)
	}
	return len(expired)
}

func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Janitor calls CleanExpired every interval until ctx is done. onClean, if
// set, receives the number of sessions removed on each non-empty sweep.
func (s *Store) Janitor(ctx context.Context, interval time.Duration, onClean func(n int)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.CleanExpired(); n > 0 && onClean != nil {
				onClean(n)
			}
		case <-ctx.Done():
			return nil
		}
	}
}
