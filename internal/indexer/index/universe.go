package index

import "sync"

// Universe interns document identifiers into dense uint32 ordinals so that
// document sets can be stored as roaring bitmaps. Both inverted indices of a
// corpus share one Universe.
type Universe struct {
	mu    sync.RWMutex
	ids   map[string]uint32
	names []string
}

func NewUniverse() *Universe {
	return &Universe{ids: make(map[string]uint32)}
}

// Intern returns the ordinal for docID, assigning the next one if unseen.
func (u *Universe) Intern(docID string) uint32 {
	u.mu.RLock()
	ord, ok := u.ids[docID]
	u.mu.RUnlock()
	if ok {
		return ord
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if ord, ok := u.ids[docID]; ok {
		return ord
	}
	ord = uint32(len(u.names))
	u.ids[docID] = ord
	u.names = append(u.names, docID)
	return ord
}

// Lookup returns the ordinal of a known document.
func (u *Universe) Lookup(docID string) (uint32, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	ord, ok := u.ids[docID]
	return ord, ok
}

// Name returns the document identifier for an ordinal.
func (u *Universe) Name(ord uint32) string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.names[ord]
}

func (u *Universe) Len() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.names)
}
