package mockapi

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	errAlreadyPresent = errors.New("course already present")
	errNotPresent     = errors.New("course not present")
)

// entry is a stored cart or wishlist row.
type entry struct {
	ID       string
	CourseID string
	AddedAt  time.Time
}

// collectionStore keeps one ordered list of entries per user.
type collectionStore struct {
	lock    sync.RWMutex
	entries map[string][]entry
}

func newCollectionStore() *collectionStore {
	return &collectionStore{entries: make(map[string][]entry)}
}

func (cs *collectionStore) Add(userID, courseID string, at time.Time) (entry, error) {
	cs.lock.Lock()
	defer cs.lock.Unlock()

	for _, e := range cs.entries[userID] {
		if e.CourseID == courseID {
			return entry{}, errAlreadyPresent
		}
	}
	e := entry{ID: uuid.New().String(), CourseID: courseID, AddedAt: at}
	cs.entries[userID] = append(cs.entries[userID], e)
	return e, nil
}

func (cs *collectionStore) Remove(userID, courseID string) error {
	cs.lock.Lock()
	defer cs.lock.Unlock()

	list := cs.entries[userID]
	for i, e := range list {
		if e.CourseID == courseID {
			cs.entries[userID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return errNotPresent
}

func (cs *collectionStore) Clear(userID string) {
	cs.lock.Lock()
	defer cs.lock.Unlock()
	delete(cs.entries, userID)
}

func (cs *collectionStore) List(userID string) []entry {
	cs.lock.RLock()
	defer cs.lock.RUnlock()
	return append([]entry{}, cs.entries[userID]...)
}
