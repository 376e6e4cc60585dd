package service

import (
	"sync"
	"time"

	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"github.com/rotisserie/eris"
)

const defaultDraftTTL = time.Hour

// errDraftNotFound is returned for unknown and expired drafts.
var errDraftNotFound = eris.New("draft not found")

// Draft is an extracted and reconciled receipt awaiting review.
type Draft struct {
	ID        string           `json:"draft_id"`
	UserID    string           `json:"-"`
	Receipt   *receipt.Receipt `json:"receipt"`
	DateRule  string           `json:"date_rule"`
	OCRMethod string           `json:"ocr_method"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// DraftStore keeps review drafts in memory until they are approved or
// expire.
type DraftStore struct {
	mu     sync.RWMutex
	drafts map[string]*Draft
	ttl    time.Duration
	now    func() time.Time
	done   chan struct{}
	once   sync.Once
}

// NewDraftStore creates a draft store with background cleanup.
func NewDraftStore(ttl time.Duration) *DraftStore {
	ds := newDraftStore(ttl, time.Now)
	go ds.cleanup(5 * time.Minute)
	return ds
}

func newDraftStore(ttl time.Duration, now func() time.Time) *DraftStore {
	if ttl <= 0 {
		ttl = defaultDraftTTL
	}
	return &DraftStore{
		drafts: make(map[string]*Draft),
		ttl:    ttl,
		now:    now,
		done:   make(chan struct{}),
	}
}

// Create stores a new draft and stamps its expiry.
func (ds *DraftStore) Create(d *Draft) error {
	if d.ID == "" {
		return eris.New("draft ID is required")
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()
	d.CreatedAt = ds.now()
	d.ExpiresAt = d.CreatedAt.Add(ds.ttl)
	ds.drafts[d.ID] = d
	return nil
}

// Get retrieves a live draft by ID.
func (ds *DraftStore) Get(id string) (*Draft, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	d, ok := ds.drafts[id]
	if !ok || !ds.now().Before(d.ExpiresAt) {
		return nil, eris.Wrapf(errDraftNotFound, "draft %s", id)
	}
	return d, nil
}

// Delete removes a draft. Unknown ids are ignored.
func (ds *DraftStore) Delete(id string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	delete(ds.drafts, id)
}

// Len returns the number of stored drafts, expired ones included.
func (ds *DraftStore) Len() int {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return len(ds.drafts)
}

// Stop signals the background cleanup goroutine to exit.
func (ds *DraftStore) Stop() {
	ds.once.Do(func() { close(ds.done) })
}

func (ds *DraftStore) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ds.done:
			return
		case <-ticker.C:
			ds.evictExpired()
		}
	}
}

func (ds *DraftStore) evictExpired() int {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	now := ds.now()
	evicted := 0
	for id, d := range ds.drafts {
		if !now.Before(d.ExpiresAt) {
			delete(ds.drafts, id)
			evicted++
		}
	}
	return evicted
}
