package detections

import (
	"context"
	"sync"

	domain "github.com/pavanborigi/deepfake-detect/internal/domain/detections"
)

// Filter enum untuk history view
type Filter string

const (
	FilterAll  Filter = "all"
	FilterReal Filter = "real"
	FilterFake Filter = "fake"
)

type view struct {
	filter   Filter
	selected domain.DetectionID
}

// Projection derives the display-ready history view per owner: the active
// filter plus a selected-record pointer. It owns no record data; records
// always come from the cache. All transitions are pure state changes.
type Projection struct {
	cache *Cache

	mu    sync.Mutex
	views map[string]*view
}

func NewProjection(cache *Cache) *Projection {
	return &Projection{cache: cache, views: make(map[string]*view)}
}

func (p *Projection) viewFor(ownerID string) *view {
	if v, ok := p.views[ownerID]; ok {
		return v
	}
	v := &view{filter: FilterAll}
	p.views[ownerID] = v
	return v
}

// SetFilter switches the owner's active filter.
func (p *Projection) SetFilter(ownerID string, f Filter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.viewFor(ownerID).filter = f
}

func (p *Projection) Filter(ownerID string) Filter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewFor(ownerID).filter
}

// Select points the owner's selection at a record; empty id clears it.
func (p *Projection) Select(ownerID string, id domain.DetectionID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.viewFor(ownerID).selected = id
}

func (p *Projection) Selected(ownerID string) (domain.DetectionID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.viewFor(ownerID).selected
	return id, id != ""
}

// ClearSelectionIf drops the selection when it matches the deleted id;
// any other selection stays untouched.
func (p *Projection) ClearSelectionIf(ownerID string, id domain.DetectionID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := p.viewFor(ownerID)
	if v.selected == id {
		v.selected = ""
	}
}

// Visible returns the cache's current list filtered by classification,
// preserving the cache's newest-first order.
func (p *Projection) Visible(ctx context.Context, ownerID string) ([]*domain.DetectionRecord, error) {
	recs, err := p.cache.Read(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	f := p.Filter(ownerID)
	if f == FilterAll || f == "" {
		return recs, nil
	}
	out := make([]*domain.DetectionRecord, 0, len(recs))
	for _, r := range recs {
		if r.Classification == domain.Classification(f) {
			out = append(out, r)
		}
	}
	return out, nil
}
