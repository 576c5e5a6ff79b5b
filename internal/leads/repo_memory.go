package leads

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu      sync.RWMutex
	byID    map[string]Lead
	byEmail map[string]string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:    make(map[string]Lead),
		byEmail: make(map[string]string),
	}
}

// CreateIfAbsent stores the lead unless the email already exists.
func (r *MemoryRepo) CreateIfAbsent(ctx context.Context, lead Lead) (Lead, bool, error) {
	if err := ctx.Err(); err != nil {
		return Lead{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byEmail[lead.Email]; ok {
		return r.byID[id], false, nil
	}
	r.byID[lead.ID] = lead
	r.byEmail[lead.Email] = lead.ID
	return lead, true, nil
}

// GetByID returns a lead by id.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Lead, error) {
	if err := ctx.Err(); err != nil {
		return Lead{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	lead, ok := r.byID[id]
	if !ok {
		return Lead{}, ErrNotFound
	}
	return lead, nil
}

// GetByEmail returns a lead by normalized email.
func (r *MemoryRepo) GetByEmail(ctx context.Context, email string) (Lead, error) {
	if err := ctx.Err(); err != nil {
		return Lead{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return Lead{}, ErrNotFound
	}
	return r.byID[id], nil
}

// List returns leads newest first, honoring limit/offset.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	all := make([]Lead, 0, len(r.byID))
	for _, lead := range r.byID {
		all = append(all, lead)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if offset >= len(all) {
		return []Lead{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

var _ Repo = (*MemoryRepo)(nil)
