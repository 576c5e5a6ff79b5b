package leads

import "context"

// Repo defines persistence operations for leads.
type Repo interface {
	// CreateIfAbsent inserts the lead unless its email is already known, in which
	// case the stored lead is returned and created is false.
	CreateIfAbsent(ctx context.Context, lead Lead) (stored Lead, created bool, err error)
	GetByID(ctx context.Context, id string) (Lead, error)
	GetByEmail(ctx context.Context, email string) (Lead, error)
	List(ctx context.Context, limit, offset int) ([]Lead, error)
}
