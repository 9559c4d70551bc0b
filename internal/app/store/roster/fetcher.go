package roster

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cadetlink/cadetlink/internal/app/system/auth"
	"github.com/cadetlink/cadetlink/internal/domain/models"
)

// Fetcher adapts the roster store to auth.UserFetcher so sessions pick
// up role changes, approval revocations, and deletions on the next
// request.
type Fetcher struct {
	store *Store
}

func NewFetcher(db *mongo.Database) *Fetcher {
	return &Fetcher{store: NewStore(db)}
}

// FetchUser returns the current session user for uid, or nil when the
// profile is gone or the cadet's approval has been revoked.
func (f *Fetcher) FetchUser(ctx context.Context, uid string) *auth.SessionUser {
	p, err := f.store.FindAny(ctx, uid)
	if err != nil {
		return nil
	}
	if p.Role == models.RoleCadet && !p.Approved {
		return nil
	}
	return &auth.SessionUser{
		ID:    p.UID,
		Name:  p.Name,
		Email: p.Email,
		Role:  p.Role,
	}
}
