package user

import "context"

// Store is the keyed user store. Implementations must make Update an atomic
// read-modify-write per user id.
type Store interface {
	Save(ctx context.Context, u User) error
	FindByID(ctx context.Context, id string) (User, bool, error)
	FindByUsername(ctx context.Context, username string) (User, bool, error)
	FindAll(ctx context.Context) ([]User, error)
	Update(ctx context.Context, id string, fn func(User) User) (User, bool, error)
}
