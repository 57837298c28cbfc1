package auth

import "context"

// Actor is the authenticated identity behind a request. It is passed
// explicitly into every domain operation that needs permission checks.
type Actor struct {
	ID        string
	Superuser bool
}

// UserDirectory is the slice of the user service the login flow needs.
type UserDirectory interface {
	ResolveLogin(ctx context.Context, email, fullName string) (userID string, superuser bool, err error)
}
