package interfaces

import "context"

// TokenSource supplies a bearer token for authenticated transport. A nil or
// empty token means the request goes out unauthenticated; token acquisition
// failures are the supplier's concern, not the protocol's.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a plain function to a TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) AccessToken(ctx context.Context) (string, error) {
	return f(ctx)
}
