package auth

import "context"

// SetUserIDForTest stores a user id in the context the same way Middleware
// does, so handlers can be exercised without minting a token.
func SetUserIDForTest(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}
