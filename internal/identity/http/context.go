package http

import (
	"context"

	"github.com/google/uuid"

	identityDomain "github.com/allisson/envie/internal/identity/domain"
)

// userIDKey is a context key type for storing the authenticated user ID.
type userIDKey struct{}

// projectTokenKey is a context key type for storing the authenticated project token.
type projectTokenKey struct{}

// WithUserID stores the authenticated user ID in the context.
// Called by the device authentication middleware after successful validation.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// GetUserID retrieves the authenticated user ID from the context.
// Returns (id, true) if present, or (uuid.Nil, false) if no user was set.
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	return userID, ok
}

// WithProjectToken stores the authenticated project token in the context.
// Called by the CLI authentication middleware after a successful identity
// hash lookup.
func WithProjectToken(ctx context.Context, token *identityDomain.ProjectToken) context.Context {
	return context.WithValue(ctx, projectTokenKey{}, token)
}

// GetProjectToken retrieves the authenticated project token from the context.
// Returns (token, true) if present, or (nil, false) if no token was set.
func GetProjectToken(ctx context.Context) (*identityDomain.ProjectToken, bool) {
	token, ok := ctx.Value(projectTokenKey{}).(*identityDomain.ProjectToken)
	return token, ok
}
