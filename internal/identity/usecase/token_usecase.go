package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	identityDomain "github.com/allisson/envie/internal/identity/domain"
	identityService "github.com/allisson/envie/internal/identity/service"
)

type tokenUseCase struct {
	tokens          ProjectTokenRepository
	identityService identityService.IdentityService
}

// Create persists a client-built token record. The client generated the
// secret, derived the identity hash and wrapped the project key; nothing
// here can recover the token.
func (t *tokenUseCase) Create(
	ctx context.Context,
	input *CreateTokenInput,
) (*identityDomain.ProjectToken, error) {
	token := &identityDomain.ProjectToken{
		ID:                  uuid.Must(uuid.NewV7()),
		ProjectID:           input.ProjectID,
		Name:                input.Name,
		TokenPrefix:         input.TokenPrefix,
		IdentityIDHash:      input.IdentityIDHash,
		EncryptedProjectKey: input.EncryptedProjectKey,
		ExpiresAt:           input.ExpiresAt,
		CreatedBy:           input.CreatedBy,
		CreatedAt:           time.Now().UTC(),
	}

	if err := t.tokens.Create(ctx, token); err != nil {
		return nil, err
	}

	return token, nil
}

// Authenticate resolves a plaintext identity id to its token record. The id
// is hashed before lookup; the database never stores a value that could be
// replayed as a credential. Expired tokens are rejected but left in place
// for audit.
func (t *tokenUseCase) Authenticate(
	ctx context.Context,
	identityID string,
) (*identityDomain.ProjectToken, error) {
	hash, err := t.identityService.HashIdentityID(identityID)
	if err != nil {
		return nil, err
	}

	token, err := t.tokens.GetByIdentityHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	if token.IsExpired(time.Now().UTC()) {
		return nil, identityDomain.ErrTokenExpired
	}

	// Best effort; a failed touch must not fail authentication.
	_ = t.tokens.TouchLastUsed(ctx, token.ID)

	return token, nil
}

// ListByProject returns a page of token metadata for a project.
func (t *tokenUseCase) ListByProject(
	ctx context.Context,
	projectID uuid.UUID,
	offset, limit int,
) ([]*identityDomain.ProjectToken, error) {
	return t.tokens.ListByProject(ctx, projectID, offset, limit)
}

// Revoke deletes a single token.
func (t *tokenUseCase) Revoke(ctx context.Context, tokenID uuid.UUID) error {
	return t.tokens.Delete(ctx, tokenID)
}

// NewTokenUseCase creates a new TokenUseCase instance.
func NewTokenUseCase(
	tokens ProjectTokenRepository,
	identitySvc identityService.IdentityService,
) TokenUseCase {
	return &tokenUseCase{
		tokens:          tokens,
		identityService: identitySvc,
	}
}
