package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/identity-service/internal/repositories"
)

type accountService struct {
	identity repositories.IdentityProvider
	logger   *slog.Logger
}

func NewAccountService(identity repositories.IdentityProvider, logger *slog.Logger) AccountService {
	return &accountService{
		identity: identity,
		logger:   logger,
	}
}

// ChangePassword applies a credential change for the signed-in principal.
// The provider requires fresh-credential proof for sensitive mutations, so
// reauthentication always happens first; skipping it is a programming error,
// not an option.
func (s *accountService) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	principal := s.identity.Current()
	if principal == nil {
		return ErrNoActivePrincipal
	}

	if len(newPassword) < repositories.MinPasswordLength {
		return ErrWeakCredential
	}

	if err := s.identity.Reauthenticate(ctx, principal, currentPassword); err != nil {
		return fmt.Errorf("password change rejected: %w", err)
	}

	if err := s.identity.UpdateCredential(ctx, principal, newPassword); err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}

	s.logger.Info("credential updated", "principal_id", principal.ID)

	return nil
}

func (s *accountService) RequestPasswordReset(ctx context.Context, email string) error {
	if err := s.identity.SendPasswordReset(ctx, email); err != nil {
		return fmt.Errorf("failed to request password reset: %w", err)
	}

	return nil
}
