package services

import (
	"context"
	"errors"
	"testing"

	"github.com/SAP-F-2025/identity-service/internal/models"
)

func TestAccountService_ChangePassword(t *testing.T) {
	ctx := context.Background()

	newService := func(t *testing.T) (*fakeIdentity, AccountService, *models.Principal) {
		t.Helper()
		identity := newFakeIdentity()
		principal := &models.Principal{ID: "parent-1", Email: "lan@example.com", Name: "Lan"}
		identity.seed(principal, "original-pass")
		return identity, NewAccountService(identity, newTestLogger()), principal
	}

	t.Run("Success", func(t *testing.T) {
		identity, svc, principal := newService(t)
		identity.current = principal

		if err := svc.ChangePassword(ctx, "original-pass", "brand-new-pass"); err != nil {
			t.Fatalf("ChangePassword failed: %v", err)
		}
		if got := identity.password("lan@example.com"); got != "brand-new-pass" {
			t.Errorf("credential not updated, still %q", got)
		}
	})

	t.Run("WrongCurrentPassword", func(t *testing.T) {
		identity, svc, principal := newService(t)
		identity.current = principal

		err := svc.ChangePassword(ctx, "not-the-password", "brand-new-pass")
		if !errors.Is(err, ErrReauthenticationFailed) {
			t.Fatalf("expected ErrReauthenticationFailed, got %v", err)
		}

		// A failed reauthentication must leave the credential untouched.
		if got := identity.password("lan@example.com"); got != "original-pass" {
			t.Errorf("credential changed despite failed reauthentication: %q", got)
		}
	})

	t.Run("NoActivePrincipal", func(t *testing.T) {
		_, svc, _ := newService(t)

		err := svc.ChangePassword(ctx, "original-pass", "brand-new-pass")
		if !errors.Is(err, ErrNoActivePrincipal) {
			t.Fatalf("expected ErrNoActivePrincipal, got %v", err)
		}
	})

	t.Run("WeakNewPassword", func(t *testing.T) {
		identity, svc, principal := newService(t)
		identity.current = principal

		err := svc.ChangePassword(ctx, "original-pass", "abc")
		if !errors.Is(err, ErrWeakCredential) {
			t.Fatalf("expected ErrWeakCredential, got %v", err)
		}
		if got := identity.password("lan@example.com"); got != "original-pass" {
			t.Errorf("credential changed despite weak replacement: %q", got)
		}
	})
}

func TestAccountService_RequestPasswordReset(t *testing.T) {
	identity := newFakeIdentity()
	svc := NewAccountService(identity, newTestLogger())

	if err := svc.RequestPasswordReset(context.Background(), "forgot@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	if len(identity.resetRequests) != 1 || identity.resetRequests[0] != "forgot@example.com" {
		t.Errorf("reset request not forwarded: %v", identity.resetRequests)
	}
}
