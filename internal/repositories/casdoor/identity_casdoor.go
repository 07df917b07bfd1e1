package casdoor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/google/uuid"

	"github.com/SAP-F-2025/identity-service/internal/events"
	"github.com/SAP-F-2025/identity-service/internal/models"
	"github.com/SAP-F-2025/identity-service/internal/repositories"
)

// CasdoorConfig holds the configuration for Casdoor connection
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

// IdentityCasdoor implements repositories.IdentityProvider on the Casdoor
// SDK. The principal-change stream is fanned out through the shared
// PrincipalBus; this adapter is its single announcer.
type IdentityCasdoor struct {
	client *casdoorsdk.Client
	bus    *events.PrincipalBus
	config CasdoorConfig
	logger *slog.Logger
}

func NewIdentityCasdoor(config CasdoorConfig, bus *events.PrincipalBus, logger *slog.Logger) repositories.IdentityProvider {
	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.OrganizationName,
		config.ApplicationName,
	)

	return &IdentityCasdoor{
		client: client,
		bus:    bus,
		config: config,
		logger: logger,
	}
}

// ===== CONVERSION =====

func (i *IdentityCasdoor) toPrincipal(user *casdoorsdk.User) *models.Principal {
	if user == nil {
		return nil
	}

	return &models.Principal{
		ID:    user.Id,
		Email: user.Email,
		Name:  user.DisplayName,
	}
}

// ===== AUTHENTICATION =====

func (i *IdentityCasdoor) Authenticate(ctx context.Context, email, password string) (*models.Principal, error) {
	user, err := i.client.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}
	if user == nil {
		// Unknown email reports the same failure as a wrong password.
		return nil, repositories.ErrInvalidCredentials
	}

	ok, err := i.client.CheckUserPassword(&casdoorsdk.User{
		Owner:    i.config.OrganizationName,
		Name:     user.Name,
		Password: password,
	})
	if err != nil || !ok {
		return nil, repositories.ErrInvalidCredentials
	}

	principal := i.toPrincipal(user)
	if err := i.bus.Announce(ctx, principal); err != nil {
		i.logger.Error("failed to announce principal change", "error", err)
	}

	return principal, nil
}

func (i *IdentityCasdoor) CreateIdentity(ctx context.Context, email, password, displayName string) (*models.Principal, error) {
	if len(password) < repositories.MinPasswordLength {
		return nil, repositories.ErrWeakCredential
	}

	existing, err := i.client.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing identity: %w", err)
	}
	if existing != nil {
		return nil, repositories.ErrEmailInUse
	}

	user := &casdoorsdk.User{
		Owner:             i.config.OrganizationName,
		Name:              identityName(email),
		Id:                uuid.NewString(),
		CreatedTime:       time.Now().UTC().Format(time.RFC3339),
		Email:             email,
		Password:          password,
		DisplayName:       displayName,
		SignupApplication: i.config.ApplicationName,
	}

	affected, err := i.client.AddUser(user)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}
	if !affected {
		return nil, repositories.ErrEmailInUse
	}

	// Creating a credential does not sign the principal in.
	return i.toPrincipal(user), nil
}

func (i *IdentityCasdoor) SignOut(ctx context.Context) error {
	if err := i.bus.Announce(ctx, nil); err != nil {
		return fmt.Errorf("failed to announce sign-out: %w", err)
	}
	return nil
}

func (i *IdentityCasdoor) DeleteIdentity(ctx context.Context, principal *models.Principal) error {
	user, err := i.client.GetUserByUserId(principal.ID)
	if err != nil {
		return fmt.Errorf("failed to look up identity for deletion: %w", err)
	}
	if user == nil {
		return nil // already gone
	}

	if _, err := i.client.DeleteUser(user); err != nil {
		return fmt.Errorf("failed to delete identity: %w", err)
	}

	return nil
}

// ===== CREDENTIAL OPERATIONS =====

func (i *IdentityCasdoor) Reauthenticate(ctx context.Context, principal *models.Principal, currentPassword string) error {
	user, err := i.client.GetUserByUserId(principal.ID)
	if err != nil {
		return fmt.Errorf("failed to look up identity: %w", err)
	}
	if user == nil {
		return repositories.ErrReauthenticationFailed
	}

	ok, err := i.client.CheckUserPassword(&casdoorsdk.User{
		Owner:    i.config.OrganizationName,
		Name:     user.Name,
		Password: currentPassword,
	})
	if err != nil || !ok {
		return repositories.ErrReauthenticationFailed
	}

	return nil
}

func (i *IdentityCasdoor) UpdateCredential(ctx context.Context, principal *models.Principal, newPassword string) error {
	if len(newPassword) < repositories.MinPasswordLength {
		return repositories.ErrWeakCredential
	}

	user, err := i.client.GetUserByUserId(principal.ID)
	if err != nil {
		return fmt.Errorf("failed to look up identity: %w", err)
	}
	if user == nil {
		return fmt.Errorf("identity not found for principal %s", principal.ID)
	}

	user.Password = newPassword
	if _, err := i.client.UpdateUserForColumns(user, []string{"password"}); err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}

	return nil
}

func (i *IdentityCasdoor) SendPasswordReset(ctx context.Context, email string) error {
	title := "Password reset"
	content := fmt.Sprintf("A password reset was requested for your account. Visit %s/forget/%s to continue.",
		strings.TrimRight(i.config.Endpoint, "/"), i.config.ApplicationName)

	if err := i.client.SendEmail(title, content, "identity-service", email); err != nil {
		return fmt.Errorf("failed to send password reset mail: %w", err)
	}

	return nil
}

// ===== PRINCIPAL STREAM =====

func (i *IdentityCasdoor) PrincipalChanges(ctx context.Context) (<-chan repositories.PrincipalEvent, func(), error) {
	return i.bus.Subscribe(ctx)
}

func (i *IdentityCasdoor) Current() *models.Principal {
	return i.bus.Current()
}

// identityName derives a unique Casdoor user name from an email address.
// Casdoor names are unique per organization while emails are the login key.
func identityName(email string) string {
	local := email
	if at := strings.Index(email, "@"); at > 0 {
		local = email[:at]
	}
	return fmt.Sprintf("%s-%s", strings.ToLower(local), uuid.NewString()[:8])
}
