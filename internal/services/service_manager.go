package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/identity-service/internal/cache"
	"github.com/SAP-F-2025/identity-service/internal/events"
	"github.com/SAP-F-2025/identity-service/internal/repositories"
	"github.com/SAP-F-2025/identity-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager.
type ServiceManagerConfig struct {
	Session SessionConfig

	// DefaultTimeout bounds the internal initialize/shutdown steps.
	DefaultTimeout time.Duration
}

// serviceManager implements ServiceManager.
type serviceManager struct {
	// Dependencies
	repo      repositories.Repository
	identity  repositories.IdentityProvider
	cache     *cache.ProfileCache
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	config    ServiceManagerConfig

	// Service instances
	sessionManager      SessionManager
	bootstrapService    BootstrapService
	registrationService RegistrationService
	accountService      AccountService
	profileService      ProfileService
	rosterService       RosterService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a service manager with all dependencies.
func NewServiceManager(
	repo repositories.Repository,
	identity repositories.IdentityProvider,
	profileCache *cache.ProfileCache,
	publisher events.EventPublisher,
	logger *slog.Logger,
	v *validator.Validator,
	config ServiceManagerConfig,
) ServiceManager {
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = 30 * time.Second
	}

	return &serviceManager{
		repo:      repo,
		identity:  identity,
		cache:     profileCache,
		publisher: publisher,
		logger:    logger,
		validator: v,
		config:    config,
	}
}

// Initialize builds all services and starts the session manager. The session
// manager subscribes to the principal-change stream before anything can sign
// in, so no early event is missed.
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	sm.bootstrapService = NewBootstrapService(sm.repo, sm.logger)
	sm.registrationService = NewRegistrationService(sm.repo, sm.identity, sm.publisher, sm.logger, sm.validator)
	sm.accountService = NewAccountService(sm.identity, sm.logger)
	sm.profileService = NewProfileService(sm.repo, sm.cache, sm.publisher, sm.logger, sm.validator)
	sm.rosterService = NewRosterService(sm.repo, sm.logger, sm.validator)
	sm.sessionManager = NewSessionManager(sm.repo, sm.identity, sm.cache, sm.bootstrapService, sm.publisher, sm.logger, sm.config.Session)

	if err := sm.sessionManager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session manager: %w", err)
	}

	refCtx, cancel := context.WithTimeout(ctx, sm.config.DefaultTimeout)
	defer cancel()
	if err := sm.bootstrapService.EnsureReferenceData(refCtx); err != nil {
		// Reference data can also be provisioned later by an admin session.
		sm.logger.Warn("reference data provisioning deferred", "error", err)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

// ===== SERVICE GETTERS =====

func (sm *serviceManager) Session() SessionManager {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.sessionManager
}

func (sm *serviceManager) Bootstrap() BootstrapService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.bootstrapService
}

func (sm *serviceManager) Registration() RegistrationService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.registrationService
}

func (sm *serviceManager) Account() AccountService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.accountService
}

func (sm *serviceManager) Profile() ProfileService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.profileService
}

func (sm *serviceManager) Roster() RosterService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.rosterService
}

// ===== HEALTH AND LIFECYCLE =====

func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	// A missing cache is a degraded mode, not a failure.
	if err := sm.cache.HealthCheck(ctx); err != nil && !errors.Is(err, cache.ErrCacheNotAvailable) {
		return fmt.Errorf("cache health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.sessionManager != nil {
		if err := sm.sessionManager.Close(); err != nil {
			sm.logger.Error("failed to close session manager", "error", err)
		}
	}

	if sm.publisher != nil {
		if err := sm.publisher.Close(); err != nil {
			sm.logger.Error("failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down")

	return nil
}
