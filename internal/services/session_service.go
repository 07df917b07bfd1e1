package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/SAP-F-2025/identity-service/internal/cache"
	"github.com/SAP-F-2025/identity-service/internal/events"
	"github.com/SAP-F-2025/identity-service/internal/models"
	"github.com/SAP-F-2025/identity-service/internal/repositories"
)

// SessionConfig holds session manager settings.
type SessionConfig struct {
	// AdminEmail is the reserved administrator identity.
	AdminEmail string

	// StartupTimeout bounds how long the manager waits in StateInitializing
	// for the first principal-change event.
	StartupTimeout time.Duration
}

type sessionService struct {
	repo      repositories.Repository
	identity  repositories.IdentityProvider
	cache     *cache.ProfileCache
	bootstrap BootstrapService
	publisher events.EventPublisher
	logger    *slog.Logger
	config    SessionConfig

	mu       sync.Mutex
	snapshot SessionSnapshot

	// settled guards the startup race: exactly one of {first stream event,
	// startup timeout} moves the state out of StateInitializing.
	settled      bool
	startupTimer *time.Timer

	// generation tags resolutions so a result for a principal that is no
	// longer current is discarded instead of clobbering newer state.
	generation uint64

	subscribers map[uint64]chan SessionSnapshot
	nextSubID   uint64

	closed       bool
	streamCancel func()
	done         chan struct{}
}

func NewSessionManager(
	repo repositories.Repository,
	identity repositories.IdentityProvider,
	profileCache *cache.ProfileCache,
	bootstrap BootstrapService,
	publisher events.EventPublisher,
	logger *slog.Logger,
	config SessionConfig,
) SessionManager {
	if config.StartupTimeout <= 0 {
		config.StartupTimeout = 5 * time.Second
	}

	return &sessionService{
		repo:        repo,
		identity:    identity,
		cache:       profileCache,
		bootstrap:   bootstrap,
		publisher:   publisher,
		logger:      logger,
		config:      config,
		snapshot:    SessionSnapshot{State: StateInitializing},
		subscribers: make(map[uint64]chan SessionSnapshot),
		done:        make(chan struct{}),
	}
}

// ===== LIFECYCLE =====

func (s *sessionService) Start(ctx context.Context) error {
	stream, cancel, err := s.identity.PrincipalChanges(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to principal changes: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return fmt.Errorf("session manager is closed")
	}
	s.streamCancel = cancel
	s.startupTimer = time.AfterFunc(s.config.StartupTimeout, s.onStartupTimeout)
	s.mu.Unlock()

	go s.consume(ctx, stream)

	return nil
}

func (s *sessionService) consume(ctx context.Context, stream <-chan repositories.PrincipalEvent) {
	defer close(s.done)

	for event := range stream {
		s.handlePrincipalEvent(ctx, event.Principal)
	}
}

// onStartupTimeout fires when no principal-change event arrived in time. It
// settles the session as unauthenticated; a stream event that already settled
// the state makes this a no-op.
func (s *sessionService) onStartupTimeout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settled || s.closed {
		return
	}
	s.settled = true
	s.logger.Warn("session startup timed out waiting for principal stream")

	s.publishLocked(SessionSnapshot{State: StateUnauthenticated})
}

func (s *sessionService) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.startupTimer != nil {
		s.startupTimer.Stop()
	}
	cancel := s.streamCancel
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-s.done
	}

	return nil
}

// ===== OBSERVATION =====

func (s *sessionService) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshot
}

func (s *sessionService) Subscribe() (<-chan SessionSnapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++

	ch := make(chan SessionSnapshot, 8)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.subscribers[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if sub, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(sub)
		}
	}

	return ch, cancel
}

// publishLocked replaces the snapshot and fans it out. Callers hold s.mu.
// Slow observers drop intermediate snapshots rather than block the manager.
func (s *sessionService) publishLocked(snap SessionSnapshot) {
	if s.closed {
		return
	}

	// The published profile is a copy; the store and cache keep their own
	// instance, so nothing an observer reads can be mutated under it.
	snap.Profile = snap.Profile.Clone()

	s.snapshot = snap
	for _, ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
		}
	}
}

// ===== PASSIVE RESOLUTION =====

func (s *sessionService) handlePrincipalEvent(ctx context.Context, principal *models.Principal) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.settleLocked()
	s.generation++
	gen := s.generation
	previous := s.snapshot.Principal
	notice := s.snapshot.Notice
	s.mu.Unlock()

	if principal == nil {
		if previous != nil {
			if err := s.cache.Clear(ctx, previous.ID); err != nil {
				s.logger.Error("failed to clear profile cache on sign-out", "error", err)
			}
		}
		// Notice survives the sign-out so the next render of the login
		// surface can still show the rejection reason.
		s.commit(gen, SessionSnapshot{State: StateUnauthenticated, Notice: notice})
		return
	}

	s.logger.Info("resolving principal", "principal_id", principal.ID)

	// Reserved admin identity short-circuits to bootstrap provisioning.
	if strings.EqualFold(principal.Email, s.config.AdminEmail) {
		s.resolveAdmin(ctx, gen, principal)
		return
	}

	// Cache short-circuit: a present snapshot is trusted without remote
	// confirmation to minimize reload latency.
	if cached, err := s.cache.Load(ctx, principal.ID); err == nil && cached != nil {
		s.commit(gen, SessionSnapshot{State: StateAuthenticated, Principal: principal, Profile: cached})
		return
	}

	s.commit(gen, SessionSnapshot{State: StateResolvingProfile, Principal: principal})

	profile, err := s.repo.Profile().GetByID(ctx, principal.ID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		s.commit(gen, SessionSnapshot{State: StateUnauthenticated, Cause: ErrProfileNotFound})
		return
	case err != nil:
		s.logger.Error("profile resolution failed", "principal_id", principal.ID, "error", err)
		s.commit(gen, SessionSnapshot{State: StateUnauthenticated, Cause: storeFailure(err)})
		return
	}

	decision := DecideApproval(profile.Role, profile.IsApproved())
	if !decision.Allow {
		s.rejectApproval(ctx, gen, principal, decision.Reason)
		return
	}

	if err := s.cache.Save(ctx, profile); err != nil {
		s.logger.Error("failed to cache profile snapshot", "error", err)
	}
	s.commit(gen, SessionSnapshot{State: StateAuthenticated, Principal: principal, Profile: profile})
}

func (s *sessionService) resolveAdmin(ctx context.Context, gen uint64, principal *models.Principal) {
	profile, err := s.bootstrap.EnsureAdminProfile(ctx, principal)
	if err != nil {
		s.logger.Error("admin bootstrap failed", "error", err)
		s.commit(gen, SessionSnapshot{State: StateUnauthenticated, Cause: storeFailure(err)})
		return
	}

	// Reference data seeding is best-effort; a failure never blocks login.
	if err := s.bootstrap.EnsureReferenceData(ctx); err != nil {
		s.logger.Error("reference data seeding failed", "error", err)
	}

	if err := s.cache.Save(ctx, profile); err != nil {
		s.logger.Error("failed to cache admin profile snapshot", "error", err)
	}

	s.commit(gen, SessionSnapshot{State: StateAuthenticated, Principal: principal, Profile: profile})
}

// rejectApproval guarantees an unapproved teacher is never surfaced as an
// authorized session. The rejection is published, then the state is forced
// back to unauthenticated with the notice retained.
func (s *sessionService) rejectApproval(ctx context.Context, gen uint64, principal *models.Principal, reason string) {
	if err := s.identity.SignOut(ctx); err != nil {
		s.logger.Error("forced sign-out failed", "principal_id", principal.ID, "error", err)
	}
	if err := s.cache.Clear(ctx, principal.ID); err != nil {
		s.logger.Error("failed to clear profile cache on rejection", "error", err)
	}

	s.publishEvent(ctx, events.NewEvent(events.TypeApprovalRejected, principal.ID, principal.Email))

	s.mu.Lock()
	if !s.closed && gen == s.generation {
		s.publishLocked(SessionSnapshot{State: StateApprovalRejected, Notice: reason})
		s.publishLocked(SessionSnapshot{State: StateUnauthenticated, Notice: reason})
	}
	s.mu.Unlock()
}

// commit publishes snap unless a newer principal change superseded gen.
func (s *sessionService) commit(gen uint64, snap SessionSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.generation {
		return
	}
	s.publishLocked(snap)
}

func (s *sessionService) settleLocked() {
	if s.settled {
		return
	}
	s.settled = true
	if s.startupTimer != nil {
		s.startupTimer.Stop()
	}
}

// ===== EXPLICIT LOGIN / LOGOUT =====

func (s *sessionService) Login(ctx context.Context, email, password string) (*models.Profile, error) {
	// A fresh attempt clears any notice left by a previous rejection.
	s.mu.Lock()
	s.snapshot.Notice = ""
	s.mu.Unlock()

	principal, err := s.identity.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	if strings.EqualFold(principal.Email, s.config.AdminEmail) {
		profile, err := s.bootstrap.EnsureAdminProfile(ctx, principal)
		if err != nil {
			return nil, storeFailure(err)
		}
		if err := s.bootstrap.EnsureReferenceData(ctx); err != nil {
			s.logger.Error("reference data seeding failed", "error", err)
		}
		s.finishLogin(ctx, principal, profile)
		return profile, nil
	}

	profile, err := s.repo.Profile().GetByID(ctx, principal.ID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		if err := s.identity.SignOut(ctx); err != nil {
			s.logger.Error("sign-out after missing profile failed", "error", err)
		}
		return nil, ErrProfileNotFound
	case err != nil:
		if err := s.identity.SignOut(ctx); err != nil {
			s.logger.Error("sign-out after resolution failure failed", "error", err)
		}
		return nil, storeFailure(err)
	}

	decision := DecideApproval(profile.Role, profile.IsApproved())
	if !decision.Allow {
		if err := s.identity.SignOut(ctx); err != nil {
			s.logger.Error("forced sign-out failed", "error", err)
		}
		if err := s.cache.Clear(ctx, principal.ID); err != nil {
			s.logger.Error("failed to clear profile cache on rejection", "error", err)
		}

		s.publishEvent(ctx, events.NewEvent(events.TypeApprovalRejected, principal.ID, principal.Email))

		s.mu.Lock()
		s.settleLocked()
		s.generation++
		s.publishLocked(SessionSnapshot{State: StateApprovalRejected, Notice: decision.Reason})
		s.publishLocked(SessionSnapshot{State: StateUnauthenticated, Notice: decision.Reason})
		s.mu.Unlock()

		return nil, ErrPendingApproval
	}

	s.finishLogin(ctx, principal, profile)
	return profile, nil
}

func (s *sessionService) finishLogin(ctx context.Context, principal *models.Principal, profile *models.Profile) {
	if err := s.cache.Save(ctx, profile); err != nil {
		s.logger.Error("failed to cache profile snapshot", "error", err)
	}

	s.mu.Lock()
	s.settleLocked()
	s.generation++
	s.publishLocked(SessionSnapshot{State: StateAuthenticated, Principal: principal, Profile: profile})
	s.mu.Unlock()

	s.publishEvent(ctx, events.NewEvent(events.TypeSessionSignedIn, principal.ID, principal.Email))
	s.logger.Info("session authenticated", "principal_id", principal.ID, "role", profile.Role)
}

func (s *sessionService) Logout(ctx context.Context) error {
	principal := s.identity.Current()

	if err := s.identity.SignOut(ctx); err != nil {
		return fmt.Errorf("sign-out failed: %w", err)
	}

	if principal != nil {
		if err := s.cache.Clear(ctx, principal.ID); err != nil {
			s.logger.Error("failed to clear profile cache on logout", "error", err)
		}
		s.publishEvent(ctx, events.NewEvent(events.TypeSessionSignedOut, principal.ID, principal.Email))
	}

	return nil
}

func (s *sessionService) publishEvent(ctx context.Context, event *events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish identity event", "event_type", event.Type, "error", err)
	}
}
