package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SAP-F-2025/identity-service/internal/cache"
	"github.com/SAP-F-2025/identity-service/internal/events"
	"github.com/SAP-F-2025/identity-service/internal/models"
)

const testAdminEmail = "admin@sapkids.edu.vn"

type sessionFixture struct {
	identity  *fakeIdentity
	repo      *fakeRepository
	cache     *cache.ProfileCache
	publisher *events.MockEventPublisher
	manager   SessionManager
}

func newSessionFixture(t *testing.T, config SessionConfig) *sessionFixture {
	t.Helper()

	logger := newTestLogger()
	if config.AdminEmail == "" {
		config.AdminEmail = testAdminEmail
	}

	f := &sessionFixture{
		identity:  newFakeIdentity(),
		repo:      newFakeRepository(),
		cache:     newTestCache(t),
		publisher: events.NewMockEventPublisher(logger),
	}
	f.manager = NewSessionManager(f.repo, f.identity, f.cache, NewBootstrapService(f.repo, logger), f.publisher, logger, config)
	t.Cleanup(func() { f.manager.Close() })

	return f
}

func (f *sessionFixture) seedParent(id, email string) *models.Principal {
	principal := &models.Principal{ID: id, Email: email, Name: "Parent"}
	f.identity.seed(principal, "parent-pass")
	f.repo.profiles.put(&models.Profile{
		ID:        id,
		Email:     email,
		Role:      models.RoleParent,
		FirstName: "Lan",
		LastName:  "Nguyen",
	})
	return principal
}

func (f *sessionFixture) seedTeacher(id, email string, approved bool) *models.Principal {
	principal := &models.Principal{ID: id, Email: email, Name: "Teacher"}
	f.identity.seed(principal, "teacher-pass")
	f.repo.profiles.put(&models.Profile{
		ID:        id,
		Email:     email,
		Role:      models.RoleTeacher,
		FirstName: "Minh",
		LastName:  "Tran",
		Teacher:   &models.TeacherInfo{Approved: approved},
	})
	return principal
}

func waitForState(t *testing.T, ch <-chan SessionSnapshot, state SessionState) SessionSnapshot {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				t.Fatalf("snapshot channel closed while waiting for state %q", state)
			}
			if snap.State == state {
				return snap
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %q", state)
		}
	}
}

func hasEvent(published []*events.Event, eventType string) bool {
	for _, e := range published {
		if e.Type == eventType {
			return true
		}
	}
	return false
}

func TestSessionManager_StartupRace(t *testing.T) {
	ctx := context.Background()

	t.Run("RestoreBeforeTimeoutWins", func(t *testing.T) {
		f := newSessionFixture(t, SessionConfig{StartupTimeout: 100 * time.Millisecond})
		principal := f.seedParent("parent-1", "lan@example.com")

		snaps, cancel := f.manager.Subscribe()
		defer cancel()

		if err := f.manager.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		f.identity.announce(principal)

		snap := waitForState(t, snaps, StateAuthenticated)
		if snap.Profile == nil || snap.Profile.ID != "parent-1" {
			t.Fatalf("expected resolved profile parent-1, got %+v", snap.Profile)
		}

		// The settled state must survive the timer deadline.
		time.Sleep(200 * time.Millisecond)
		if got := f.manager.Snapshot().State; got != StateAuthenticated {
			t.Errorf("state clobbered after timeout fired: %q", got)
		}
	})

	t.Run("TimeoutSettlesUnauthenticated", func(t *testing.T) {
		f := newSessionFixture(t, SessionConfig{StartupTimeout: 50 * time.Millisecond})

		snaps, cancel := f.manager.Subscribe()
		defer cancel()

		if err := f.manager.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		snap := waitForState(t, snaps, StateUnauthenticated)
		if snap.Principal != nil {
			t.Errorf("expected no principal after timeout, got %+v", snap.Principal)
		}
	})

	t.Run("LateEventAfterTimeoutStillApplies", func(t *testing.T) {
		f := newSessionFixture(t, SessionConfig{StartupTimeout: 50 * time.Millisecond})
		principal := f.seedParent("parent-2", "mai@example.com")

		snaps, cancel := f.manager.Subscribe()
		defer cancel()

		if err := f.manager.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		waitForState(t, snaps, StateUnauthenticated)

		f.identity.announce(principal)
		waitForState(t, snaps, StateAuthenticated)
	})
}

func TestSessionManager_CacheShortCircuit(t *testing.T) {
	ctx := context.Background()

	f := newSessionFixture(t, SessionConfig{StartupTimeout: time.Second})
	principal := f.seedParent("parent-3", "thu@example.com")

	profile, _ := f.repo.profiles.GetByID(ctx, "parent-3")
	if err := f.cache.Save(ctx, profile); err != nil {
		t.Fatalf("failed to pre-populate cache: %v", err)
	}
	storeReadsBefore := f.repo.profiles.gets()

	snaps, cancel := f.manager.Subscribe()
	defer cancel()

	if err := f.manager.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	f.identity.announce(principal)

	snap := waitForState(t, snaps, StateAuthenticated)
	if snap.Profile == nil || snap.Profile.ID != "parent-3" {
		t.Fatalf("expected cached profile, got %+v", snap.Profile)
	}

	if got := f.repo.profiles.gets(); got != storeReadsBefore {
		t.Errorf("cache hit still read the store: %d extra reads", got-storeReadsBefore)
	}
}

func TestSessionManager_UnapprovedTeacherRejected(t *testing.T) {
	ctx := context.Background()

	t.Run("PassiveResolution", func(t *testing.T) {
		f := newSessionFixture(t, SessionConfig{StartupTimeout: time.Second})
		principal := f.seedTeacher("teacher-1", "minh@example.com", false)

		snaps, cancel := f.manager.Subscribe()
		defer cancel()

		if err := f.manager.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		f.identity.announce(principal)

		rejected := waitForState(t, snaps, StateApprovalRejected)
		if rejected.Notice != PendingApprovalMessage {
			t.Errorf("expected pending-approval notice, got %q", rejected.Notice)
		}

		// The rejection is transient and must land on unauthenticated with
		// the notice retained.
		final := waitForState(t, snaps, StateUnauthenticated)
		if final.Notice != PendingApprovalMessage {
			t.Errorf("notice lost across forced sign-out: %q", final.Notice)
		}

		if f.identity.signOuts() == 0 {
			t.Error("expected a forced sign-out at the provider")
		}
		if !hasEvent(f.publisher.GetPublishedEvents(), events.TypeApprovalRejected) {
			t.Error("expected an approval-rejected event")
		}
	})

	t.Run("ExplicitLogin", func(t *testing.T) {
		f := newSessionFixture(t, SessionConfig{StartupTimeout: time.Second})
		f.seedTeacher("teacher-2", "hoa@example.com", false)

		if err := f.manager.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		_, err := f.manager.Login(ctx, "hoa@example.com", "teacher-pass")
		if !errors.Is(err, ErrPendingApproval) {
			t.Fatalf("expected ErrPendingApproval, got %v", err)
		}

		snap := f.manager.Snapshot()
		if snap.State != StateUnauthenticated {
			t.Errorf("expected unauthenticated after rejection, got %q", snap.State)
		}
		if snap.Notice != PendingApprovalMessage {
			t.Errorf("expected pending-approval notice, got %q", snap.Notice)
		}
		if f.identity.Current() != nil {
			t.Error("provider session must not survive rejection")
		}
	})

	t.Run("ApprovedTeacherPasses", func(t *testing.T) {
		f := newSessionFixture(t, SessionConfig{StartupTimeout: time.Second})
		f.seedTeacher("teacher-3", "quynh@example.com", true)

		if err := f.manager.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		profile, err := f.manager.Login(ctx, "quynh@example.com", "teacher-pass")
		if err != nil {
			t.Fatalf("approved teacher login failed: %v", err)
		}
		if profile.Role != models.RoleTeacher {
			t.Errorf("unexpected role %q", profile.Role)
		}
		if got := f.manager.Snapshot().State; got != StateAuthenticated {
			t.Errorf("expected authenticated, got %q", got)
		}
	})
}

func TestSessionManager_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newSessionFixture(t, SessionConfig{StartupTimeout: time.Second})
		f.seedParent("parent-4", "ngoc@example.com")

		if err := f.manager.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		profile, err := f.manager.Login(ctx, "ngoc@example.com", "parent-pass")
		if err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if profile.ID != "parent-4" {
			t.Errorf("unexpected profile %q", profile.ID)
		}

		// The resolved profile is cached for the next session restore.
		cached, err := f.cache.Load(ctx, "parent-4")
		if err != nil || cached == nil {
			t.Errorf("expected cached snapshot after login, got %v / %v", cached, err)
		}

		if !hasEvent(f.publisher.GetPublishedEvents(), events.TypeSessionSignedIn) {
			t.Error("expected a signed-in event")
		}
	})

	t.Run("WrongPassword", func(t *testing.T) {
		f := newSessionFixture(t, SessionConfig{StartupTimeout: time.Second})
		f.seedParent("parent-5", "tuan@example.com")

		if err := f.manager.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		_, err := f.manager.Login(ctx, "tuan@example.com", "wrong")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("MissingProfile", func(t *testing.T) {
		f := newSessionFixture(t, SessionConfig{StartupTimeout: time.Second})
		// Credential exists but no profile document was ever written.
		f.identity.seed(&models.Principal{ID: "ghost-1", Email: "ghost@example.com"}, "ghost-pass")

		if err := f.manager.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		_, err := f.manager.Login(ctx, "ghost@example.com", "ghost-pass")
		if !errors.Is(err, ErrProfileNotFound) {
			t.Fatalf("expected ErrProfileNotFound, got %v", err)
		}
		if f.identity.Current() != nil {
			t.Error("expected sign-out after missing profile")
		}
	})

	t.Run("StoreFailure", func(t *testing.T) {
		f := newSessionFixture(t, SessionConfig{StartupTimeout: time.Second})
		f.seedParent("parent-6", "vy@example.com")
		f.repo.profiles.getErr = errors.New("connection refused")

		if err := f.manager.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		_, err := f.manager.Login(ctx, "vy@example.com", "parent-pass")
		if !errors.Is(err, ErrStoreUnavailable) {
			t.Fatalf("expected ErrStoreUnavailable, got %v", err)
		}
	})

	t.Run("FreshAttemptClearsNotice", func(t *testing.T) {
		f := newSessionFixture(t, SessionConfig{StartupTimeout: time.Second})
		f.seedTeacher("teacher-4", "chi@example.com", false)
		f.seedParent("parent-7", "an@example.com")

		if err := f.manager.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		if _, err := f.manager.Login(ctx, "chi@example.com", "teacher-pass"); !errors.Is(err, ErrPendingApproval) {
			t.Fatalf("expected ErrPendingApproval, got %v", err)
		}
		if f.manager.Snapshot().Notice == "" {
			t.Fatal("expected rejection notice before retry")
		}

		if _, err := f.manager.Login(ctx, "an@example.com", "parent-pass"); err != nil {
			t.Fatalf("second login failed: %v", err)
		}
		if notice := f.manager.Snapshot().Notice; notice != "" {
			t.Errorf("stale notice survived a successful login: %q", notice)
		}
	})
}

func TestSessionManager_SignOutClearsState(t *testing.T) {
	ctx := context.Background()

	f := newSessionFixture(t, SessionConfig{StartupTimeout: time.Second})
	principal := f.seedParent("parent-8", "huong@example.com")

	snaps, cancel := f.manager.Subscribe()
	defer cancel()

	if err := f.manager.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	f.identity.announce(principal)
	waitForState(t, snaps, StateAuthenticated)

	f.identity.announce(nil)
	snap := waitForState(t, snaps, StateUnauthenticated)
	if snap.Profile != nil {
		t.Errorf("profile survived sign-out: %+v", snap.Profile)
	}

	if _, err := f.cache.Load(ctx, "parent-8"); err == nil {
		t.Error("expected cached snapshot cleared on sign-out")
	}
}

func TestSessionManager_Logout(t *testing.T) {
	ctx := context.Background()

	f := newSessionFixture(t, SessionConfig{StartupTimeout: time.Second})
	f.seedParent("parent-9", "trang@example.com")

	if err := f.manager.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := f.manager.Login(ctx, "trang@example.com", "parent-pass"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := f.manager.Logout(ctx); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	if f.identity.Current() != nil {
		t.Error("provider session survived logout")
	}
	if _, err := f.cache.Load(ctx, "parent-9"); err == nil {
		t.Error("expected cached snapshot cleared on logout")
	}
	if !hasEvent(f.publisher.GetPublishedEvents(), events.TypeSessionSignedOut) {
		t.Error("expected a signed-out event")
	}
}

func TestSessionManager_AdminBootstrap(t *testing.T) {
	ctx := context.Background()

	f := newSessionFixture(t, SessionConfig{StartupTimeout: time.Second})
	f.identity.seed(&models.Principal{ID: "admin-1", Email: testAdminEmail, Name: "Admin"}, "admin-pass")

	if err := f.manager.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	profile, err := f.manager.Login(ctx, testAdminEmail, "admin-pass")
	if err != nil {
		t.Fatalf("admin login failed: %v", err)
	}
	if profile.Role != models.RoleAdmin {
		t.Errorf("expected synthesized admin profile, got role %q", profile.Role)
	}

	schools, _ := f.repo.schools.ListAll(ctx)
	if len(schools) == 0 {
		t.Error("expected reference data seeded on first admin login")
	}

	// Second login must not re-provision anything.
	bulkCreatesBefore := f.repo.schools.bulkCreates
	createsBefore := f.repo.profiles.createCalls
	if _, err := f.manager.Login(ctx, testAdminEmail, "admin-pass"); err != nil {
		t.Fatalf("second admin login failed: %v", err)
	}
	if f.repo.schools.bulkCreates != bulkCreatesBefore {
		t.Error("reference data re-seeded on repeat login")
	}
	if f.repo.profiles.createCalls != createsBefore {
		t.Error("admin profile re-created on repeat login")
	}
}

func TestSessionManager_PassiveResolutionFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("StoreFailure", func(t *testing.T) {
		f := newSessionFixture(t, SessionConfig{StartupTimeout: time.Second})
		principal := f.seedParent("parent-10", "oanh@example.com")
		f.repo.profiles.getErr = errors.New("connection refused")

		snaps, cancel := f.manager.Subscribe()
		defer cancel()

		if err := f.manager.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		f.identity.announce(principal)

		// The stream handler never escalates; it converges to
		// unauthenticated with the failure recorded as the cause.
		snap := waitForState(t, snaps, StateUnauthenticated)
		if !errors.Is(snap.Cause, ErrStoreUnavailable) {
			t.Errorf("expected ErrStoreUnavailable cause, got %v", snap.Cause)
		}
	})

	t.Run("MissingProfile", func(t *testing.T) {
		f := newSessionFixture(t, SessionConfig{StartupTimeout: time.Second})
		principal := &models.Principal{ID: "ghost-2", Email: "phantom@example.com"}
		f.identity.seed(principal, "ghost-pass")

		snaps, cancel := f.manager.Subscribe()
		defer cancel()

		if err := f.manager.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		f.identity.announce(principal)

		snap := waitForState(t, snaps, StateUnauthenticated)
		if !errors.Is(snap.Cause, ErrProfileNotFound) {
			t.Errorf("expected ErrProfileNotFound cause, got %v", snap.Cause)
		}
	})
}

func TestSessionManager_NoDeliveryAfterClose(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{StartupTimeout: 50 * time.Millisecond})

	snaps, cancel := f.manager.Subscribe()
	defer cancel()

	if err := f.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := f.manager.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// The startup timer was still armed at Close; give it time to fire. It
	// must not settle the state or reach the subscriber.
	time.Sleep(100 * time.Millisecond)

	select {
	case snap, ok := <-snaps:
		if ok {
			t.Fatalf("snapshot delivered after Close: %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber channel not closed by Close")
	}

	// A resolution result landing late is dropped the same way.
	s := f.manager.(*sessionService)
	s.commit(s.generation, SessionSnapshot{State: StateAuthenticated})
	if got := f.manager.Snapshot().State; got == StateAuthenticated {
		t.Error("state transition applied after Close")
	}
}

func TestSessionManager_SnapshotsDoNotAliasStore(t *testing.T) {
	ctx := context.Background()

	f := newSessionFixture(t, SessionConfig{StartupTimeout: time.Second})
	principal := f.seedTeacher("teacher-5", "nga@example.com", true)

	snaps, cancel := f.manager.Subscribe()
	defer cancel()

	if err := f.manager.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	f.identity.announce(principal)

	snap := waitForState(t, snaps, StateAuthenticated)

	// Mutating the stored record must not bleed into the published snapshot.
	stored, _ := f.repo.profiles.GetByID(ctx, "teacher-5")
	stored.FirstName = "Mutated"
	stored.Teacher.Approved = false

	if snap.Profile.FirstName == "Mutated" {
		t.Error("published snapshot aliases the stored record")
	}
	if !snap.Profile.Teacher.Approved {
		t.Error("published teacher info aliases the stored record")
	}

	// And the reverse: an observer writing on its snapshot cannot reach the
	// store.
	snap.Profile.LastName = "Scribbled"
	if stored.LastName == "Scribbled" {
		t.Error("stored record aliases the published snapshot")
	}
}

func TestSessionManager_StaleResolutionDiscarded(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{StartupTimeout: time.Second})

	s := f.manager.(*sessionService)
	s.mu.Lock()
	s.generation = 2
	s.snapshot = SessionSnapshot{State: StateAuthenticated}
	s.mu.Unlock()

	// A commit tagged with a superseded generation must not clobber state.
	s.commit(1, SessionSnapshot{State: StateUnauthenticated})
	if got := f.manager.Snapshot().State; got != StateAuthenticated {
		t.Errorf("stale commit replaced newer state: %q", got)
	}

	s.commit(2, SessionSnapshot{State: StateUnauthenticated})
	if got := f.manager.Snapshot().State; got != StateUnauthenticated {
		t.Errorf("current-generation commit was dropped: %q", got)
	}
}
