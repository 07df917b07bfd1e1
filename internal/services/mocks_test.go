package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/identity-service/internal/cache"
	"github.com/SAP-F-2025/identity-service/internal/models"
	"github.com/SAP-F-2025/identity-service/internal/repositories"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func newTestCache(t *testing.T) *cache.ProfileCache {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return cache.NewProfileCache(client)
}

// ===== FAKE IDENTITY PROVIDER =====

type fakeCredential struct {
	Principal *models.Principal
	Password  string
}

// fakeIdentity is an in-memory IdentityProvider. The principal-change stream
// is an owned channel so tests control exactly when events are delivered;
// nothing fires on subscription unless a test announces it.
type fakeIdentity struct {
	mu          sync.Mutex
	credentials map[string]*fakeCredential // keyed by lowercased email
	current     *models.Principal
	stream      chan repositories.PrincipalEvent

	signOutCalls int

	authenticateErr error
	createErr       error
	reauthErr       error
	updateErr       error
	resetRequests   []string
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		credentials: make(map[string]*fakeCredential),
		stream:      make(chan repositories.PrincipalEvent, 16),
	}
}

// seed registers a credential without going through CreateIdentity.
func (f *fakeIdentity) seed(principal *models.Principal, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credentials[strings.ToLower(principal.Email)] = &fakeCredential{Principal: principal, Password: password}
}

// announce pushes a principal-change event, simulating a provider-side
// session restore or sign-out.
func (f *fakeIdentity) announce(p *models.Principal) {
	f.mu.Lock()
	f.current = p
	f.mu.Unlock()
	f.stream <- repositories.PrincipalEvent{Principal: p}
}

func (f *fakeIdentity) Authenticate(ctx context.Context, email, password string) (*models.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.authenticateErr != nil {
		return nil, f.authenticateErr
	}

	cred, ok := f.credentials[strings.ToLower(email)]
	if !ok || cred.Password != password {
		return nil, repositories.ErrInvalidCredentials
	}
	f.current = cred.Principal

	return cred.Principal, nil
}

func (f *fakeIdentity) CreateIdentity(ctx context.Context, email, password, displayName string) (*models.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return nil, f.createErr
	}
	if len(password) < repositories.MinPasswordLength {
		return nil, repositories.ErrWeakCredential
	}

	key := strings.ToLower(email)
	if _, exists := f.credentials[key]; exists {
		return nil, repositories.ErrEmailInUse
	}

	principal := &models.Principal{ID: uuid.New().String(), Email: email, Name: displayName}
	f.credentials[key] = &fakeCredential{Principal: principal, Password: password}

	return principal, nil
}

func (f *fakeIdentity) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOutCalls++
	f.current = nil
	return nil
}

func (f *fakeIdentity) DeleteIdentity(ctx context.Context, principal *models.Principal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.credentials, strings.ToLower(principal.Email))
	return nil
}

func (f *fakeIdentity) Reauthenticate(ctx context.Context, principal *models.Principal, currentPassword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.reauthErr != nil {
		return f.reauthErr
	}

	cred, ok := f.credentials[strings.ToLower(principal.Email)]
	if !ok || cred.Password != currentPassword {
		return repositories.ErrReauthenticationFailed
	}
	return nil
}

func (f *fakeIdentity) UpdateCredential(ctx context.Context, principal *models.Principal, newPassword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return f.updateErr
	}
	if len(newPassword) < repositories.MinPasswordLength {
		return repositories.ErrWeakCredential
	}

	cred, ok := f.credentials[strings.ToLower(principal.Email)]
	if !ok {
		return repositories.ErrNotFound
	}
	cred.Password = newPassword
	return nil
}

func (f *fakeIdentity) SendPasswordReset(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetRequests = append(f.resetRequests, email)
	return nil
}

func (f *fakeIdentity) PrincipalChanges(ctx context.Context) (<-chan repositories.PrincipalEvent, func(), error) {
	var once sync.Once
	cancel := func() {
		once.Do(func() { close(f.stream) })
	}
	return f.stream, cancel, nil
}

func (f *fakeIdentity) Current() *models.Principal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeIdentity) password(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cred, ok := f.credentials[strings.ToLower(email)]; ok {
		return cred.Password
	}
	return ""
}

func (f *fakeIdentity) hasCredential(email string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.credentials[strings.ToLower(email)]
	return ok
}

func (f *fakeIdentity) signOuts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signOutCalls
}

// ===== FAKE REPOSITORY =====

// fakeRepository is an in-memory Repository with call counters on the paths
// the tests assert on.
type fakeRepository struct {
	profiles *fakeProfileRepo
	schools  *fakeSchoolRepo
	children *fakeChildRepo
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		profiles: &fakeProfileRepo{byID: make(map[string]*models.Profile)},
		schools:  &fakeSchoolRepo{},
		children: &fakeChildRepo{byID: make(map[string]*models.Child)},
	}
}

func (r *fakeRepository) Profile() repositories.ProfileRepository { return r.profiles }
func (r *fakeRepository) School() repositories.SchoolRepository   { return r.schools }
func (r *fakeRepository) Child() repositories.ChildRepository     { return r.children }
func (r *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(r)
}
func (r *fakeRepository) Ping(ctx context.Context) error { return nil }
func (r *fakeRepository) Close() error                   { return nil }

type fakeProfileRepo struct {
	mu   sync.Mutex
	byID map[string]*models.Profile

	getCalls    int
	createCalls int

	getErr    error
	createErr error
	updateErr error
}

func (r *fakeProfileRepo) put(p *models.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = p
}

func (r *fakeProfileRepo) gets() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getCalls
}

func (r *fakeProfileRepo) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.getCalls++
	if r.getErr != nil {
		return nil, r.getErr
	}

	p, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return p, nil
}

func (r *fakeProfileRepo) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.byID {
		if strings.EqualFold(p.Email, email) {
			return p, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeProfileRepo) Create(ctx context.Context, profile *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.createCalls++
	if r.createErr != nil {
		return r.createErr
	}
	r.byID[profile.ID] = profile
	return nil
}

func (r *fakeProfileRepo) Update(ctx context.Context, profile *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.byID[profile.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.byID[profile.ID] = profile
	return nil
}

func (r *fakeProfileRepo) SetApproved(ctx context.Context, id string, approved bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok || p.Role != models.RoleTeacher {
		return repositories.ErrNotFound
	}
	if p.Teacher == nil {
		p.Teacher = &models.TeacherInfo{}
	}
	p.Teacher.Approved = approved
	return nil
}

func (r *fakeProfileRepo) List(ctx context.Context, filters repositories.ProfileFilters) ([]*models.Profile, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*models.Profile
	for _, p := range r.byID {
		if filters.Role != nil && p.Role != *filters.Role {
			continue
		}
		if filters.Approved != nil && p.IsApproved() != *filters.Approved {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	if filters.Offset > 0 {
		if filters.Offset >= len(matched) {
			return nil, total, nil
		}
		matched = matched[filters.Offset:]
	}
	if filters.Limit > 0 && len(matched) > filters.Limit {
		matched = matched[:filters.Limit]
	}

	return matched, total, nil
}

func (r *fakeProfileRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

type fakeSchoolRepo struct {
	mu      sync.Mutex
	schools []*models.School

	countCalls  int
	bulkCreates int
}

func (r *fakeSchoolRepo) ListAll(ctx context.Context) ([]*models.School, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.School(nil), r.schools...), nil
}

func (r *fakeSchoolRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.countCalls++
	return int64(len(r.schools)), nil
}

func (r *fakeSchoolRepo) Upsert(ctx context.Context, school *models.School) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.schools {
		if existing.Name == school.Name {
			existing.District = school.District
			*school = *existing
			return nil
		}
	}
	school.ID = uint(len(r.schools) + 1)
	r.schools = append(r.schools, school)
	return nil
}

func (r *fakeSchoolRepo) BulkCreate(ctx context.Context, schools []*models.School) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bulkCreates++
	for i, s := range schools {
		s.ID = uint(len(r.schools) + i + 1)
	}
	r.schools = append(r.schools, schools...)
	return nil
}

type fakeChildRepo struct {
	mu   sync.Mutex
	byID map[string]*models.Child
}

func (r *fakeChildRepo) GetByID(ctx context.Context, id string) (*models.Child, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return c, nil
}

func (r *fakeChildRepo) ListByParent(ctx context.Context, parentID string) ([]*models.Child, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Child
	for _, c := range r.byID {
		if c.ParentID == parentID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeChildRepo) Create(ctx context.Context, child *models.Child) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[child.ID] = child
	return nil
}

func (r *fakeChildRepo) Update(ctx context.Context, child *models.Child) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[child.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.byID[child.ID] = child
	return nil
}

func (r *fakeChildRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}
