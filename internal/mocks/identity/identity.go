package identity

// Package identity contains simple hand-written test doubles for the
// reconciliation ports. These are lightweight and suitable for unit tests
// without codegen.

import (
	"context"
	"sync"
	"time"

	domain "github.com/commercekit/storefront-identity/internal/domain/identity"
	apperrors "github.com/commercekit/storefront-identity/internal/errors"
	"github.com/commercekit/storefront-identity/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityClient = (*ScriptedIdentityClient)(nil)
	_ ports.ProfileStore   = (*MemoryProfileStore)(nil)
	_ ports.IdentityCache  = (*MemoryIdentityCache)(nil)
	_ ports.Redirector     = (*RecordingRedirector)(nil)
)

// ScriptedIdentityClient simulates an identity provider for tests.
// Behavior defaults to "signed out"; set the function fields to script
// responses, and use Emit to drive live events into subscribers.
type ScriptedIdentityClient struct {
	CurrentSessionFunc func(ctx context.Context) (*domain.Session, error)
	SignOutFunc        func(ctx context.Context) error

	mu           sync.Mutex
	subs         map[int]func(domain.Event)
	nextSub      int
	signOutCalls int
}

// NewScriptedIdentityClient creates a scripted client with no session.
func NewScriptedIdentityClient() *ScriptedIdentityClient {
	return &ScriptedIdentityClient{subs: make(map[int]func(domain.Event))}
}

func (c *ScriptedIdentityClient) CurrentSession(ctx context.Context) (*domain.Session, error) {
	if c.CurrentSessionFunc != nil {
		return c.CurrentSessionFunc(ctx)
	}
	return nil, nil
}

func (c *ScriptedIdentityClient) CurrentUser(ctx context.Context) (*domain.Identity, error) {
	sess, err := c.CurrentSession(ctx)
	if err != nil || sess == nil {
		return nil, err
	}
	user := sess.User
	return &user, nil
}

func (c *ScriptedIdentityClient) SignOut(ctx context.Context) error {
	c.mu.Lock()
	c.signOutCalls++
	c.mu.Unlock()
	if c.SignOutFunc != nil {
		return c.SignOutFunc(ctx)
	}
	return nil
}

// SignOutCalls returns how many times SignOut was invoked.
func (c *ScriptedIdentityClient) SignOutCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.signOutCalls
}

func (c *ScriptedIdentityClient) OnAuthStateChange(handler func(domain.Event)) ports.Unsubscribe {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = handler
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Emit delivers an event synchronously to every subscriber.
func (c *ScriptedIdentityClient) Emit(ev domain.Event) {
	c.mu.Lock()
	handlers := make([]func(domain.Event), 0, len(c.subs))
	for _, fn := range c.subs {
		handlers = append(handlers, fn)
	}
	c.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// SubscriberCount reports active subscriptions, for teardown assertions.
func (c *ScriptedIdentityClient) SubscriberCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// MemoryProfileStore is an in-memory profile store for unit tests.
// FetchErrs scripts errors for successive fetch attempts before the map is
// consulted; an Insert on an existing id returns a conflict like the real
// store.
type MemoryProfileStore struct {
	InsertFunc func(ctx context.Context, draft domain.ProfileDraft) (*domain.Profile, error)

	mu          sync.Mutex
	profiles    map[string]*domain.Profile
	fetchErrs   []error
	fetchCalls  int
	insertCalls int
}

// NewMemoryProfileStore creates an empty in-memory profile store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]*domain.Profile)}
}

// Seed stores a profile directly.
func (m *MemoryProfileStore) Seed(p *domain.Profile) {
	m.mu.Lock()
	m.profiles[p.ID] = p
	m.mu.Unlock()
}

// ScriptFetchErrs queues errors returned by successive FetchByUserID calls
// before the in-memory map is consulted.
func (m *MemoryProfileStore) ScriptFetchErrs(errs ...error) {
	m.mu.Lock()
	m.fetchErrs = append(m.fetchErrs, errs...)
	m.mu.Unlock()
}

func (m *MemoryProfileStore) FetchByUserID(_ context.Context, id string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchCalls++
	if len(m.fetchErrs) > 0 {
		err := m.fetchErrs[0]
		m.fetchErrs = m.fetchErrs[1:]
		return nil, err
	}
	p, ok := m.profiles[id]
	if !ok {
		return nil, apperrors.NotFoundf("profile %s not found", id)
	}
	return p, nil
}

func (m *MemoryProfileStore) Insert(ctx context.Context, draft domain.ProfileDraft) (*domain.Profile, error) {
	m.mu.Lock()
	m.insertCalls++
	override := m.InsertFunc
	m.mu.Unlock()
	if override != nil {
		return override(ctx, draft)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.profiles[draft.ID]; exists {
		return nil, apperrors.Conflict("profile already exists")
	}
	now := time.Now()
	p := &domain.Profile{
		ID:        draft.ID,
		Email:     draft.Email,
		Role:      draft.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if draft.FullName != "" {
		name := draft.FullName
		p.FullName = &name
	}
	if draft.Phone != "" {
		phone := draft.Phone
		p.Phone = &phone
	}
	m.profiles[draft.ID] = p
	return p, nil
}

// FetchCalls returns how many times FetchByUserID was invoked.
func (m *MemoryProfileStore) FetchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchCalls
}

// InsertCalls returns how many times Insert was invoked.
func (m *MemoryProfileStore) InsertCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertCalls
}

// MemoryIdentityCache is a single-slot identity cache for unit tests.
type MemoryIdentityCache struct {
	ReadErr  error
	WriteErr error

	mu     sync.Mutex
	slot   *domain.CachedIdentity
	writes int
	clears int
}

// NewMemoryIdentityCache creates an empty in-memory cache.
func NewMemoryIdentityCache() *MemoryIdentityCache {
	return &MemoryIdentityCache{}
}

// SeedCached places a record in the slot, as if persisted by a prior run.
func (m *MemoryIdentityCache) SeedCached(cached domain.CachedIdentity) {
	m.mu.Lock()
	m.slot = &cached
	m.mu.Unlock()
}

func (m *MemoryIdentityCache) Read(_ context.Context) (*domain.CachedIdentity, error) {
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slot == nil {
		return nil, nil
	}
	cached := *m.slot
	return &cached, nil
}

func (m *MemoryIdentityCache) Write(_ context.Context, cached domain.CachedIdentity) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.mu.Lock()
	m.slot = &cached
	m.writes++
	m.mu.Unlock()
	return nil
}

func (m *MemoryIdentityCache) Clear(_ context.Context) error {
	m.mu.Lock()
	m.slot = nil
	m.clears++
	m.mu.Unlock()
	return nil
}

// Slot returns the currently persisted record, or nil.
func (m *MemoryIdentityCache) Slot() *domain.CachedIdentity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slot == nil {
		return nil
	}
	cached := *m.slot
	return &cached
}

// Clears returns how many times Clear was invoked.
func (m *MemoryIdentityCache) Clears() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clears
}

// RecordingRedirector captures redirect side effects.
type RecordingRedirector struct {
	mu     sync.Mutex
	routes []string
}

// NewRecordingRedirector creates an empty recorder.
func NewRecordingRedirector() *RecordingRedirector {
	return &RecordingRedirector{}
}

func (r *RecordingRedirector) RedirectTo(route string) {
	r.mu.Lock()
	r.routes = append(r.routes, route)
	r.mu.Unlock()
}

// Routes returns the recorded redirect targets in order.
func (r *RecordingRedirector) Routes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.routes...)
}
