package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	coreEntity "healthtrack-api/core/entity"
	healthEntity "healthtrack-api/modules/health/entity"
	healthRepo "healthtrack-api/modules/health/repository"
	"healthtrack-api/modules/integration/adapter"
	"healthtrack-api/modules/integration/entity"
	notifDto "healthtrack-api/modules/notification/dto"

	"github.com/google/uuid"
)

// testNow is the frozen clock every service under test runs on.
var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func testIntegration(userID uuid.UUID, provider entity.Provider, status entity.Status, expiry time.Time) *entity.Integration {
	return &entity.Integration{
		BaseEntity: coreEntity.BaseEntity{
			ID:        uuid.New(),
			CreatedAt: testNow.Add(-24 * time.Hour),
		},
		UserID:         userID,
		Provider:       provider,
		AccessToken:    "stored-access",
		RefreshToken:   ptr("stored-refresh"),
		TokenExpiresAt: expiry,
		Status:         status,
	}
}

func dayRecord(date time.Time, steps int) adapter.DailyHealthData {
	return adapter.DailyHealthData{
		Date:     date,
		Provider: entity.ProviderStrava,
		Steps:    ptr(steps),
		Raw:      json.RawMessage(fmt.Sprintf(`{"steps":%d}`, steps)),
	}
}

// fakeIntegrationRepo keeps integrations in memory and records every write so
// tests can assert on what was persisted and when.
type fakeIntegrationRepo struct {
	mu           sync.Mutex
	integrations map[uuid.UUID]*entity.Integration

	findErr        error
	createErr      error
	updateCredsErr error

	credUpdates   int
	statusUpdates []entity.Status
	syncErrors    []string
	lastSynced    []time.Time
	deleted       []uuid.UUID
}

func newFakeIntegrationRepo(ins ...*entity.Integration) *fakeIntegrationRepo {
	r := &fakeIntegrationRepo{integrations: make(map[uuid.UUID]*entity.Integration)}
	for _, in := range ins {
		cp := *in
		r.integrations[in.ID] = &cp
	}
	return r
}

// stored returns a copy of the persisted row, or nil.
func (r *fakeIntegrationRepo) stored(id uuid.UUID) *entity.Integration {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.integrations[id]
	if !ok {
		return nil
	}
	cp := *in
	return &cp
}

func (r *fakeIntegrationRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.integrations)
}

func (r *fakeIntegrationRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Integration, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.stored(id), nil
}

func (r *fakeIntegrationRepo) FindByUserAndProvider(_ context.Context, userID uuid.UUID, provider entity.Provider) (*entity.Integration, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *entity.Integration
	for _, in := range r.integrations {
		if in.UserID != userID || in.Provider != provider {
			continue
		}
		if latest == nil || in.CreatedAt.After(latest.CreatedAt) {
			latest = in
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *fakeIntegrationRepo) FindByUserID(_ context.Context, userID uuid.UUID) ([]entity.Integration, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Integration
	for _, in := range r.integrations {
		if in.UserID == userID {
			out = append(out, *in)
		}
	}
	return out, nil
}

func (r *fakeIntegrationRepo) FindActiveByUserID(_ context.Context, userID uuid.UUID) ([]entity.Integration, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Integration
	for _, in := range r.integrations {
		if in.UserID == userID && in.Status == entity.StatusActive {
			out = append(out, *in)
		}
	}
	return out, nil
}

func (r *fakeIntegrationRepo) FindDueForSync(_ context.Context, before time.Time) ([]entity.Integration, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Integration
	for _, in := range r.integrations {
		if !in.Status.CanSync() {
			continue
		}
		if in.LastSyncedAt == nil || in.LastSyncedAt.Before(before) {
			out = append(out, *in)
		}
	}
	return out, nil
}

func (r *fakeIntegrationRepo) Create(_ context.Context, in *entity.Integration) (*entity.Integration, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *in
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = testNow
	}
	r.integrations[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeIntegrationRepo) UpdateCredentials(_ context.Context, in *entity.Integration) error {
	if r.updateCredsErr != nil {
		return r.updateCredsErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *in
	r.integrations[in.ID] = &cp
	r.credUpdates++
	return nil
}

func (r *fakeIntegrationRepo) UpdateStatus(_ context.Context, id uuid.UUID, status entity.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statusUpdates = append(r.statusUpdates, status)
	if in, ok := r.integrations[id]; ok {
		in.Status = status
	}
	return nil
}

// UpdateLastSynced mirrors the real SQL: stamp the time, clear the error,
// and lift ERROR back to ACTIVE.
func (r *fakeIntegrationRepo) UpdateLastSynced(_ context.Context, id uuid.UUID, syncedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSynced = append(r.lastSynced, syncedAt)
	if in, ok := r.integrations[id]; ok {
		t := syncedAt
		in.LastSyncedAt = &t
		in.LastSyncError = nil
		if in.Status == entity.StatusError {
			in.Status = entity.StatusActive
		}
	}
	return nil
}

func (r *fakeIntegrationRepo) RecordSyncError(_ context.Context, id uuid.UUID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncErrors = append(r.syncErrors, message)
	if in, ok := r.integrations[id]; ok {
		m := message
		in.LastSyncError = &m
	}
	return nil
}

func (r *fakeIntegrationRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
	delete(r.integrations, id)
	return nil
}

// fakeHealthRepo stores entries keyed by user and day, like the unique index
// on the real table.
type fakeHealthRepo struct {
	mu      sync.Mutex
	entries map[string]*healthEntity.HealthEntry
	creates int
	upserts int

	findErr   error
	createErr error
	upsertErr error

	totals       healthRepo.MetricTotals
	latestWeight *float64
	sumErr       error
	weightErr    error
}

func newFakeHealthRepo() *fakeHealthRepo {
	return &fakeHealthRepo{entries: make(map[string]*healthEntity.HealthEntry)}
}

func healthKey(userID uuid.UUID, date time.Time) string {
	return userID.String() + "/" + date.Format("2006-01-02")
}

func (r *fakeHealthRepo) seed(e *healthEntity.HealthEntry) {
	cp := *e
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	r.entries[healthKey(cp.UserID, cp.EntryDate)] = &cp
}

func (r *fakeHealthRepo) entry(userID uuid.UUID, date time.Time) *healthEntity.HealthEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[healthKey(userID, date)]
	if !ok {
		return nil
	}
	cp := *e
	return &cp
}

func (r *fakeHealthRepo) FindByUserAndDate(_ context.Context, userID uuid.UUID, date time.Time) (*healthEntity.HealthEntry, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.entry(userID, date), nil
}

func (r *fakeHealthRepo) Create(_ context.Context, e *healthEntity.HealthEntry) (*healthEntity.HealthEntry, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	cp := *e
	cp.ID = uuid.New()
	r.entries[healthKey(cp.UserID, cp.EntryDate)] = &cp
	out := cp
	return &out, nil
}

func (r *fakeHealthRepo) Upsert(_ context.Context, e *healthEntity.HealthEntry) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	cp := *e
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	r.entries[healthKey(cp.UserID, cp.EntryDate)] = &cp
	return nil
}

func (r *fakeHealthRepo) SumMetrics(_ context.Context, _ uuid.UUID, _, _ time.Time) (*healthRepo.MetricTotals, error) {
	if r.sumErr != nil {
		return nil, r.sumErr
	}
	t := r.totals
	return &t, nil
}

func (r *fakeHealthRepo) LatestWeight(_ context.Context, _ uuid.UUID) (*float64, error) {
	if r.weightErr != nil {
		return nil, r.weightErr
	}
	return r.latestWeight, nil
}

// fakeAdapter scripts one provider. Zero value: exchange and refresh succeed
// with fresh credentials, fetch returns nothing.
type fakeAdapter struct {
	provider entity.Provider

	exchangeFn func(ctx context.Context, code string) (*adapter.Credentials, error)
	refreshFn  func(ctx context.Context, refreshToken string) (*adapter.Credentials, error)
	fetchFn    func(ctx context.Context, creds *adapter.Credentials, start, end time.Time) ([]adapter.DailyHealthData, error)
	revokeErr  error

	mu            sync.Mutex
	exchangeCalls int
	refreshCalls  int
	fetchCalls    int
	revokeCalls   int
	fetchToken    string
	fetchStart    time.Time
	fetchEnd      time.Time
}

func (a *fakeAdapter) Provider() entity.Provider {
	if a.provider == "" {
		return entity.ProviderStrava
	}
	return a.provider
}

func (a *fakeAdapter) AuthorizationURL(state string) string {
	return "https://provider.example/oauth/authorize?state=" + state
}

func (a *fakeAdapter) ExchangeCode(ctx context.Context, code string) (*adapter.Credentials, error) {
	a.mu.Lock()
	a.exchangeCalls++
	a.mu.Unlock()
	if a.exchangeFn != nil {
		return a.exchangeFn(ctx, code)
	}
	return &adapter.Credentials{
		AccessToken:  "access-" + code,
		RefreshToken: "refresh-" + code,
		ExpiresAt:    testNow.Add(6 * time.Hour),
		Scope:        "read",
	}, nil
}

func (a *fakeAdapter) RefreshToken(ctx context.Context, refreshToken string) (*adapter.Credentials, error) {
	a.mu.Lock()
	a.refreshCalls++
	a.mu.Unlock()
	if a.refreshFn != nil {
		return a.refreshFn(ctx, refreshToken)
	}
	return &adapter.Credentials{
		AccessToken: "refreshed-access",
		ExpiresAt:   testNow.Add(6 * time.Hour),
	}, nil
}

func (a *fakeAdapter) FetchHealthData(ctx context.Context, creds *adapter.Credentials, start, end time.Time) ([]adapter.DailyHealthData, error) {
	a.mu.Lock()
	a.fetchCalls++
	a.fetchToken = creds.AccessToken
	a.fetchStart, a.fetchEnd = start, end
	a.mu.Unlock()
	if a.fetchFn != nil {
		return a.fetchFn(ctx, creds, start, end)
	}
	return nil, nil
}

func (a *fakeAdapter) RevokeAccess(context.Context, *adapter.Credentials) error {
	a.mu.Lock()
	a.revokeCalls++
	a.mu.Unlock()
	return a.revokeErr
}

type fakeResolver struct {
	adapters map[entity.Provider]adapter.Adapter
}

func newFakeResolver(ads ...adapter.Adapter) *fakeResolver {
	r := &fakeResolver{adapters: make(map[entity.Provider]adapter.Adapter)}
	for _, a := range ads {
		r.adapters[a.Provider()] = a
	}
	return r
}

func (r *fakeResolver) Get(p entity.Provider) (adapter.Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider %q", p)
	}
	return a, nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	created []notifDto.CreateNotificationRequest
	err     error
}

func (n *fakeNotifier) Create(_ context.Context, req *notifDto.CreateNotificationRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.created = append(n.created, *req)
	return nil
}

func (n *fakeNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.created))
	for _, c := range n.created {
		out = append(out, c.Type)
	}
	return out
}

type enqueuedSync struct {
	integrationID uuid.UUID
	userID        uuid.UUID
	start, end    *time.Time
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	calls []enqueuedSync
	err   error
}

func (e *fakeEnqueuer) EnqueueSync(_ context.Context, integrationID, userID uuid.UUID, start, end *time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, enqueuedSync{integrationID: integrationID, userID: userID, start: start, end: end})
	return e.err
}

type archivedBlob struct {
	provider string
	userID   uuid.UUID
	day      time.Time
	payload  []byte
}

type fakeArchiver struct {
	mu       sync.Mutex
	archived []archivedBlob
	err      error
}

func (a *fakeArchiver) ArchiveRaw(_ context.Context, provider string, userID uuid.UUID, day time.Time, payload []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.archived = append(a.archived, archivedBlob{provider: provider, userID: userID, day: day, payload: payload})
	return nil
}

type fakeRecalc struct {
	mu    sync.Mutex
	users []uuid.UUID
	err   error
}

func (r *fakeRecalc) RecalculateForUser(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userID)
	return r.err
}

type fakeCache struct {
	mu       sync.Mutex
	data     map[string]string
	setNXErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string)}
}

func (c *fakeCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *fakeCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *fakeCache) SetNX(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setNXErr != nil {
		return false, c.setNXErr
	}
	if _, ok := c.data[key]; ok {
		return false, nil
	}
	c.data[key] = value
	return true, nil
}

func (c *fakeCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *fakeCache) Close() error { return nil }
