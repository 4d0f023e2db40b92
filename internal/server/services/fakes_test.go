package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/mitrasign/internal/common"
	"github.com/dmitrijs2005/mitrasign/internal/dbx"
	"github.com/dmitrijs2005/mitrasign/internal/server/events"
	"github.com/dmitrijs2005/mitrasign/internal/server/models"
	"github.com/dmitrijs2005/mitrasign/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/mitrasign/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/mitrasign/internal/server/repositories/signatures"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// --- signatures ---

type fakeSignatures struct {
	mu       sync.Mutex
	rows     map[string]*models.Signature
	clock    time.Time
	getCalls int

	createErr error
	getErr    error
	deleteErr error
	countErr  error
}

func newFakeSignatures() *fakeSignatures {
	return &fakeSignatures{rows: map[string]*models.Signature{}, clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeSignatures) Create(_ context.Context, s *models.Signature) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, dup := f.rows[s.ID]; dup {
		return errBoom{}
	}
	f.clock = f.clock.Add(time.Minute)
	s.CreatedAt = f.clock
	cp := *s
	cp.State = models.StateIssued
	f.rows[s.ID] = &cp
	return nil
}

func (f *fakeSignatures) Get(_ context.Context, id string) (*models.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSignatures) ListByCreator(_ context.Context, creatorID string) ([]*models.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Signature, 0)
	for _, s := range f.rows {
		if s.CreatedBy == creatorID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeSignatures) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.rows[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeSignatures) Count(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	return int64(len(f.rows)), nil
}

func (f *fakeSignatures) CountByDateSigned(_ context.Context, date string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, s := range f.rows {
		if s.DateSigned == date {
			n++
		}
	}
	return n, nil
}

func (f *fakeSignatures) CountByCreator(context.Context) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]int64{}
	for _, s := range f.rows {
		out[s.CreatedBy]++
	}
	return out, nil
}

// --- profiles ---

type fakeProfiles struct {
	mu   sync.Mutex
	rows map[string]*models.Profile
	seq  int

	getErr    error
	createErr error
}

func newFakeProfiles(ps ...*models.Profile) *fakeProfiles {
	f := &fakeProfiles{rows: map[string]*models.Profile{}}
	for _, p := range ps {
		f.rows[p.ID] = p
	}
	return f
}

func (f *fakeProfiles) Create(_ context.Context, p *models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.rows {
		if existing.Email == p.Email {
			return common.ErrorAlreadyExists
		}
	}
	f.seq++
	p.ID = "00000000-0000-4000-8000-00000000000" + string(rune('0'+f.seq))
	p.CreatedAt = time.Now()
	cp := *p
	f.rows[p.ID] = &cp
	return nil
}

func (f *fakeProfiles) GetByID(_ context.Context, id string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) GetByEmail(_ context.Context, email string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, p := range f.rows {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeProfiles) List(context.Context) ([]*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Profile, 0, len(f.rows))
	for _, p := range f.rows {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (f *fakeProfiles) Count(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.rows)), nil
}

// --- refresh tokens ---

type fakeRefreshRepo struct {
	findOut *models.RefreshToken
	findErr error

	delErr error

	createErr error
	created   []string

	purgedFor []string
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID string, token string, expiresAt time.Time) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, userID)
	return nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	return f.delErr
}

func (f *fakeRefreshRepo) DeleteExpired(ctx context.Context, userID string, now time.Time) (int64, error) {
	f.purgedFor = append(f.purgedFor, userID)
	return 0, nil
}

// --- manager ---

type fakeRepoManager struct {
	sig  *fakeSignatures
	prof *fakeProfiles
	rt   *fakeRefreshRepo
}

func newFakeRepoManager(ps ...*models.Profile) *fakeRepoManager {
	return &fakeRepoManager{sig: newFakeSignatures(), prof: newFakeProfiles(ps...), rt: &fakeRefreshRepo{}}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Signatures(dbx.DBTX) signatures.Repository       { return m.sig }
func (m *fakeRepoManager) Profiles(dbx.DBTX) profiles.Repository           { return m.prof }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.rt }

// --- events ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }
