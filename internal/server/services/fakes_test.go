package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/profilekeeper/internal/common"
	"github.com/dmitrijs2005/profilekeeper/internal/dbx"
	"github.com/dmitrijs2005/profilekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/profilekeeper/internal/server/models"
	personsrepo "github.com/dmitrijs2005/profilekeeper/internal/server/repositories/persons"
	usersrepo "github.com/dmitrijs2005/profilekeeper/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newTestMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

// --- users repository fake ---

type fakeUsersRepo struct {
	mu    sync.Mutex
	byID  map[string]*models.User
	err   error
	calls []string
}

func newFakeUsersRepo(users ...*models.User) *fakeUsersRepo {
	f := &fakeUsersRepo{byID: map[string]*models.User{}}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsersRepo) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	if err := f.record("Create"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.UserName == u.UserName {
			return nil, common.ErrorConflict
		}
	}
	u.CreatedAt = time.Now()
	cp := *u
	f.byID[u.ID] = &cp
	return u, nil
}

func (f *fakeUsersRepo) GetByUserName(_ context.Context, name string) (*models.User, error) {
	if err := f.record("GetByUserName"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.UserName == name {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	if err := f.record("GetByID"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) List(context.Context) ([]*models.User, error) {
	if err := f.record("List"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.User, 0, len(f.byID))
	for _, u := range f.byID {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserName < out[j].UserName })
	return out, nil
}

func (f *fakeUsersRepo) Update(_ context.Context, u *models.User) error {
	if err := f.record("Update"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[u.ID]; !ok {
		return common.ErrorNotFound
	}
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsersRepo) Delete(_ context.Context, id string) error {
	if err := f.record("Delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

// --- persons repository fake ---

type fakePersonsRepo struct {
	mu        sync.Mutex
	byID      map[string]*models.Person
	createErr error
	updateErr error
}

func newFakePersonsRepo(persons ...*models.Person) *fakePersonsRepo {
	f := &fakePersonsRepo{byID: map[string]*models.Person{}}
	for _, p := range persons {
		f.byID[p.ID] = clonePerson(p)
	}
	return f
}

func clonePerson(p *models.Person) *models.Person {
	cp := *p
	if p.Address != nil {
		a := *p.Address
		cp.Address = &a
	}
	return &cp
}

func (f *fakePersonsRepo) Create(_ context.Context, p *models.Person) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[p.ID] = clonePerson(p)
	return nil
}

func (f *fakePersonsRepo) GetByID(_ context.Context, id string) (*models.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clonePerson(p), nil
}

func (f *fakePersonsRepo) List(context.Context) ([]*models.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Person, 0, len(f.byID))
	for _, p := range f.byID {
		out = append(out, clonePerson(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePersonsRepo) Update(_ context.Context, p *models.Person) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[p.ID]; !ok {
		return common.ErrorNotFound
	}
	f.byID[p.ID] = clonePerson(p)
	return nil
}

func (f *fakePersonsRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

// --- repository manager fake ---

type fakeRepoManager struct {
	u *fakeUsersRepo
	p *fakePersonsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository          { return m.u }
func (m *fakeRepoManager) Persons(dbx.DBTX) personsrepo.Repository      { return m.p }
