package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/profilekeeper/internal/access"
	"github.com/dmitrijs2005/profilekeeper/internal/common"
	"github.com/dmitrijs2005/profilekeeper/internal/logging"
	"github.com/dmitrijs2005/profilekeeper/internal/server/auth"
	"github.com/dmitrijs2005/profilekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/profilekeeper/internal/server/models"
)

const (
	userToken  = "user-token"
	adminToken = "admin-token"
)

var principals = map[string]*auth.Principal{
	userToken:  {UserID: "u-1", Username: "regularuser", Role: access.RoleRegular},
	adminToken: {UserID: "admin", Username: "rootadmin", Role: access.RoleAdmin},
}

type fakeUsers struct {
	register   func(ctx context.Context, username, password string) (*models.User, error)
	login      func(ctx context.Context, username, password string) (string, error)
	logout     func(ctx context.Context, token string) error
	updateSelf func(ctx context.Context, actorID, targetID, username, password string) (*models.User, error)
	deleteUser func(ctx context.Context, actorID string, actorRole access.Role, targetID string) error
	listUsers  func(ctx context.Context, actorRole access.Role) ([]*models.User, error)
	getUser    func(ctx context.Context, actorRole access.Role, id string) (*models.User, error)
}

func (f *fakeUsers) Register(ctx context.Context, username, password string) (*models.User, error) {
	return f.register(ctx, username, password)
}

func (f *fakeUsers) Login(ctx context.Context, username, password string) (string, error) {
	return f.login(ctx, username, password)
}

func (f *fakeUsers) Logout(ctx context.Context, token string) error {
	return f.logout(ctx, token)
}

func (f *fakeUsers) Authenticate(_ context.Context, token string) (*auth.Principal, error) {
	if token == "revoked" {
		return nil, common.ErrorTokenRevoked
	}
	p, ok := principals[token]
	if !ok {
		return nil, fmt.Errorf("%w: bad signature", common.ErrorInvalidToken)
	}
	return p, nil
}

func (f *fakeUsers) UpdateSelf(ctx context.Context, actorID, targetID, username, password string) (*models.User, error) {
	return f.updateSelf(ctx, actorID, targetID, username, password)
}

func (f *fakeUsers) DeleteUser(ctx context.Context, actorID string, actorRole access.Role, targetID string) error {
	return f.deleteUser(ctx, actorID, actorRole, targetID)
}

func (f *fakeUsers) ListUsers(ctx context.Context, actorRole access.Role) ([]*models.User, error) {
	return f.listUsers(ctx, actorRole)
}

func (f *fakeUsers) GetUser(ctx context.Context, actorRole access.Role, id string) (*models.User, error) {
	return f.getUser(ctx, actorRole, id)
}

type fakePersons struct {
	create func(ctx context.Context, ownerID string, in models.PersonInput) (*models.Person, error)
	get    func(ctx context.Context, id string) (*models.Person, error)
	list   func(ctx context.Context) ([]*models.Person, error)
	update func(ctx context.Context, actorID, id string, patch models.PersonPatch) (*models.Person, error)
	delete func(ctx context.Context, actorID, id string) error
	photo  func(ctx context.Context, id string) ([]byte, error)
}

func (f *fakePersons) Create(ctx context.Context, ownerID string, in models.PersonInput) (*models.Person, error) {
	return f.create(ctx, ownerID, in)
}

func (f *fakePersons) Get(ctx context.Context, id string) (*models.Person, error) {
	return f.get(ctx, id)
}

func (f *fakePersons) List(ctx context.Context) ([]*models.Person, error) {
	return f.list(ctx)
}

func (f *fakePersons) Update(ctx context.Context, actorID, id string, patch models.PersonPatch) (*models.Person, error) {
	return f.update(ctx, actorID, id, patch)
}

func (f *fakePersons) Delete(ctx context.Context, actorID, id string) error {
	return f.delete(ctx, actorID, id)
}

func (f *fakePersons) Photo(ctx context.Context, id string) ([]byte, error) {
	return f.photo(ctx, id)
}

type testServer struct {
	*Server
	registry *prometheus.Registry
	handler  http.Handler
}

func newTestServer(us *fakeUsers, ps *fakePersons) *testServer {
	if us == nil {
		us = &fakeUsers{}
	}
	if ps == nil {
		ps = &fakePersons{}
	}
	reg := prometheus.NewRegistry()
	s := NewServer(":0", us, ps, metrics.New(reg), reg, logging.Discard())
	return &testServer{Server: s, registry: reg, handler: s.Router()}
}

func (ts *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}
