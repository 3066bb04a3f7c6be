package goGate

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goGate/api"
	"github.com/MrEthical07/goGate/router"
	"github.com/MrEthical07/goGate/session"
	"github.com/MrEthical07/goGate/storage"
)

type fakeAuth struct {
	mu sync.Mutex

	user      *session.User
	token     string
	loginErr  error
	verifyErr error
	logoutErr error

	// verifyGate, when set, holds VerifyToken until closed or ctx is done.
	verifyGate chan struct{}

	loginCalls  int
	verifyCalls int
	logoutCalls int
}

func newFakeAuth(user *session.User) *fakeAuth {
	return &fakeAuth{user: user, token: "tok-1"}
}

func (f *fakeAuth) Login(context.Context, session.Credentials) (*api.AuthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &api.AuthResponse{User: f.user.Clone(), Token: f.token}, nil
}

func (f *fakeAuth) Logout(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeAuth) VerifyToken(ctx context.Context, token string) (*api.AuthResponse, error) {
	f.mu.Lock()
	f.verifyCalls++
	gate := f.verifyGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, &api.NetworkError{Op: "verify_token", Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &api.AuthResponse{User: f.user.Clone(), Token: token}, nil
}

func (f *fakeAuth) set(fn func(*fakeAuth)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeAuth) calls() (login, verify, logout int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls, f.verifyCalls, f.logoutCalls
}

func unauthorized(op string) error {
	return &api.APIError{
		Op:     op,
		Status: http.StatusUnauthorized,
		Errors: session.FieldErrors{"api_token": {"Invalid token."}},
	}
}

func verifiedAt() *session.Timestamp {
	return &session.Timestamp{Time: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func adminUser() *session.User {
	return &session.User{
		ID:               1,
		Name:             "Ana",
		Email:            "ana@wms.test",
		EmailVerifiedAt:  verifiedAt(),
		IsWarehouseAdmin: true,
		HasProduction:    true,
		Permissions:      []string{"view.rfid.*", "edit.readers"},
	}
}

func operatorUser() *session.User {
	return &session.User{
		ID:                  2,
		Email:               "op@wms.test",
		EmailVerifiedAt:     verifiedAt(),
		IsWarehouseOperator: true,
	}
}

type recordingViewport struct {
	mu      sync.Mutex
	titles  []string
	scrolls int
}

func (v *recordingViewport) SetTitle(title string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.titles = append(v.titles, title)
}

func (v *recordingViewport) ScrollToTop(bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scrolls++
}

func (v *recordingViewport) lastTitle() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.titles) == 0 {
		return ""
	}
	return v.titles[len(v.titles)-1]
}

type recordingLocator struct {
	mu    sync.Mutex
	paths []string
}

func (l *recordingLocator) Assign(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths = append(l.paths, path)
}

func (l *recordingLocator) assigned() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.paths...)
}

type testEngine struct {
	*Engine
	auth     *fakeAuth
	tokens   *storage.Memory
	viewport *recordingViewport
	locator  *recordingLocator
}

func newTestEngine(t *testing.T, auth *fakeAuth, mutate func(*Config)) *testEngine {
	t.Helper()
	return newTestEngineWithStorage(t, auth, storage.NewMemory(), mutate)
}

func newTestEngineWithStorage(t *testing.T, auth *fakeAuth, tokens *storage.Memory, mutate func(*Config)) *testEngine {
	t.Helper()

	cfg := DefaultConfig()
	cfg.AppName = "WMS Test"
	if mutate != nil {
		mutate(&cfg)
	}

	te := &testEngine{
		auth:     auth,
		tokens:   tokens,
		viewport: &recordingViewport{},
		locator:  &recordingLocator{},
	}
	engine, err := New().
		WithConfig(cfg).
		WithAuthAPI(auth).
		WithTokenStorage(tokens).
		WithViewport(te.viewport).
		WithLocator(te.locator).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })
	te.Engine = engine
	return te
}

func (te *testEngine) login(t *testing.T) {
	t.Helper()
	if _, err := te.Session().Login(context.Background(), session.Credentials{Email: "ana@wms.test", Password: "secret"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}
}

func (te *testEngine) route(t *testing.T, name string) *router.Route {
	t.Helper()
	r, err := te.table.ResolveName(name, nil)
	if err != nil {
		t.Fatalf("ResolveName(%q): %v", name, err)
	}
	return r
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for verification")
	}
}

func assertInvariant(t *testing.T, st session.State) {
	t.Helper()
	if (st.User != nil) != st.Authenticated {
		t.Errorf("invariant broken: user=%v authenticated=%v", st.User != nil, st.Authenticated)
	}
}
