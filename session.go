package goGate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrEthical07/goGate/api"
	"github.com/MrEthical07/goGate/jwt"
	"github.com/MrEthical07/goGate/permission"
	"github.com/MrEthical07/goGate/router"
	"github.com/MrEthical07/goGate/session"
	"github.com/MrEthical07/goGate/storage"
)

// rootPath is where a completed logout sends the browser.
const rootPath = "/"

// AuthAPI is the remote authentication service. [*api.Client] implements it.
type AuthAPI interface {
	Login(ctx context.Context, creds session.Credentials) (*api.AuthResponse, error)
	Logout(ctx context.Context, token string) error
	VerifyToken(ctx context.Context, token string) (*api.AuthResponse, error)
}

// Session defines a public type used by goGate APIs.
//
// Session is the single owned authentication record of a client. All methods are safe for
// concurrent use; overlapping operations race and the last one to resolve wins.
type Session struct {
	cfg     SessionConfig
	api     AuthAPI
	tokens  storage.TokenStorage
	users   storage.UserStorage
	locator router.Locator
	logger  *slog.Logger
	metrics *Metrics
	audit   *auditDispatcher
	now     func() time.Time

	mu     sync.Mutex
	state  session.State
	perms  permission.Set
	closed bool

	lifetime context.Context
	stop     context.CancelFunc
	wg       sync.WaitGroup
}

type sessionDeps struct {
	api     AuthAPI
	tokens  storage.TokenStorage
	locator router.Locator
	logger  *slog.Logger
	metrics *Metrics
	audit   *auditDispatcher
	now     func() time.Time
}

func newSession(cfg SessionConfig, deps sessionDeps) *Session {
	if deps.tokens == nil {
		deps.tokens = storage.NewMemory()
	}
	if deps.locator == nil {
		deps.locator = router.NopLocator{}
	}
	if deps.logger == nil {
		deps.logger = slog.New(slog.DiscardHandler)
	}
	if deps.now == nil {
		deps.now = time.Now
	}

	lifetime, stop := context.WithCancel(context.Background())
	s := &Session{
		cfg:      cfg,
		api:      deps.api,
		tokens:   deps.tokens,
		locator:  deps.locator,
		logger:   deps.logger,
		metrics:  deps.metrics,
		audit:    deps.audit,
		now:      deps.now,
		state:    session.State{Errors: session.FieldErrors{}},
		lifetime: lifetime,
		stop:     stop,
	}
	if us, ok := deps.tokens.(storage.UserStorage); ok && cfg.PersistUser {
		s.users = us
	}
	return s
}

// restore loads the persisted token and, when the storage keeps one, the persisted user
// record. The session is authenticated only when both load.
func (s *Session) restore(ctx context.Context) {
	token, ok, err := s.tokens.Get(ctx)
	if err != nil {
		s.storageFailed("load token", err)
		return
	}
	if !ok || token == "" {
		return
	}

	var user *session.User
	if s.users != nil {
		user = s.loadUser(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Token = token
	s.state.TokenExpiresAt = tokenExpiry(token)
	if user == nil {
		s.logger.Debug("restored token without user record; awaiting verification")
		return
	}
	user.APIToken = token
	s.state.User = user
	s.state.Authenticated = true
	s.perms = permission.NewSet(user.Permissions)

	s.metrics.Inc(MetricSessionRestored)
	s.emit(ctx, AuditEvent{EventType: AuditSessionRestored, UserID: user.ID, Email: user.Email, Success: true})
	s.logger.Info("session restored", "user_id", user.ID)
}

func (s *Session) loadUser(ctx context.Context) *session.User {
	raw, ok, err := s.users.LoadUser(ctx)
	if err != nil {
		s.storageFailed("load user", err)
		return nil
	}
	if !ok {
		return nil
	}
	user, err := session.Decode(raw)
	if err != nil {
		s.logger.Warn("discarding unreadable user record", "error", err)
		if err := s.users.DestroyUser(ctx); err != nil {
			s.storageFailed("destroy user", err)
		}
		return nil
	}
	return user
}

/*
====================================
LOGIN
====================================
*/

// Login describes the login operation and its observable behavior.
//
// Login clears recorded errors, exchanges creds with the Auth API and, on success, stores
// and persists the new token and user. On failure the previous session is left untouched,
// the normalized field errors are recorded and an error wrapping [ErrLoginFailed] is
// returned.
func (s *Session) Login(ctx context.Context, creds session.Credentials) (*session.User, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	s.state.Errors = session.FieldErrors{}
	s.mu.Unlock()

	resp, err := s.api.Login(ctx, creds)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}

	if err != nil {
		s.state.Errors = api.FieldErrorsOf(err)
		s.metrics.Inc(MetricLoginFailure)
		s.emit(ctx, AuditEvent{EventType: AuditLogin, Email: creds.Email, Success: false, Error: err.Error()})
		s.logger.Info("login rejected", "email", creds.Email, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	s.setAuthLocked(ctx, resp)
	s.metrics.Inc(MetricLoginSuccess)
	s.emit(ctx, AuditEvent{EventType: AuditLogin, UserID: resp.User.ID, Email: resp.User.Email, Success: true})
	s.logger.Info("logged in", "user_id", resp.User.ID)
	return s.state.User.Clone(), nil
}

/*
====================================
VERIFY
====================================
*/

// VerifyAuth describes the verifyauth operation and its observable behavior.
//
// VerifyAuth synchronously hides the session-expired modal. Without a token it purges and
// never contacts the network. With a token it starts the verify call in the background and
// returns a channel closed once the outcome has been applied.
func (s *Session) VerifyAuth(ctx context.Context) <-chan struct{} {
	_, done := s.verifyAsync(ctx)
	return done
}

// Verify is the awaited form of [Session.VerifyAuth]. It returns [ErrNoToken],
// [ErrTokenExpired] or an error wrapping [ErrVerificationFailed] when the session ended.
func (s *Session) Verify(ctx context.Context) error {
	_, err := s.verifySync(ctx)
	return err
}

// verifyAsync returns the snapshot taken right after the synchronous part of the
// verification, before any network call.
func (s *Session) verifyAsync(ctx context.Context) (session.State, <-chan struct{}) {
	done := make(chan struct{})
	token, snap, err := s.beginVerify(ctx, true)
	if err != nil {
		close(done)
		return snap, done
	}

	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stopAfter := context.AfterFunc(s.lifetime, cancel)
	go func() {
		defer s.wg.Done()
		defer close(done)
		defer stopAfter()
		defer cancel()
		_, _ = s.completeVerify(bg, token)
	}()
	return snap, done
}

// verifySync returns the snapshot taken when the outcome was applied.
func (s *Session) verifySync(ctx context.Context) (session.State, error) {
	token, snap, err := s.beginVerify(ctx, false)
	if err != nil {
		return snap, err
	}
	return s.completeVerify(ctx, token)
}

func (s *Session) beginVerify(ctx context.Context, background bool) (string, session.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", s.snapshotLocked(), ErrSessionClosed
	}
	s.state.SessionExpiredModalVisible = false

	token := s.state.Token
	if token == "" {
		s.purgeLocked(ctx)
		s.metrics.Inc(MetricVerifyNoToken)
		return "", s.snapshotLocked(), ErrNoToken
	}

	if s.cfg.RejectExpiredTokens {
		if claims, err := jwt.Inspect(token); err == nil && claims.Expired(s.now(), s.cfg.ExpiryLeeway) {
			s.metrics.Inc(MetricTokenExpiredLocal)
			s.failVerifyLocked(ctx, session.FieldErrors{"api_token": {"The session has expired."}}, ErrTokenExpired)
			return "", s.snapshotLocked(), ErrTokenExpired
		}
	}

	if background {
		s.wg.Add(1)
	}
	return token, s.snapshotLocked(), nil
}

func (s *Session) completeVerify(ctx context.Context, token string) (session.State, error) {
	start := s.now()
	resp, err := s.api.VerifyToken(ctx, token)
	s.metrics.Observe(MetricVerifyLatency, s.now().Sub(start))

	s.mu.Lock()
	defer s.mu.Unlock()

	// a closed session or a canceled call leaves the record untouched
	if s.closed {
		return s.snapshotLocked(), ErrSessionClosed
	}
	if errors.Is(err, context.Canceled) {
		return s.snapshotLocked(), err
	}

	if err != nil {
		s.failVerifyLocked(ctx, api.FieldErrorsOf(err), err)
		return s.snapshotLocked(), fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}

	s.setAuthLocked(ctx, resp)
	s.metrics.Inc(MetricVerifySuccess)
	s.emit(ctx, AuditEvent{EventType: AuditVerify, UserID: resp.User.ID, Email: resp.User.Email, Success: true})
	return s.snapshotLocked(), nil
}

func (s *Session) failVerifyLocked(ctx context.Context, errs session.FieldErrors, cause error) {
	userID := int64(0)
	if s.state.User != nil {
		userID = s.state.User.ID
	}

	s.purgeLocked(ctx)
	s.state.Errors = errs.Clone()
	s.state.SessionExpiredModalVisible = true

	s.metrics.Inc(MetricVerifyFailure)
	s.emit(ctx, AuditEvent{EventType: AuditSessionExpired, UserID: userID, Success: false, Error: cause.Error()})
	s.logger.Info("session expired", "user_id", userID, "error", cause)
}

/*
====================================
LOGOUT / PURGE
====================================
*/

// Logout describes the logout operation and its observable behavior.
//
// Logout calls the logout endpoint when a token is held and purges local state whether or
// not the call succeeded; a failed call leaves its normalized errors recorded after the
// purge. Unless isLoginFlow is set it then sends the browser to "/" through the Locator.
// Without a token it only purges: no call, no navigation.
func (s *Session) Logout(ctx context.Context, isLoginFlow bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	token := s.state.Token
	var userID int64
	if s.state.User != nil {
		userID = s.state.User.ID
	}
	s.mu.Unlock()

	var callErr error
	if token != "" {
		callErr = s.api.Logout(ctx, token)
	}

	s.mu.Lock()
	s.purgeLocked(ctx)
	if token != "" {
		ev := AuditEvent{EventType: AuditLogout, UserID: userID, Success: callErr == nil}
		if callErr != nil {
			s.state.Errors = api.FieldErrorsOf(callErr)
			s.metrics.Inc(MetricLogoutFailure)
			ev.Error = callErr.Error()
			s.logger.Warn("logout call failed; local session purged", "user_id", userID, "error", callErr)
		} else {
			s.metrics.Inc(MetricLogout)
			s.logger.Info("logged out", "user_id", userID)
		}
		s.emit(ctx, ev)
	}
	s.mu.Unlock()

	if token != "" && !isLoginFlow {
		s.locator.Assign(rootPath)
	}
}

// PurgeAuth clears token, user and errors and destroys the persisted credential.
// It is synchronous and idempotent; modal flags are left as they are.
func (s *Session) PurgeAuth(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(ctx)
}

func (s *Session) purgeLocked(ctx context.Context) {
	s.state.Token = ""
	s.state.User = nil
	s.state.Authenticated = false
	s.state.Errors = session.FieldErrors{}
	s.state.TokenExpiresAt = time.Time{}
	s.perms = permission.Set{}

	pctx := context.WithoutCancel(ctx)
	if err := s.tokens.Destroy(pctx); err != nil {
		s.storageFailed("destroy token", err)
	}
	if s.users != nil {
		if err := s.users.DestroyUser(pctx); err != nil {
			s.storageFailed("destroy user", err)
		}
	}
	s.metrics.Inc(MetricSessionPurged)
}

func (s *Session) setAuthLocked(ctx context.Context, resp *api.AuthResponse) {
	user := resp.User.Clone()
	user.APIToken = resp.Token

	s.state.Token = resp.Token
	s.state.User = user
	s.state.Authenticated = true
	s.state.Errors = session.FieldErrors{}
	s.state.TokenExpiresAt = tokenExpiry(resp.Token)
	s.perms = permission.NewSet(user.Permissions)

	pctx := context.WithoutCancel(ctx)
	if err := s.tokens.Save(pctx, resp.Token); err != nil {
		s.storageFailed("save token", err)
	}
	if s.users == nil {
		return
	}
	record, err := session.Encode(user)
	if err != nil {
		s.logger.Warn("encode user record", "error", err)
		return
	}
	if err := s.users.SaveUser(pctx, record); err != nil {
		s.storageFailed("save user", err)
	}
}

/*
====================================
UI SIGNALS / READS
====================================
*/

// ShowPasswordModal raises the forced password-creation prompt.
func (s *Session) ShowPasswordModal() { s.setFlag(&s.state.PasswordModalVisible, true) }

// HidePasswordModal clears the password-creation prompt.
func (s *Session) HidePasswordModal() { s.setFlag(&s.state.PasswordModalVisible, false) }

// ShowSessionExpiredModal raises the session-expired signal.
func (s *Session) ShowSessionExpiredModal() { s.setFlag(&s.state.SessionExpiredModalVisible, true) }

// HideSessionExpiredModal clears the session-expired signal.
func (s *Session) HideSessionExpiredModal() { s.setFlag(&s.state.SessionExpiredModalVisible, false) }

func (s *Session) setFlag(flag *bool, v bool) {
	s.mu.Lock()
	*flag = v
	s.mu.Unlock()
}

// SetError replaces the recorded field errors with a copy of errs.
func (s *Session) SetError(errs session.FieldErrors) {
	s.mu.Lock()
	s.state.Errors = errs.Clone()
	s.mu.Unlock()
}

// Errors returns a copy of the recorded field errors.
func (s *Session) Errors() session.FieldErrors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Errors.Clone()
}

// State returns an immutable snapshot of the session.
func (s *Session) State() session.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Can reports whether the authenticated user holds permission exactly.
func (s *Session) Can(perm string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perms.Can(perm)
}

// HasMenuAccess reports whether any of required is granted, directly or through a
// wildcard grant. A required "*" always passes, even without a session.
func (s *Session) HasMenuAccess(required ...string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perms.HasMenuAccess(required...)
}

// Token returns the held credential, or "" when none is held.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Token
}

// Close stops background verification and waits for in-flight calls to return. Their
// outcomes are discarded. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.stop()
	s.wg.Wait()
}

func (s *Session) snapshotLocked() session.State {
	st := s.state
	st.User = s.state.User.Clone()
	st.Errors = s.state.Errors.Clone()
	return st
}

func (s *Session) storageFailed(op string, err error) {
	s.metrics.Inc(MetricStorageFailure)
	s.logger.Warn("token storage: "+op, "error", err)
}

func (s *Session) emit(ctx context.Context, event AuditEvent) {
	if s.audit == nil {
		return
	}
	if id := api.RequestIDFromContext(ctx); id != "" {
		event.RequestID = id
	}
	s.audit.Emit(context.WithoutCancel(ctx), event)
}

func tokenExpiry(token string) time.Time {
	claims, err := jwt.Inspect(token)
	if err != nil {
		return time.Time{}
	}
	return claims.ExpiresAtTime()
}
