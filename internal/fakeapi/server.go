package fakeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goGate/internal/rate"
	"github.com/MrEthical07/goGate/jwt"
	"github.com/MrEthical07/goGate/session"
	"github.com/gorilla/mux"
)

// Config defines a public type used by goGate APIs.
type Config struct {
	// Secret signs api tokens with HS256.
	Secret   []byte
	TokenTTL time.Duration
	Issuer   string
	Hash     HashParams
	Logger   *slog.Logger
	Fixtures Fixtures
	// Limiter throttles failed logins. Nil disables throttling.
	Limiter *rate.Limiter
}

type account struct {
	user session.User
	hash string
}

// Server is the fake API. It is safe for concurrent use.
type Server struct {
	router *mux.Router
	tokens *jwt.Manager
	hash    HashParams
	logger  *slog.Logger
	limiter *rate.Limiter

	mu       sync.RWMutex
	accounts map[int64]*account
	byEmail  map[string]int64
	revoked  map[string]struct{}
	nextID   int64
	fixtures Fixtures
}

// New describes the new operation and its observable behavior.
//
// New may return an error when the token signer or hash parameters are invalid.
func New(cfg Config) (*Server, error) {
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 2 * time.Hour
	}
	if cfg.Hash == (HashParams{}) {
		cfg.Hash = DefaultHashParams()
	}
	if err := cfg.Hash.validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	tokens, err := jwt.NewManager(jwt.Config{Secret: cfg.Secret, TTL: cfg.TokenTTL, Issuer: cfg.Issuer})
	if err != nil {
		return nil, err
	}

	s := &Server{
		tokens:   tokens,
		hash:     cfg.Hash,
		logger:   cfg.Logger,
		limiter:  cfg.Limiter,
		accounts: map[int64]*account{},
		byEmail:  map[string]int64{},
		revoked:  map[string]struct{}{},
		fixtures: cfg.Fixtures.withDefaults(),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	a := r.PathPrefix("/api").Subrouter()
	a.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)

	authed := a.NewRoute().Subrouter()
	authed.Use(s.requireToken)
	authed.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	authed.HandleFunc("/verify_token", s.handleVerify).Methods(http.MethodPost)
	authed.HandleFunc("/deliveries/get-age-range", s.handleAgeRange).Methods(http.MethodPost)
	authed.HandleFunc("/deliveries/get-open-quantity", s.handleOpenQuantity).Methods(http.MethodPost)
	authed.HandleFunc("/inventories/get-available-commodities-sap", s.handleStocks(false)).Methods(http.MethodPost)
	authed.HandleFunc("/inventories/get-other-commodities-sap", s.handleStocks(true)).Methods(http.MethodPost)
	authed.HandleFunc("/batch-picking/get-details", s.handleHeaderDetails).Methods(http.MethodGet)
	authed.HandleFunc("/pallet-registration/get-list", s.handlePalletList).Methods(http.MethodPost)
	authed.HandleFunc("/pallet-registration/get-by-tid", s.handlePalletByTID).Methods(http.MethodPost)

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// AddUser registers u with password and returns the stored record with its assigned id.
// The email must be unique.
func (s *Server) AddUser(u session.User, password string) (session.User, error) {
	hash, err := hashPassword(s.hash, password)
	if err != nil {
		return session.User{}, err
	}
	email := normalizeEmail(u.Email)
	if email == "" {
		return session.User{}, errors.New("email required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return session.User{}, errors.New("email already registered")
	}
	s.nextID++
	u.ID = s.nextID
	u.APIToken = ""
	s.accounts[u.ID] = &account{user: *u.Clone(), hash: hash}
	s.byEmail[email] = u.ID
	return u, nil
}

// UpdateUser applies fn to the stored record of id, so tests can change capabilities
// between verifications.
func (s *Server) UpdateUser(id int64, fn func(*session.User)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return false
	}
	fn(&acc.user)
	acc.user.ID = id
	return true
}

// Issue signs a token for the user id without a password, for fixtures.
func (s *Server) Issue(id int64) (string, error) {
	s.mu.RLock()
	acc, ok := s.accounts[id]
	s.mu.RUnlock()
	if !ok {
		return "", errors.New("unknown user")
	}
	return s.tokens.Issue(strconv.FormatInt(id, 10), acc.user.Email)
}

/*
====================================
AUTH HANDLERS
====================================
*/

type authBody struct {
	User  *session.User `json:"user"`
	Token string        `json:"api_token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds session.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body.", nil)
		return
	}
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "The given data was invalid.", session.FieldErrors{
			"email": {"The email field is required."},
		})
		return
	}

	ctx, ip := r.Context(), clientIP(r)
	if s.limiter != nil {
		if err := s.limiter.Check(ctx, creds.Email, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				wait := int(s.limiter.RetryAfter(ctx, creds.Email).Seconds())
				w.Header().Set("Retry-After", strconv.Itoa(wait))
				writeError(w, http.StatusTooManyRequests, "Too Many Attempts.", session.FieldErrors{
					"email": {fmt.Sprintf("Too many login attempts. Please try again in %d seconds.", wait)},
				})
				return
			}
			s.logger.Warn("login throttle unavailable", "error", err)
		}
	}

	s.mu.RLock()
	acc := s.accounts[s.byEmail[normalizeEmail(creds.Email)]]
	s.mu.RUnlock()

	ok := false
	if acc != nil {
		var err error
		ok, err = verifyPassword(creds.Password, acc.hash)
		if err != nil {
			s.logger.Error("stored hash unreadable", "user_id", acc.user.ID, "error", err)
		}
	}
	if !ok {
		s.throttle(ctx, s.limiter.Fail, creds.Email, ip)
		writeError(w, http.StatusUnprocessableEntity, "The given data was invalid.", badCredentials())
		return
	}
	s.throttle(ctx, s.limiter.Reset, creds.Email, ip)

	token, err := s.tokens.Issue(strconv.FormatInt(acc.user.ID, 10), acc.user.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token issue failed", nil)
		return
	}
	user := s.snapshot(acc.user.ID)
	writeJSON(w, http.StatusOK, authBody{User: user, Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r.Context())
	s.mu.Lock()
	s.revoked[caller.token] = struct{}{}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out."})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r.Context())
	writeJSON(w, http.StatusOK, authBody{User: s.snapshot(caller.userID), Token: caller.token})
}

func (s *Server) snapshot(id int64) *session.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil
	}
	return acc.user.Clone()
}

// throttle runs a limiter update; counter failures only log.
func (s *Server) throttle(ctx context.Context, op func(context.Context, string, string) error, email, ip string) {
	if s.limiter == nil {
		return
	}
	if err := op(ctx, email, ip); err != nil {
		s.logger.Warn("login throttle unavailable", "error", err)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func badCredentials() session.FieldErrors {
	return session.FieldErrors{"email": {"These credentials do not match our records."}}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

/*
====================================
RESPONSES
====================================
*/

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, errs session.FieldErrors) {
	body := map[string]any{"message": message}
	if len(errs) > 0 {
		body["errors"] = errs
	}
	writeJSON(w, status, body)
}
