package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const laravelDateTime = "2006-01-02 15:04:05"

// Timestamp is a nullable API timestamp. It accepts RFC 3339 and the plain
// "2006-01-02 15:04:05" layout some API resources still emit.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == `""` {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err := time.Parse(laravelDateTime, s)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}

// User is the authenticated user record returned by /login and /verify_token.
type User struct {
	ID                  int64      `json:"id"`
	Name                string     `json:"name,omitempty"`
	Surname             string     `json:"surname,omitempty"`
	Email               string     `json:"email"`
	EmailVerifiedAt     *Timestamp `json:"email_verified_at"`
	IsSuperAdmin        bool       `json:"is_super_admin"`
	IsWarehouseAdmin    bool       `json:"is_warehouse_admin"`
	IsWarehouseOperator bool       `json:"is_warehouse_operator"`
	HasProduction       bool       `json:"has_production"`
	Permissions         []string   `json:"permissions,omitempty"`
	APIToken            string     `json:"api_token,omitempty"`
}

// EmailVerified reports whether the user has completed credential setup.
func (u *User) EmailVerified() bool {
	return u != nil && u.EmailVerifiedAt != nil && !u.EmailVerifiedAt.IsZero()
}

// OperatorRestricted reports whether the user may only use the operator screen:
// a warehouse operator holding neither admin capability.
func (u *User) OperatorRestricted() bool {
	if u == nil {
		return false
	}
	return u.IsWarehouseOperator && !u.IsSuperAdmin && !u.IsWarehouseAdmin
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	if u.EmailVerifiedAt != nil {
		ts := *u.EmailVerifiedAt
		out.EmailVerifiedAt = &ts
	}
	if u.Permissions != nil {
		out.Permissions = append([]string(nil), u.Permissions...)
	}
	return &out
}

// Credentials is the body posted to /login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// FieldErrors maps a form field to its validation messages.
type FieldErrors map[string][]string

// Clone returns a deep copy of e. A nil receiver yields an empty, non-nil map.
func (e FieldErrors) Clone() FieldErrors {
	out := make(FieldErrors, len(e))
	for field, msgs := range e {
		out[field] = append([]string(nil), msgs...)
	}
	return out
}

// First returns the first message recorded for field.
func (e FieldErrors) First(field string) string {
	msgs := e[field]
	if len(msgs) == 0 {
		return ""
	}
	return msgs[0]
}

// Empty reports whether no field carries a message.
func (e FieldErrors) Empty() bool {
	for _, msgs := range e {
		if len(msgs) > 0 {
			return false
		}
	}
	return true
}

// Phase is the session state derived from authentication status and user flags.
// It is computed from a [State], never stored.
type Phase uint8

const (
	// Anonymous is a session without a verified user.
	Anonymous Phase = iota
	// AuthenticatedUnverifiedEmail is a user that still has to create a password.
	AuthenticatedUnverifiedEmail
	// AuthenticatedOperatorRestricted is an operator confined to the operator screen.
	AuthenticatedOperatorRestricted
	// AuthenticatedFull is an unrestricted, verified user.
	AuthenticatedFull
)

func (p Phase) String() string {
	switch p {
	case Anonymous:
		return "anonymous"
	case AuthenticatedUnverifiedEmail:
		return "authenticated_unverified_email"
	case AuthenticatedOperatorRestricted:
		return "authenticated_operator_restricted"
	case AuthenticatedFull:
		return "authenticated_full"
	default:
		return "unknown"
	}
}

// State is an immutable snapshot of a client session.
//
// User is non-nil if and only if Authenticated is true.
type State struct {
	Token                      string
	User                       *User
	Authenticated              bool
	PasswordModalVisible       bool
	SessionExpiredModalVisible bool
	Errors                     FieldErrors
	TokenExpiresAt             time.Time
}

// HasToken reports whether a credential is held.
func (s State) HasToken() bool {
	return s.Token != ""
}

// Phase derives the session phase. Operator restriction takes precedence over the
// unverified-email prompt, matching the order the navigation guard applies them.
func (s State) Phase() Phase {
	if !s.Authenticated || s.User == nil {
		return Anonymous
	}
	if s.User.OperatorRestricted() {
		return AuthenticatedOperatorRestricted
	}
	if !s.User.EmailVerified() {
		return AuthenticatedUnverifiedEmail
	}
	return AuthenticatedFull
}
