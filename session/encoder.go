package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CurrentSchemaVersion is the envelope layout written by Encode.
const CurrentSchemaVersion = 2

// ErrUnsupportedSchema is returned when a persisted record is newer than this client.
var ErrUnsupportedSchema = errors.New("unsupported user record schema version")

type envelope struct {
	Version int             `json:"v"`
	SavedAt int64           `json:"saved_at,omitempty"`
	User    json.RawMessage `json:"user"`
}

// Encode serializes u into the current persisted layout. The api token is stripped;
// token storage owns the credential.
func Encode(u *User) ([]byte, error) {
	if u == nil {
		return nil, errors.New("nil user")
	}
	clean := u.Clone()
	clean.APIToken = ""

	body, err := json.Marshal(clean)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		Version: CurrentSchemaVersion,
		SavedAt: time.Now().Unix(),
		User:    body,
	})
}

// Decode parses a persisted user record of any supported schema version.
func Decode(data []byte) (*User, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty user record")
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode user record: %w", err)
	}

	body := []byte(env.User)
	switch {
	case env.Version == 0 && len(env.User) == 0:
		// bare object from clients predating the envelope
		body = data
	case env.Version == CurrentSchemaVersion:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchema, env.Version)
	}

	u := &User{}
	if err := json.Unmarshal(body, u); err != nil {
		return nil, fmt.Errorf("decode user record: %w", err)
	}
	return u, nil
}
