package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/MrEthical07/goGate/session"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/api"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestLoginWrappedResponse(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("login must not send a bearer token")
		}
		if r.Header.Get(headerRequestID) == "" {
			t.Error("expected request id header")
		}
		var creds session.Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if creds.Email != "op@example.com" {
			t.Errorf("unexpected email %q", creds.Email)
		}
		_, _ = w.Write([]byte(`{"user":{"id":1,"email":"op@example.com","is_warehouse_operator":true},"api_token":"tok-1"}`))
	}))

	resp, err := c.Login(context.Background(), session.Credentials{Email: "op@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Token != "tok-1" || resp.User.APIToken != "tok-1" {
		t.Fatalf("unexpected token %q / %q", resp.Token, resp.User.APIToken)
	}
	if !resp.User.IsWarehouseOperator {
		t.Fatal("expected operator flag")
	}
}

func TestLoginBareUserResponse(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":2,"email":"admin@example.com","api_token":"tok-2","is_super_admin":true}`))
	}))

	resp, err := c.Login(context.Background(), session.Credentials{Email: "admin@example.com"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Token != "tok-2" || resp.User.ID != 2 || !resp.User.IsSuperAdmin {
		t.Fatalf("unexpected response %+v / %+v", resp, resp.User)
	}
}

func TestLoginMissingTokenIsInvalid(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"id":2}}`))
	}))

	if _, err := c.Login(context.Background(), session.Credentials{}); !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestValidationErrorsNormalize(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"The given data was invalid.","errors":{"email":["The email field is required."]}}`))
	}))

	_, err := c.Login(context.Background(), session.Credentials{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T %v", err, err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status %d", apiErr.Status)
	}

	fe := FieldErrorsOf(err)
	if fe.First("email") != "The email field is required." {
		t.Fatalf("unexpected field errors %v", fe)
	}
	if _, ok := fe["message"]; ok {
		t.Fatal("message must not be added when field errors exist")
	}
}

func TestMessageOnlyErrorFoldsIntoMessageField(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Unauthenticated."}`))
	}))

	_, err := c.VerifyToken(context.Background(), "stale")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.Unauthorized() {
		t.Fatalf("expected unauthorized APIError, got %v", err)
	}
	if got := FieldErrorsOf(err).First("message"); got != "Unauthenticated." {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestNetworkErrorNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: base})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	err = c.Logout(context.Background(), "tok")
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected *NetworkError, got %T %v", err, err)
	}
	if _, ok := FieldErrorsOf(err)["network"]; !ok {
		t.Fatalf("expected network field, got %v", FieldErrorsOf(err))
	}
	if FieldErrorsOf(nil) != nil {
		t.Fatal("nil error must normalize to nil")
	}
}

func TestVerifyTokenSendsBearerAndBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/verify_token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-3" {
			t.Errorf("unexpected authorization %q", got)
		}
		var body tokenBody
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.APIToken != "tok-3" {
			t.Errorf("unexpected body token %q", body.APIToken)
		}
		_, _ = w.Write([]byte(`{"user":{"id":3,"email":"x@example.com"}}`))
	}))

	resp, err := c.VerifyToken(context.Background(), "tok-3")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if resp.Token != "tok-3" || resp.User.APIToken != "tok-3" {
		t.Fatalf("expected presented token to be kept, got %q", resp.Token)
	}
}

func TestRequestIDFromContextIsForwarded(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get(headerRequestID); got != "req-42" {
			t.Errorf("unexpected request id %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	ctx := WithRequestID(context.Background(), "req-42")
	if err := c.Post(ctx, "deliveries/get-age-range", map[string]string{"a": "b"}, nil); err != nil {
		t.Fatalf("post: %v", err)
	}
}

func TestGetUsesTokenSourceAndQuery(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/batch-picking/get-details" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("delivery_document") != "800123" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer from-source" {
			t.Errorf("unexpected authorization %q", got)
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	c.WithTokenSource(func() string { return "from-source" })

	var out struct {
		Success bool `json:"success"`
	}
	if err := c.Get(context.Background(), "/batch-picking/get-details", url.Values{"delivery_document": {"800123"}}, &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if !out.Success {
		t.Fatal("expected decoded body")
	}
}

func TestInvalidBodyIsInvalidResponse(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))

	var out map[string]any
	err := c.Post(context.Background(), "x", nil, &out)
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestNewValidatesBaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected empty base url to fail")
	}
	if _, err := New(Config{BaseURL: "ftp://host"}); err == nil || !strings.Contains(err.Error(), "scheme") {
		t.Fatalf("expected scheme error, got %v", err)
	}
}
