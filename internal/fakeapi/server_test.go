package fakeapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/api"
	"github.com/MrEthical07/goGate/internal/rate"
	"github.com/MrEthical07/goGate/picking"
	"github.com/MrEthical07/goGate/rfid"
	"github.com/MrEthical07/goGate/router"
	"github.com/MrEthical07/goGate/session"
)

const testPassword = "correct-horse"

func newTestServer(t *testing.T) (*Server, *httptest.Server, session.User) {
	t.Helper()
	s, err := New(Config{Secret: []byte("fake-api-test-secret"), Hash: HashParams{MemoryKB: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	user, err := s.AddUser(session.User{
		Email:            "ana@wms.test",
		EmailVerifiedAt:  &session.Timestamp{Time: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		IsWarehouseAdmin: true,
		Permissions:      []string{"view.rfid.*"},
	}, testPassword)
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return s, srv, user
}

func newClient(t *testing.T, srv *httptest.Server) *api.Client {
	t.Helper()
	c, err := api.New(api.Config{BaseURL: srv.URL + "/api/"})
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	return c
}

func TestPasswordHashRoundTrip(t *testing.T) {
	p := HashParams{MemoryKB: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16}
	hash, err := hashPassword(p, testPassword)
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix %q", hash)
	}
	if ok, err := verifyPassword(testPassword, hash); err != nil || !ok {
		t.Fatalf("verify correct password: %v %v", ok, err)
	}
	if ok, _ := verifyPassword("wrong-horse", hash); ok {
		t.Fatal("wrong password verified")
	}
	if _, err := verifyPassword(testPassword, "$bcrypt$x"); err == nil {
		t.Fatal("expected malformed hash error")
	}
	if _, err := hashPassword(p, "short"); err == nil {
		t.Fatal("expected short password error")
	}
}

func TestAddUserRejectsDuplicateEmail(t *testing.T) {
	s, _, _ := newTestServer(t)
	if _, err := s.AddUser(session.User{Email: " ANA@wms.test "}, testPassword); err == nil {
		t.Fatal("expected duplicate email error")
	}
}

func TestLoginVerifyLogout(t *testing.T) {
	_, srv, user := newTestServer(t)
	c := newClient(t, srv)
	ctx := context.Background()

	resp, err := c.Login(ctx, session.Credentials{Email: "ana@wms.test", Password: testPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.User.ID != user.ID || resp.Token == "" {
		t.Fatalf("unexpected login response %+v", resp)
	}

	if _, err := c.VerifyToken(ctx, resp.Token); err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if err := c.Logout(ctx, resp.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	_, err = c.VerifyToken(ctx, resp.Token)
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || !apiErr.Unauthorized() {
		t.Fatalf("revoked token verified: %v", err)
	}
	if api.FieldErrorsOf(err).First("api_token") != "Invalid token." {
		t.Fatalf("unexpected errors %v", api.FieldErrorsOf(err))
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	_, srv, _ := newTestServer(t)
	c := newClient(t, srv)

	_, err := c.Login(context.Background(), session.Credentials{Email: "ana@wms.test", Password: "wrong-horse"})
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
	if apiErr.Errors.First("email") == "" {
		t.Fatalf("expected email error, got %v", apiErr.Errors)
	}
}

func TestWarehouseEndpointsRequireToken(t *testing.T) {
	_, srv, _ := newTestServer(t)
	resp, err := http.Post(srv.URL+"/api/pallet-registration/get-list", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestEngineEndToEnd(t *testing.T) {
	s, srv, user := newTestServer(t)
	ctx := context.Background()

	cfg := goGate.DefaultConfig()
	cfg.API.BaseURL = srv.URL + "/api/"
	cfg.Session.RejectExpiredTokens = true
	cfg.Guard.AwaitVerification = true
	engine, err := goGate.New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()

	if _, err := engine.Session().Login(ctx, session.Credentials{Email: "ana@wms.test", Password: testPassword}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if engine.Session().State().TokenExpiresAt.IsZero() {
		t.Fatal("expected exp claim from the issued jwt")
	}

	r, err := engine.Navigate(ctx, "/production-runs")
	if err != nil || !r.Is(router.RouteDashboard) {
		t.Fatalf("expected dashboard without production, got %v %v", r.RouteName(), err)
	}

	s.UpdateUser(user.ID, func(u *session.User) { u.HasProduction = true })
	r, err = engine.Navigate(ctx, "/production-runs")
	if err != nil || !r.Is(router.RouteProductionRuns) {
		t.Fatalf("expected production-runs after capability change, got %v %v", r.RouteName(), err)
	}

	pallets := rfid.New(engine.Client(), nil)
	pallets.SetFilter(rfid.Filter{PlantCode: "1000", StorageLocation: "0002"})
	pallets.FetchPallets(ctx)
	if got := pallets.State().Pallets; len(got) != 1 || got[0]["pallet_name"] != "PAL-0002" {
		t.Fatalf("unexpected pallets %v", got)
	}
	if !pallets.CheckTagRegistration(ctx, "E2801160600002084F8B2C41", "1000") {
		t.Fatal("expected registered tag")
	}
	if pallets.CheckTagRegistration(ctx, "E200FFFF", "1000") {
		t.Fatal("unknown tag reported registered")
	}

	pick := picking.New(engine.Client(), nil)
	item := picking.DeliveryItem{DeliveryDocument: "80001234", ItemNumber: "10", MaterialCode: "M-1", DeliveryQuantity: "60"}
	if _, err := pick.CheckAgeRange(ctx, item); err != nil {
		t.Fatalf("CheckAgeRange: %v", err)
	}
	stocks, err := pick.FetchAvailableCommodities(ctx, item)
	if err != nil {
		t.Fatalf("FetchAvailableCommodities: %v", err)
	}
	if stocks[0].SplitQty != 40 || stocks[1].SplitQty != 20 || stocks[2].SplitQty != 0 {
		t.Fatalf("unexpected allocation %+v", stocks)
	}
	if err := pick.FetchHeaderDetails(ctx, url.Values{"delivery_document": {"80001234"}}); err != nil {
		t.Fatalf("FetchHeaderDetails: %v", err)
	}
	if pick.State().Details.Header["customer"] != "ACME Foods" {
		t.Fatalf("unexpected header %v", pick.State().Details.Header)
	}

	engine.Session().Logout(ctx, true)
	if engine.Session().State().HasToken() {
		t.Fatal("logout left a token")
	}
	pallets.FetchPallets(ctx)
	if pallets.State().Errors.First("api_token") == "" {
		t.Fatal("warehouse calls after logout must be rejected")
	}
}

func TestLoginThrottled(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s, err := New(Config{
		Secret:  []byte("fake-api-test-secret"),
		Hash:    HashParams{MemoryKB: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16},
		Limiter: rate.New(rdb, rate.Config{MaxAttempts: 2, Cooldown: time.Minute}),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.AddUser(session.User{Email: "ana@wms.test"}, testPassword); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	c := newClient(t, srv)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.Login(ctx, session.Credentials{Email: "ana@wms.test", Password: "wrong-horse"}); err == nil {
			t.Fatal("wrong password accepted")
		}
	}
	_, err = c.Login(ctx, session.Credentials{Email: "ana@wms.test", Password: testPassword})
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if !strings.HasPrefix(apiErr.Errors.First("email"), "Too many login attempts.") {
		t.Fatalf("unexpected errors %v", apiErr.Errors)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := c.Login(ctx, session.Credentials{Email: "ana@wms.test", Password: testPassword}); err != nil {
		t.Fatalf("login after cooldown: %v", err)
	}
}
