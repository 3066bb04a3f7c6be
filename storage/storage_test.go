package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type backend interface {
	TokenStorage
	UserStorage
	StateStorage
}

func newRedisStoreTest(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewRedis(rdb, "test:session", 0), mr
}

func backends(t *testing.T) map[string]backend {
	t.Helper()
	rs, _ := newRedisStoreTest(t)
	return map[string]backend{
		"memory": NewMemory(),
		"file":   NewFile(t.TempDir()),
		"redis":  rs,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := b.Get(ctx); err != nil || ok {
				t.Fatalf("expected empty store, ok=%v err=%v", ok, err)
			}
			if err := b.Save(ctx, "tok-1"); err != nil {
				t.Fatalf("save: %v", err)
			}
			tok, ok, err := b.Get(ctx)
			if err != nil || !ok || tok != "tok-1" {
				t.Fatalf("get = %q %v %v", tok, ok, err)
			}
			if err := b.Destroy(ctx); err != nil {
				t.Fatalf("destroy: %v", err)
			}
			if err := b.Destroy(ctx); err != nil {
				t.Fatalf("second destroy: %v", err)
			}
			if _, ok, _ := b.Get(ctx); ok {
				t.Fatal("token survived destroy")
			}
		})
	}
}

func TestUserRoundTripIndependentOfToken(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := b.Save(ctx, "tok"); err != nil {
				t.Fatalf("save: %v", err)
			}
			if err := b.SaveUser(ctx, []byte(`{"v":2,"user":{"id":1}}`)); err != nil {
				t.Fatalf("save user: %v", err)
			}
			rec, ok, err := b.LoadUser(ctx)
			if err != nil || !ok || string(rec) != `{"v":2,"user":{"id":1}}` {
				t.Fatalf("load user = %s %v %v", rec, ok, err)
			}
			if err := b.DestroyUser(ctx); err != nil {
				t.Fatalf("destroy user: %v", err)
			}
			if _, ok, _ := b.LoadUser(ctx); ok {
				t.Fatal("user survived destroy")
			}
			if tok, ok, _ := b.Get(ctx); !ok || tok != "tok" {
				t.Fatal("destroying the user must keep the token")
			}
		})
	}
}

func TestStateRecordsOutliveSession(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := b.LoadState(ctx, "goodsReceipt"); err != nil || ok {
				t.Fatalf("expected no state, ok=%v err=%v", ok, err)
			}
			_ = b.Save(ctx, "tok-1")
			if err := b.SaveState(ctx, "goodsReceipt", []byte(`{"pallet_status":"open"}`)); err != nil {
				t.Fatalf("save state: %v", err)
			}
			if err := b.SaveState(ctx, "rfid", []byte(`{}`)); err != nil {
				t.Fatalf("save state: %v", err)
			}

			_ = b.Destroy(ctx)
			_ = b.DestroyUser(ctx)

			got, ok, err := b.LoadState(ctx, "goodsReceipt")
			if err != nil || !ok || string(got) != `{"pallet_status":"open"}` {
				t.Fatalf("load state = %s %v %v", got, ok, err)
			}
			if err := b.DestroyState(ctx, "goodsReceipt"); err != nil {
				t.Fatalf("destroy state: %v", err)
			}
			if _, ok, _ := b.LoadState(ctx, "goodsReceipt"); ok {
				t.Fatal("state still present after destroy")
			}
			if _, ok, _ := b.LoadState(ctx, "rfid"); !ok {
				t.Fatal("destroying one store removed another")
			}
		})
	}
}

func TestFileRemovedOnceEverythingIsGone(t *testing.T) {
	ctx := context.Background()
	f := NewFile(t.TempDir())
	if err := f.SaveState(ctx, "goodsReceipt", []byte(`{}`)); err != nil {
		t.Fatalf("save state: %v", err)
	}
	if err := f.SaveState(ctx, "broken", []byte(`{`)); err == nil {
		t.Fatal("expected invalid json to be rejected")
	}
	if _, err := os.Stat(f.Path()); err != nil {
		t.Fatalf("state record not written: %v", err)
	}
	if err := f.DestroyState(ctx, "goodsReceipt"); err != nil {
		t.Fatalf("destroy state: %v", err)
	}
	if _, err := os.Stat(f.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected file removed, stat err=%v", err)
	}
}

func TestFileSurvivesReopenWithPrivatePermissions(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested")

	if err := NewFile(dir).Save(ctx, "tok-file"); err != nil {
		t.Fatalf("save: %v", err)
	}

	reopened := NewFile(dir)
	tok, ok, err := reopened.Get(ctx)
	if err != nil || !ok || tok != "tok-file" {
		t.Fatalf("reopened get = %q %v %v", tok, ok, err)
	}

	info, err := os.Stat(reopened.Path())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != filePerm {
		t.Fatalf("expected 0600, got %o", perm)
	}

	if err := reopened.Destroy(ctx); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, err := os.Stat(reopened.Path()); !os.IsNotExist(err) {
		t.Fatalf("expected empty record to remove the file, stat err=%v", err)
	}
}

func TestFileCorruptRecordIsUnavailable(t *testing.T) {
	dir := t.TempDir()
	f := NewFile(dir)
	if err := os.WriteFile(f.Path(), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := f.Get(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := f.SaveUser(context.Background(), []byte("nope")); err == nil {
		t.Fatal("expected invalid json user record to be rejected")
	}
}

func TestRedisTTLAndOutage(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	s := NewRedis(rdb, "", time.Minute)
	if err := s.Save(ctx, "tok"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL("wms:session:token"); ttl != time.Minute {
		t.Fatalf("expected 1m ttl on default prefix, got %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := s.Get(ctx); ok {
		t.Fatal("expected token to expire")
	}

	mr.Close()
	if err := s.Save(ctx, "tok"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable after outage, got %v", err)
	}
}
