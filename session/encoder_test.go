package session

import (
	"errors"
	"testing"
	"time"
)

func TestEncodeDecodeStripsToken(t *testing.T) {
	u := &User{ID: 7, Email: "op@example.com", APIToken: "secret", IsWarehouseOperator: true, Permissions: []string{"view.rfid.*"}}

	data, err := Encode(u)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.APIToken != "" {
		t.Fatal("persisted record must not carry the api token")
	}
	if got.ID != 7 || !got.IsWarehouseOperator || len(got.Permissions) != 1 {
		t.Fatalf("unexpected decoded user %+v", got)
	}
	if u.APIToken != "secret" {
		t.Fatal("Encode must not mutate its input")
	}
}

func TestDecodeMigratesBareRecord(t *testing.T) {
	got, err := Decode([]byte(`{"id":3,"email":"legacy@example.com","email_verified_at":"2024-01-02 03:04:05"}`))
	if err != nil {
		t.Fatalf("decode legacy: %v", err)
	}
	if got.ID != 3 || !got.EmailVerified() {
		t.Fatalf("unexpected legacy user %+v", got)
	}
	if got.EmailVerifiedAt.Year() != 2024 || got.EmailVerifiedAt.Month() != time.January {
		t.Fatalf("unexpected legacy timestamp %v", got.EmailVerifiedAt)
	}
}

func TestDecodeRejectsUnsupportedSchemaVersion(t *testing.T) {
	_, err := Decode([]byte(`{"v":99,"user":{}}`))
	if !errors.Is(err, ErrUnsupportedSchema) {
		t.Fatalf("expected ErrUnsupportedSchema, got %v", err)
	}
	if _, err := Decode(nil); err == nil {
		t.Fatal("expected empty record to fail")
	}
	if _, err := Encode(nil); err == nil {
		t.Fatal("expected nil user to fail")
	}
}
