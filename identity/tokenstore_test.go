package identity

import (
	"context"
	"testing"
	"time"

	"github.com/kbukum/pvpauth/auth/lichess"
	"github.com/kbukum/pvpauth/database/testutil"
	"github.com/kbukum/pvpauth/encryption"
)

func TestTokenStore_GetPut(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewTokenStore(db)
	ctx := context.Background()

	got, err := store.Get(ctx, "verifier-1")
	if err != nil || got != nil {
		t.Fatalf("Get on empty store = (%+v, %v), want (nil, nil)", got, err)
	}

	expires := time.Unix(1_900_000_000, 0)
	if err := store.Put(ctx, &lichess.AccessToken{Verifier: "verifier-1", AccessToken: "lio_a", Expires: expires}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err = store.Get(ctx, "verifier-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.AccessToken != "lio_a" || !got.Expires.Equal(expires) || got.Verifier != "verifier-1" {
		t.Errorf("Get = %+v", got)
	}

	renewed := expires.Add(time.Hour)
	if err := store.Put(ctx, &lichess.AccessToken{Verifier: "verifier-1", AccessToken: "lio_b", Expires: renewed}); err != nil {
		t.Fatalf("Put (upsert): %v", err)
	}
	got, _ = store.Get(ctx, "verifier-1")
	if got.AccessToken != "lio_b" || !got.Expires.Equal(renewed) {
		t.Errorf("upsert not applied: %+v", got)
	}
	testutil.AssertRowCount(t, db, "lichess_access_tokens", 1)
}

func TestTokenStore_Encrypted(t *testing.T) {
	db := testutil.NewDB(t)
	enc, err := encryption.New(encryption.Config{Key: "token-key-token-key", Algorithm: encryption.AlgorithmChaCha20})
	if err != nil {
		t.Fatalf("encryption.New: %v", err)
	}
	sealed := NewTokenStore(db, WithEncryptor(enc))
	ctx := context.Background()
	expires := time.Unix(1_900_000_000, 0)

	if err := sealed.Put(ctx, &lichess.AccessToken{Verifier: "v-1", AccessToken: "lio_secret", Expires: expires}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var stored string
	if err := db.GormDB.Table("lichess_access_tokens").Select("access_token").Where("id = ?", "v-1").Scan(&stored).Error; err != nil {
		t.Fatalf("read raw row: %v", err)
	}
	if stored == "" || stored == "lio_secret" {
		t.Errorf("token stored in plaintext: %q", stored)
	}

	got, err := sealed.Get(ctx, "v-1")
	if err != nil || got == nil || got.AccessToken != "lio_secret" {
		t.Fatalf("Get = (%+v, %v)", got, err)
	}

	// a row written without encryption cannot be opened and reads as a miss
	plain := NewTokenStore(db)
	if err := plain.Put(ctx, &lichess.AccessToken{Verifier: "v-2", AccessToken: "lio_plain", Expires: expires}); err != nil {
		t.Fatalf("Put plain: %v", err)
	}
	got, err = sealed.Get(ctx, "v-2")
	if err != nil || got != nil {
		t.Errorf("Get of plaintext row = (%+v, %v), want (nil, nil)", got, err)
	}
}
