package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/pvpauth/auth/provider"
	"github.com/kbukum/pvpauth/database"
	"github.com/kbukum/pvpauth/database/testutil"
	"github.com/kbukum/pvpauth/logger"
)

func newLinker(t *testing.T) (*Linker, *database.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	return NewLinker(db, WithLogger(logger.Nop())), db
}

func googleClaims(sub, name string) *provider.VerifiedClaims {
	return &provider.VerifiedClaims{
		Provider:      provider.Google,
		ExternalID:    sub,
		DisplayName:   name,
		Email:         "ada@example.com",
		EmailVerified: true,
		Locale:        "en",
	}
}

func TestLinkNewUser_ThenFind(t *testing.T) {
	l, db := newLinker(t)
	ctx := context.Background()

	u, err := l.LinkNewUser(ctx, googleClaims("g-123", "Ada"), "ada")
	if err != nil {
		t.Fatalf("LinkNewUser: %v", err)
	}
	if u.UserName != "ada" || u.DisplayName != "Ada" || !u.VerifiedEmail || u.ID == uuid.Nil {
		t.Errorf("unexpected user %+v", u)
	}

	found, err := l.FindLinkedUser(ctx, provider.Google, "g-123")
	if err != nil {
		t.Fatalf("FindLinkedUser: %v", err)
	}
	if found == nil || found.ID != u.ID || found.Email != "ada@example.com" {
		t.Fatalf("FindLinkedUser = %+v, want %s", found, u.ID)
	}

	missing, err := l.FindLinkedUser(ctx, provider.Google, "g-999")
	if err != nil || missing != nil {
		t.Errorf("unlinked identity: got (%+v, %v), want (nil, nil)", missing, err)
	}
	// same external id under another provider is a different identity
	if other, _ := l.FindLinkedUser(ctx, provider.Lichess, "g-123"); other != nil {
		t.Error("google identity found through the lichess table")
	}
	testutil.AssertRowCount(t, db, "google_users", 1)
}

func TestLinkNewUser_UsernameConflict(t *testing.T) {
	l, db := newLinker(t)
	ctx := context.Background()

	if _, err := l.LinkNewUser(ctx, googleClaims("g-1", "Ada"), "ada"); err != nil {
		t.Fatalf("first LinkNewUser: %v", err)
	}
	_, err := l.LinkNewUser(ctx, googleClaims("g-2", "Other Ada"), "ada")
	if !errors.Is(err, ErrUsernameConflict) {
		t.Fatalf("expected ErrUsernameConflict, got %v", err)
	}

	testutil.AssertRowCount(t, db, "users", 1)
	testutil.AssertRowCount(t, db, "google_users", 1)
	if u, _ := l.FindLinkedUser(ctx, provider.Google, "g-2"); u != nil {
		t.Error("identity of the failed sign-up was linked")
	}
}

func TestLinkNewUser_IdentityAlreadyLinked(t *testing.T) {
	l, db := newLinker(t)
	ctx := context.Background()

	if _, err := l.LinkNewUser(ctx, googleClaims("g-1", "Ada"), "ada"); err != nil {
		t.Fatalf("first LinkNewUser: %v", err)
	}
	_, err := l.LinkNewUser(ctx, googleClaims("g-1", "Ada"), "ada2")
	if !errors.Is(err, ErrIdentityLinked) {
		t.Fatalf("expected ErrIdentityLinked, got %v", err)
	}
	if errors.Is(err, ErrUsernameConflict) {
		t.Error("identity conflict reported as username conflict")
	}
	testutil.AssertRowCount(t, db, "users", 1)
}

func TestLinkNewUser_UnknownProvider(t *testing.T) {
	l, _ := newLinker(t)
	_, err := l.LinkNewUser(context.Background(), &provider.VerifiedClaims{Provider: "github", ExternalID: "x"}, "ada")
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestRefreshLinkedUser(t *testing.T) {
	l, db := newLinker(t)
	ctx := context.Background()
	later := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	claims := &provider.VerifiedClaims{
		Provider:         provider.Lichess,
		ExternalID:       "thibault",
		DisplayName:      "Thibault",
		ProviderUsername: "Thibault",
		Email:            "t@lichess.org",
		EmailVerified:    true,
	}
	u, err := l.LinkNewUser(ctx, claims, "thib")
	if err != nil {
		t.Fatalf("LinkNewUser: %v", err)
	}

	l.now = func() time.Time { return later }
	refreshed, err := l.RefreshLinkedUser(ctx, u.ID, &provider.VerifiedClaims{
		Provider:         provider.Lichess,
		ExternalID:       "thibault",
		DisplayName:      "ThibaultD",
		ProviderUsername: "ThibaultD",
		Locale:           "fr",
	})
	if err != nil {
		t.Fatalf("RefreshLinkedUser: %v", err)
	}
	if refreshed.UserName != "thib" {
		t.Errorf("user_name changed to %q", refreshed.UserName)
	}
	if refreshed.Email != "t@lichess.org" {
		t.Errorf("empty email claim overwrote email: %q", refreshed.Email)
	}
	if refreshed.Locale != "fr" || refreshed.VerifiedEmail {
		t.Errorf("provider fields not refreshed: %+v", refreshed)
	}
	if !refreshed.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %s, want %s", refreshed.UpdatedAt, later)
	}

	var mirror LichessUser
	if err := db.GormDB.Where("id = ?", "thibault").Take(&mirror).Error; err != nil {
		t.Fatalf("load lichess_users: %v", err)
	}
	if mirror.Username != "ThibaultD" {
		t.Errorf("lichess username mirror = %q", mirror.Username)
	}
}

func TestRefreshLinkedUser_NotFound(t *testing.T) {
	l, _ := newLinker(t)
	_, err := l.RefreshLinkedUser(context.Background(), uuid.New(), googleClaims("g-1", "Ada"))
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUsers_ListGetDelete(t *testing.T) {
	l, db := newLinker(t)
	ctx := context.Background()

	zed, _ := l.LinkNewUser(ctx, googleClaims("g-z", "Zed"), "zed")
	ada, _ := l.LinkNewUser(ctx, googleClaims("g-a", "Ada"), "ada")
	if zed == nil || ada == nil {
		t.Fatal("fixture users not created")
	}

	list, err := l.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(list) != 2 || list[0].UserName != "ada" || list[1].UserName != "zed" {
		t.Fatalf("ListUsers = %+v, want ada then zed", list)
	}
	if list[0].ID != ada.ID {
		t.Errorf("ListUsers id = %s, want %s", list[0].ID, ada.ID)
	}

	got, err := l.GetUser(ctx, zed.ID)
	if err != nil || got.UserName != "zed" {
		t.Fatalf("GetUser = (%+v, %v)", got, err)
	}
	if _, err := l.GetUser(ctx, uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetUser unknown id: %v", err)
	}

	if err := l.DeleteUser(ctx, zed.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	testutil.AssertRowCount(t, db, "users", 1)
	testutil.AssertRowCount(t, db, "google_users", 1)
	if err := l.DeleteUser(ctx, zed.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("second DeleteUser: %v", err)
	}
}

func TestListUsers_Empty(t *testing.T) {
	l, _ := newLinker(t)
	list, err := l.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("ListUsers on empty table = %#v, want empty slice", list)
	}
}
