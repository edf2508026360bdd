package store

import (
	"testing"

	"github.com/pawradar/pawradar/internal/model"
)

func TestTokenRegisterAndList(t *testing.T) {
	db := openTestDB(t)
	ts := NewTokenStore(db)

	tok, err := ts.Register("user-1", "expo-token-a", model.PlatformIOS)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if tok.UserID != "user-1" || tok.Platform != model.PlatformIOS {
		t.Errorf("token = %+v", tok)
	}

	if _, err := ts.Register("user-1", "expo-token-b", model.PlatformAndroid); err != nil {
		t.Fatalf("register second: %v", err)
	}

	tokens, err := ts.ListByUser("user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("len = %d, want 2", len(tokens))
	}
}

func TestTokenRegisterRejectsUnknownPlatform(t *testing.T) {
	db := openTestDB(t)
	ts := NewTokenStore(db)

	if _, err := ts.Register("user-1", "tok", "blackberry"); err == nil {
		t.Error("expected error for unknown platform")
	}
}

func TestTokenReHomesOnConflict(t *testing.T) {
	db := openTestDB(t)
	ts := NewTokenStore(db)

	if _, err := ts.Register("user-1", "shared-device", model.PlatformAndroid); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Same physical device logs in as a different user.
	tok, err := ts.Register("user-2", "shared-device", model.PlatformAndroid)
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if tok.UserID != "user-2" {
		t.Errorf("token owner = %q, want user-2", tok.UserID)
	}

	old, err := ts.ListByUser("user-1")
	if err != nil {
		t.Fatalf("list old owner: %v", err)
	}
	if len(old) != 0 {
		t.Errorf("previous owner still holds %d tokens", len(old))
	}
}

func TestTokenDelete(t *testing.T) {
	db := openTestDB(t)
	ts := NewTokenStore(db)

	if _, err := ts.Register("user-1", "tok", model.PlatformWeb); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := ts.DeleteByToken("tok"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	tokens, _ := ts.ListByUser("user-1")
	if len(tokens) != 0 {
		t.Errorf("token survived deletion")
	}

	// Deleting an unknown token is not an error.
	if err := ts.DeleteByToken("never-existed"); err != nil {
		t.Errorf("delete unknown: %v", err)
	}
}
