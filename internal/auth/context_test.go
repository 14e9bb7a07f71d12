package auth

import (
	"context"
	"testing"
)

func TestWithAuthAndFromContext(t *testing.T) {
	ac := AuthContext{
		UserID:    1,
		SessionID: 3,
	}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got.UserID != 1 {
		t.Errorf("UserID = %d, want 1", got.UserID)
	}
	if got.SessionID != 3 {
		t.Errorf("SessionID = %d, want 3", got.SessionID)
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing AuthContext")
	}
}

func TestUserID(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{UserID: 7})
	id, ok := UserID(ctx)
	if !ok {
		t.Fatal("expected ok for populated context")
	}
	if id != 7 {
		t.Errorf("UserID = %d, want 7", id)
	}
}

func TestUserIDMissing(t *testing.T) {
	id, ok := UserID(context.Background())
	if ok || id != 0 {
		t.Errorf("expected (0, false) for missing context, got (%d, %v)", id, ok)
	}
}
