package auth

import (
	"context"
	"testing"
)

func TestWithAuthRoundTrip(t *testing.T) {
	ac := AuthContext{UserID: 7, HouseholdID: 3, Role: "parent", SessionID: 42}
	ctx := WithAuth(context.Background(), ac)

	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected auth context")
	}
	if got != ac {
		t.Errorf("got %+v, want %+v", got, ac)
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected no auth context on empty context")
	}
}

func TestAccessors(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{UserID: 5, HouseholdID: 9, Role: "parent"})

	if got := UserID(ctx); got != 5 {
		t.Errorf("UserID = %d, want 5", got)
	}
	if got := HouseholdID(ctx); got != 9 {
		t.Errorf("HouseholdID = %d, want 9", got)
	}
	if !IsParent(ctx) {
		t.Error("expected IsParent true")
	}

	member := WithAuth(context.Background(), AuthContext{UserID: 6, HouseholdID: 9, Role: "member"})
	if IsParent(member) {
		t.Error("expected IsParent false for member role")
	}
	if UserID(context.Background()) != 0 {
		t.Error("expected zero UserID on empty context")
	}
}
