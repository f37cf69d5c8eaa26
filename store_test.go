package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// Two concurrent refreshes present the same stored token; the conditional
// update must let exactly one of them rotate it.
func TestRotateRefreshTokenSingleWinner(t *testing.T) {
	s := newStoreMem()
	ctx := context.Background()
	u := &User{Name: "A", Email: "a@x.com", Username: "a1", PasswordHash: "h"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	old := "stored-token"
	if _, err := s.UpdateUser(ctx, u.ID, UserPatch{RefreshToken: &old}); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.RotateRefreshToken(ctx, u.ID, old, fmt.Sprintf("fresh-%d", i))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, errTokenMismatch):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("want exactly one winner, got %d", wins)
	}
}

func TestClearRefreshToken(t *testing.T) {
	s := newStoreMem()
	ctx := context.Background()
	u := &User{Name: "A", Email: "a@x.com", Username: "a1", PasswordHash: "h"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	tok := "stored-token"
	if _, err := s.UpdateUser(ctx, u.ID, UserPatch{RefreshToken: &tok}); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	if err := s.ClearRefreshToken(ctx, u.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := s.RotateRefreshToken(ctx, u.ID, tok, "fresh"); !errors.Is(err, errTokenMismatch) {
		t.Fatalf("cleared token still rotates: %v", err)
	}
}
