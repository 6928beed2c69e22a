package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	storeAuth "github.com/MrEthical07/storeAuth"
)

func TestStoreCreateAndLookup(t *testing.T) {
	s := New("customer")
	ctx := context.Background()

	u, err := s.CreateUser(ctx, storeAuth.CreateUserInput{Email: " Shopper@Example.com", FirstName: "Sam", LastName: "Shopper", PasswordHash: "phc"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.UserID == "" || u.Email != "shopper@example.com" || u.Status != storeAuth.AccountActive {
		t.Fatalf("unexpected user %+v", u)
	}

	got, err := s.GetUserByIdentifier(ctx, "SHOPPER@example.com")
	if err != nil || got.UserID != u.UserID {
		t.Fatalf("lookup by email: %+v %v", got, err)
	}
	if _, err := s.GetUserByID(ctx, u.UserID); err != nil {
		t.Fatalf("lookup by id: %v", err)
	}

	roles, err := s.ResolveRoles(ctx, u.UserID)
	if err != nil || len(roles) != 1 || roles[0] != "customer" {
		t.Fatalf("roles: %v %v", roles, err)
	}
	roles[0] = "mutated"
	again, _ := s.ResolveRoles(ctx, u.UserID)
	if again[0] != "customer" {
		t.Fatal("ResolveRoles must return a copy")
	}
}

func TestStoreErrors(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.GetUserByIdentifier(ctx, "ghost@example.com"); !errors.Is(err, storeAuth.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.GetUserByID(ctx, "nope"); !errors.Is(err, storeAuth.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.CreateUser(ctx, storeAuth.CreateUserInput{Email: "a@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateUser(ctx, storeAuth.CreateUserInput{Email: "A@example.com"}); !errors.Is(err, storeAuth.ErrAccountExists) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if err := s.SetStatus("nope", storeAuth.AccountDisabled); !errors.Is(err, storeAuth.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStoreConcurrentCreateSameEmail(t *testing.T) {
	s := New()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.CreateUser(context.Background(), storeAuth.CreateUserInput{Email: "race@example.com"}); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if created != 1 || s.Len() != 1 {
		t.Fatalf("expected exactly one winner, got %d (len %d)", created, s.Len())
	}
}
