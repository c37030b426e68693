package waitlist

import (
	"context"
	"sync"
	"testing"

	"github.com/farmlinker/farmlinker-backend/internal/store/memstore"
	pkgerrors "github.com/farmlinker/farmlinker-backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(memstore.New())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestJoinNormalizesAndLists(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	company := " Green Acres "

	entry, err := svc.Join(ctx, JoinRequest{Name: " Wanjiru ", Email: "Wanjiru@Example.com ", Company: &company})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if entry.Email != "wanjiru@example.com" || entry.Name != "Wanjiru" {
		t.Fatalf("expected normalized entry, got %+v", entry)
	}
	if entry.Company == nil || *entry.Company != "Green Acres" || entry.Role != nil {
		t.Fatalf("unexpected optional fields %+v", entry)
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Entries) != 1 || list.Entries[0].ID != entry.ID {
		t.Fatalf("unexpected entries %+v", list.Entries)
	}
}

func TestListEmptyIsNotNil(t *testing.T) {
	list, err := newTestService(t).List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Entries == nil {
		t.Fatal("expected empty slice, got nil")
	}
}

func TestJoinDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Join(ctx, JoinRequest{Name: "A", Email: "dup@example.com"}); err != nil {
		t.Fatalf("first join: %v", err)
	}
	_, err := svc.Join(ctx, JoinRequest{Name: "B", Email: "DUP@example.com"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestJoinConcurrentDuplicates(t *testing.T) {
	svc := newTestService(t)
	const attempts = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Join(context.Background(), JoinRequest{Name: "Racer", Email: "race@example.com"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case pkgerrors.IsCode(err, pkgerrors.CodeConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if created != 1 || conflicts != attempts-1 {
		t.Fatalf("expected 1 created and %d conflicts, got %d and %d", attempts-1, created, conflicts)
	}
}

func TestJoinRequiresNameAndEmail(t *testing.T) {
	_, err := newTestService(t).Join(context.Background(), JoinRequest{Name: " ", Email: "x@example.com"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
