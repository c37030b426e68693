package reviews

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/farmlinker/farmlinker-backend/internal/store/memstore"
	"github.com/farmlinker/farmlinker-backend/pkg/db/models"
	"github.com/farmlinker/farmlinker-backend/pkg/enums"
	pkgerrors "github.com/farmlinker/farmlinker-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, int64, int64) {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()

	seller := &models.User{Name: "S", Email: "s@example.com", PasswordHash: "x", Role: enums.UserRoleSeller}
	buyer := &models.User{Name: "B", Email: "b@example.com", PasswordHash: "x", Role: enums.UserRoleBuyer}
	for _, u := range []*models.User{seller, buyer} {
		if err := st.Users().Create(ctx, u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	product := &models.Product{Name: "Avocados", Category: "fruits", Price: decimal.NewFromInt(25), Quantity: 10, Unit: "piece", SellerID: seller.ID, Available: true}
	if err := st.Products().Create(ctx, product); err != nil {
		t.Fatalf("seed product: %v", err)
	}

	svc, err := NewService(st)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, buyer.ID, product.ID
}

func strPtr(v string) *string { return &v }

func TestCreateAndList(t *testing.T) {
	svc, userID, productID := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, userID, productID, CreateReviewRequest{Rating: 5, Comment: strPtr("  sweet and ripe ")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Comment == nil || *first.Comment != "sweet and ripe" {
		t.Fatalf("expected trimmed comment, got %v", first.Comment)
	}
	if _, err := svc.Create(ctx, userID, productID, CreateReviewRequest{Rating: 3, Comment: strPtr(" ")}); err != nil {
		t.Fatalf("second review by same user: %v", err)
	}

	list, err := svc.List(ctx, productID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(list))
	}
	for _, r := range list {
		if r.ProductID != productID || r.UserID != userID {
			t.Fatalf("unexpected review %+v", r)
		}
	}
}

func TestCreateRejectsOutOfRangeRating(t *testing.T) {
	svc, userID, productID := newTestService(t)
	for _, rating := range []int{0, 6, -1} {
		_, err := svc.Create(context.Background(), userID, productID, CreateReviewRequest{Rating: rating})
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("rating %d: expected validation error, got %v", rating, err)
		}
	}
}

func TestUnknownProduct(t *testing.T) {
	svc, userID, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, userID, 999, CreateReviewRequest{Rating: 4}); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("create: expected not found, got %v", err)
	}
	if _, err := svc.List(ctx, 999); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("list: expected not found, got %v", err)
	}
}

func TestNewServiceRequiresStore(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected error without store")
	}
}
