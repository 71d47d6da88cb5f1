package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"flowershop/backend/internal/domain"
	"flowershop/backend/internal/store"
)

func newIntegrationStore(t *testing.T) (*Store, context.Context) {
	t.Helper()

	databaseURL := os.Getenv("FLOWERSHOP_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set FLOWERSHOP_TEST_DATABASE_URL to run postgres integration tests")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s, ctx
}

func seedIntegrationFlower(t *testing.T, s *Store, ctx context.Context, qty int) domain.ItemRef {
	t.Helper()

	stamp := time.Now().UnixNano()
	var flowerID int64
	if err := s.db.QueryRowContext(ctx, `
		INSERT INTO flowers (name, variety, color, price, shelf_life_days, active)
		VALUES ($1, 'IT', 'Red', 150.00, 7, true)
		RETURNING id
	`, fmt.Sprintf("it-flower-%d", stamp)).Scan(&flowerID); err != nil {
		t.Fatalf("insert flower: %v", err)
	}
	ref := domain.ItemRef{Type: domain.ItemFlower, ID: flowerID}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory (item_type, item_id, qty, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (item_type, item_id)
		DO UPDATE SET qty = EXCLUDED.qty, updated_at = now()
	`, ref.Type, ref.ID, qty); err != nil {
		t.Fatalf("seed stock: %v", err)
	}

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM order_items WHERE item_type = $1 AND item_id = $2`, ref.Type, ref.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM inventory WHERE item_type = $1 AND item_id = $2`, ref.Type, ref.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM flowers WHERE id = $1`, ref.ID)
	})
	return ref
}

func seedIntegrationClient(t *testing.T, s *Store, ctx context.Context) int64 {
	t.Helper()

	client, err := s.CreateClient(ctx, domain.Client{FullName: fmt.Sprintf("it-client-%d", time.Now().UnixNano())})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, client.ID)
	})
	return client.ID
}

func integrationStock(t *testing.T, s *Store, ctx context.Context, ref domain.ItemRef) int {
	t.Helper()
	qty, err := s.StockLevel(ctx, ref)
	if err != nil {
		t.Fatalf("stock level: %v", err)
	}
	return qty
}

func TestCreateOrderRollsBackOnInsufficientStock(t *testing.T) {
	s, ctx := newIntegrationStore(t)
	ref := seedIntegrationFlower(t, s, ctx, 10)
	clientID := seedIntegrationClient(t, s, ctx)

	_, err := s.CreateOrder(ctx, domain.Order{
		ClientID:  clientID,
		CreatedBy: "it-seller",
		Items: []domain.OrderItem{
			{Ref: ref, Qty: 11},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	if qty := integrationStock(t, s, ctx, ref); qty != 10 {
		t.Fatalf("expected stock unchanged at 10 after rollback, got %d", qty)
	}
}

func TestOrderCancelRestoresStock(t *testing.T) {
	s, ctx := newIntegrationStore(t)
	ref := seedIntegrationFlower(t, s, ctx, 10)
	clientID := seedIntegrationClient(t, s, ctx)

	order, err := s.CreateOrder(ctx, domain.Order{
		ClientID:  clientID,
		CreatedBy: "it-seller",
		Items: []domain.OrderItem{
			{Ref: ref, Qty: 4},
		},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, order.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, order.ID)
	})

	want := decimal.RequireFromString("600.00")
	if !order.TotalSum.Equal(want) {
		t.Fatalf("expected total 600.00, got %s", order.TotalSum)
	}
	if qty := integrationStock(t, s, ctx, ref); qty != 6 {
		t.Fatalf("expected stock 6 after order, got %d", qty)
	}

	if _, err := s.CancelOrder(ctx, order.ID); err != nil {
		t.Fatalf("cancel order: %v", err)
	}
	if qty := integrationStock(t, s, ctx, ref); qty != 10 {
		t.Fatalf("expected stock restored to 10, got %d", qty)
	}

	if _, err := s.CancelOrder(ctx, order.ID); !errors.Is(err, store.ErrOrderTerminal) {
		t.Fatalf("expected ErrOrderTerminal on second cancel, got %v", err)
	}
	if qty := integrationStock(t, s, ctx, ref); qty != 10 {
		t.Fatalf("expected stock untouched by rejected cancel, got %d", qty)
	}
}

func TestPayOrderIsExactlyOnce(t *testing.T) {
	s, ctx := newIntegrationStore(t)
	ref := seedIntegrationFlower(t, s, ctx, 10)
	clientID := seedIntegrationClient(t, s, ctx)

	order, err := s.CreateOrder(ctx, domain.Order{
		ClientID:  clientID,
		CreatedBy: "it-seller",
		Items: []domain.OrderItem{
			{Ref: ref, Qty: 2},
		},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM payments WHERE order_id = $1`, order.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, order.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, order.ID)
	})

	payment, err := s.PayOrder(ctx, order.ID, domain.PayCash)
	if err != nil {
		t.Fatalf("pay order: %v", err)
	}
	if !payment.Amount.Equal(order.TotalSum) {
		t.Fatalf("expected payment %s, got %s", order.TotalSum, payment.Amount)
	}

	if _, err := s.PayOrder(ctx, order.ID, domain.PayCard); !errors.Is(err, store.ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}

	paid, err := s.GetOrderByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if paid.Status != domain.OrderIssued {
		t.Fatalf("expected issued status, got %s", paid.Status)
	}
}
