package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"flowershop/backend/internal/cache"
	"flowershop/backend/internal/domain"
	"flowershop/backend/internal/store"
	"flowershop/backend/internal/store/memory"
)

func newTestService() *Service {
	return New(memory.NewSeeded(), cache.NoopCatalogCache{}, 5*time.Second)
}

func sellerCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "seller", Role: domain.RoleSeller})
}

func managerCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "manager", Role: domain.RoleManager})
}

func clientCtx(clientID int64) context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "client1", Role: domain.RoleClient, ClientID: clientID})
}

func mustStock(t *testing.T, svc *Service, ctx context.Context, ref domain.ItemRef) int {
	t.Helper()
	qty, err := svc.StockLevel(ctx, ref)
	if err != nil {
		t.Fatalf("stock level for %s#%d: %v", ref.Type, ref.ID, err)
	}
	return qty
}

var (
	roseRef  = domain.ItemRef{Type: domain.ItemFlower, ID: 1}
	kraftRef = domain.ItemRef{Type: domain.ItemPackaging, ID: 1}
)

func TestCreateOrderComputesTotal(t *testing.T) {
	svc := newTestService()
	ctx := sellerCtx()

	order, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		ClientID: 1,
		Items: []domain.OrderLineInput{
			{ItemType: domain.ItemFlower, ItemID: 1, Qty: 3},
			{ItemType: domain.ItemPackaging, ItemID: 1, Qty: 1},
		},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	want := decimal.RequireFromString("500.00")
	if !order.TotalSum.Equal(want) {
		t.Fatalf("expected total 500.00, got %s", order.TotalSum)
	}
	if order.Status != domain.OrderNew {
		t.Fatalf("expected status new, got %s", order.Status)
	}
	if got := mustStock(t, svc, ctx, roseRef); got != 47 {
		t.Fatalf("expected rose stock 47 after order, got %d", got)
	}
	if got := mustStock(t, svc, ctx, kraftRef); got != 99 {
		t.Fatalf("expected kraft stock 99 after order, got %d", got)
	}
}

func TestCreateOrderAppliesDiscount(t *testing.T) {
	svc := newTestService()

	order, err := svc.CreateOrder(sellerCtx(), domain.OrderCreateRequest{
		ClientID:        1,
		DiscountPercent: 10,
		Items: []domain.OrderLineInput{
			{ItemType: domain.ItemFlower, ItemID: 1, Qty: 3},
			{ItemType: domain.ItemPackaging, ItemID: 1, Qty: 1},
		},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	want := decimal.RequireFromString("450.00")
	if !order.TotalSum.Equal(want) {
		t.Fatalf("expected total 450.00 at 10%% discount, got %s", order.TotalSum)
	}
}

func TestCreateOrderInsufficientStockLeavesNothingBehind(t *testing.T) {
	svc := newTestService()
	ctx := sellerCtx()

	_, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		ClientID: 1,
		Items: []domain.OrderLineInput{
			{ItemType: domain.ItemFlower, ItemID: 1, Qty: 3},
			{ItemType: domain.ItemPackaging, ItemID: 1, Qty: 101},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// The failing second line must not leave the first line's decrement behind.
	if got := mustStock(t, svc, ctx, roseRef); got != 50 {
		t.Fatalf("expected rose stock unchanged at 50, got %d", got)
	}
	if got := mustStock(t, svc, ctx, kraftRef); got != 100 {
		t.Fatalf("expected kraft stock unchanged at 100, got %d", got)
	}

	orders, err := svc.ListOrders(ctx, "", 0, 0)
	if err != nil {
		t.Fatalf("list orders failed: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("expected no orders after failed create, got %d", len(orders))
	}
}

func TestCreateOrderDuplicateLinesValidatedTogether(t *testing.T) {
	svc := newTestService()
	ctx := sellerCtx()

	// Two lines for the same flower, each within stock on its own but
	// over stock combined. The whole create must fail without touching
	// the ledger.
	_, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		ClientID: 1,
		Items: []domain.OrderLineInput{
			{ItemType: domain.ItemFlower, ItemID: 1, Qty: 30},
			{ItemType: domain.ItemFlower, ItemID: 1, Qty: 30},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if got := mustStock(t, svc, ctx, roseRef); got != 50 {
		t.Fatalf("expected rose stock unchanged at 50, got %d", got)
	}

	order, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		ClientID: 1,
		Items: []domain.OrderLineInput{
			{ItemType: domain.ItemFlower, ItemID: 1, Qty: 20},
			{ItemType: domain.ItemFlower, ItemID: 1, Qty: 20},
		},
	})
	if err != nil {
		t.Fatalf("create order with duplicate lines failed: %v", err)
	}
	want := decimal.RequireFromString("6000.00")
	if !order.TotalSum.Equal(want) {
		t.Fatalf("expected total 6000.00, got %s", order.TotalSum)
	}
	if got := mustStock(t, svc, ctx, roseRef); got != 10 {
		t.Fatalf("expected rose stock 10 after order, got %d", got)
	}
}

func TestCreateOrderUnknownItemRejected(t *testing.T) {
	svc := newTestService()
	ctx := sellerCtx()

	_, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		ClientID: 1,
		Items: []domain.OrderLineInput{
			{ItemType: domain.ItemFlower, ItemID: 1, Qty: 3},
			{ItemType: domain.ItemFlower, ItemID: 999, Qty: 1},
		},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown flower, got %v", err)
	}
	if got := mustStock(t, svc, ctx, roseRef); got != 50 {
		t.Fatalf("expected rose stock unchanged at 50, got %d", got)
	}
}

func TestCreateOrderRejectsEmptyCart(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateOrder(sellerCtx(), domain.OrderCreateRequest{ClientID: 1})
	if !errors.Is(err, store.ErrEmptyOrder) {
		t.Fatalf("expected ErrEmptyOrder, got %v", err)
	}
}

func TestClientOrdersForThemselvesAtListPrice(t *testing.T) {
	svc := newTestService()

	order, err := svc.CreateOrder(clientCtx(2), domain.OrderCreateRequest{
		ClientID:        1,
		DiscountPercent: 30,
		Items: []domain.OrderLineInput{
			{ItemType: domain.ItemFlower, ItemID: 1, Qty: 1},
		},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.ClientID != 2 {
		t.Fatalf("expected order bound to acting client 2, got %d", order.ClientID)
	}
	if order.DiscountPercent != 0 {
		t.Fatalf("expected client discount forced to 0, got %d", order.DiscountPercent)
	}
}

func TestCancelOrderRestoresStockOnce(t *testing.T) {
	svc := newTestService()
	ctx := sellerCtx()

	order, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		ClientID: 1,
		Items: []domain.OrderLineInput{
			{ItemType: domain.ItemFlower, ItemID: 1, Qty: 4},
		},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if got := mustStock(t, svc, ctx, roseRef); got != 46 {
		t.Fatalf("expected rose stock 46 after order, got %d", got)
	}

	cancelled, err := svc.CancelOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != domain.OrderCancelled {
		t.Fatalf("expected cancelled status, got %s", cancelled.Status)
	}
	if got := mustStock(t, svc, ctx, roseRef); got != 50 {
		t.Fatalf("expected rose stock restored to 50, got %d", got)
	}

	if _, err := svc.CancelOrder(ctx, order.ID); !errors.Is(err, store.ErrOrderTerminal) {
		t.Fatalf("expected ErrOrderTerminal on second cancel, got %v", err)
	}
	if got := mustStock(t, svc, ctx, roseRef); got != 50 {
		t.Fatalf("expected stock untouched by rejected cancel, got %d", got)
	}
}

func TestAdvanceOrderStatusFollowsLifecycle(t *testing.T) {
	svc := newTestService()
	ctx := sellerCtx()

	order, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		ClientID: 1,
		Items:    []domain.OrderLineInput{{ItemType: domain.ItemFlower, ItemID: 1, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if _, err := svc.AdvanceOrderStatus(ctx, order.ID, domain.OrderReady); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("expected skipping to ready to fail, got %v", err)
	}

	for _, next := range []domain.OrderStatus{domain.OrderAccepted, domain.OrderInProgress, domain.OrderReady} {
		updated, err := svc.AdvanceOrderStatus(ctx, order.ID, next)
		if err != nil {
			t.Fatalf("advance to %s failed: %v", next, err)
		}
		if updated.Status != next {
			t.Fatalf("expected status %s, got %s", next, updated.Status)
		}
	}

	if _, err := svc.AdvanceOrderStatus(ctx, order.ID, domain.OrderIssued); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("expected issued to be unreachable without payment, got %v", err)
	}
	if _, err := svc.AdvanceOrderStatus(ctx, order.ID, domain.OrderCancelled); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("expected cancel via status update to be rejected, got %v", err)
	}
}

func TestPayOrderIssuesExactlyOnce(t *testing.T) {
	svc := newTestService()
	ctx := sellerCtx()

	order, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		ClientID: 1,
		Items: []domain.OrderLineInput{
			{ItemType: domain.ItemFlower, ItemID: 1, Qty: 3},
			{ItemType: domain.ItemPackaging, ItemID: 1, Qty: 1},
		},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	payment, err := svc.PayOrder(ctx, order.ID, domain.PayCard)
	if err != nil {
		t.Fatalf("pay failed: %v", err)
	}
	if !payment.Amount.Equal(order.TotalSum) {
		t.Fatalf("expected payment amount %s, got %s", order.TotalSum, payment.Amount)
	}

	issued, err := svc.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if issued.Status != domain.OrderIssued {
		t.Fatalf("expected issued after payment, got %s", issued.Status)
	}

	if _, err := svc.PayOrder(ctx, order.ID, domain.PayCash); !errors.Is(err, store.ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid on second payment, got %v", err)
	}

	if _, err := svc.ModifyOrder(ctx, order.ID, domain.OrderModifyRequest{
		Lines: []domain.OrderLineInput{{ItemType: domain.ItemFlower, ItemID: 1, Qty: 5}},
	}); !errors.Is(err, store.ErrOrderTerminal) {
		t.Fatalf("expected ErrOrderTerminal modifying issued order, got %v", err)
	}
}

func TestPayCancelledOrderRejected(t *testing.T) {
	svc := newTestService()
	ctx := sellerCtx()

	order, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		ClientID: 1,
		Items:    []domain.OrderLineInput{{ItemType: domain.ItemFlower, ItemID: 1, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := svc.CancelOrder(ctx, order.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if _, err := svc.PayOrder(ctx, order.ID, domain.PayCash); !errors.Is(err, store.ErrOrderTerminal) {
		t.Fatalf("expected ErrOrderTerminal paying cancelled order, got %v", err)
	}
}

func TestModifyOrderAdjustsStockAndTotal(t *testing.T) {
	svc := newTestService()
	ctx := sellerCtx()

	order, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		ClientID: 1,
		Items:    []domain.OrderLineInput{{ItemType: domain.ItemFlower, ItemID: 1, Qty: 3}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	updated, err := svc.ModifyOrder(ctx, order.ID, domain.OrderModifyRequest{
		Lines: []domain.OrderLineInput{{ItemType: domain.ItemFlower, ItemID: 1, Qty: 5}},
	})
	if err != nil {
		t.Fatalf("modify failed: %v", err)
	}
	if !updated.TotalSum.Equal(decimal.RequireFromString("750.00")) {
		t.Fatalf("expected recomputed total 750.00, got %s", updated.TotalSum)
	}
	if got := mustStock(t, svc, ctx, roseRef); got != 45 {
		t.Fatalf("expected rose stock 45 after raising qty, got %d", got)
	}

	updated, err = svc.ModifyOrder(ctx, order.ID, domain.OrderModifyRequest{
		Lines: []domain.OrderLineInput{{ItemType: domain.ItemFlower, ItemID: 1, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("modify down failed: %v", err)
	}
	if !updated.TotalSum.Equal(decimal.RequireFromString("300.00")) {
		t.Fatalf("expected total 300.00 after lowering qty, got %s", updated.TotalSum)
	}
	if got := mustStock(t, svc, ctx, roseRef); got != 48 {
		t.Fatalf("expected rose stock 48 after lowering qty, got %d", got)
	}

	if _, err := svc.ModifyOrder(ctx, order.ID, domain.OrderModifyRequest{
		Lines: []domain.OrderLineInput{{ItemType: domain.ItemFlower, ItemID: 1, Qty: 500}},
	}); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock raising beyond stock, got %v", err)
	}
	if got := mustStock(t, svc, ctx, roseRef); got != 48 {
		t.Fatalf("expected stock untouched by rejected modify, got %d", got)
	}
}

func TestModifyOrderRepeatedLineLastWins(t *testing.T) {
	svc := newTestService()
	ctx := sellerCtx()

	order, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		ClientID: 1,
		Items:    []domain.OrderLineInput{{ItemType: domain.ItemFlower, ItemID: 1, Qty: 3}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	// The same line twice in one request: the last qty wins and the
	// ledger moves by exactly one delta, not both.
	updated, err := svc.ModifyOrder(ctx, order.ID, domain.OrderModifyRequest{
		Lines: []domain.OrderLineInput{
			{ItemType: domain.ItemFlower, ItemID: 1, Qty: 10},
			{ItemType: domain.ItemFlower, ItemID: 1, Qty: 5},
		},
	})
	if err != nil {
		t.Fatalf("modify failed: %v", err)
	}
	if !updated.TotalSum.Equal(decimal.RequireFromString("750.00")) {
		t.Fatalf("expected total 750.00 for qty 5, got %s", updated.TotalSum)
	}
	if got := mustStock(t, svc, ctx, roseRef); got != 45 {
		t.Fatalf("expected rose stock 45, got %d", got)
	}
}

func TestPurchaseLifecycleRestocksOnce(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	purchase, err := svc.CreatePurchase(ctx, domain.PurchaseCreateRequest{
		SupplierID: 1,
		Items: []domain.PurchaseLineInput{
			{ItemType: domain.ItemFlower, ItemID: 1, Qty: 20, Price: decimal.RequireFromString("120.00")},
		},
	})
	if err != nil {
		t.Fatalf("create purchase failed: %v", err)
	}
	if purchase.Status != domain.PurchaseNew {
		t.Fatalf("expected new purchase, got %s", purchase.Status)
	}

	sent, err := svc.SendPurchase(ctx, purchase.ID)
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if sent.Status != domain.PurchaseSent {
		t.Fatalf("expected sent status, got %s", sent.Status)
	}

	receipt, err := svc.ReceivePurchase(ctx, purchase.ID)
	if err != nil {
		t.Fatalf("receive failed: %v", err)
	}
	if len(receipt.Items) != 1 || receipt.Items[0].Qty != 20 {
		t.Fatalf("unexpected receipt items: %+v", receipt.Items)
	}
	if !receipt.Items[0].BuyPrice.Equal(decimal.RequireFromString("120.00")) {
		t.Fatalf("expected buy price 120.00, got %s", receipt.Items[0].BuyPrice)
	}
	if got := mustStock(t, svc, ctx, roseRef); got != 70 {
		t.Fatalf("expected rose stock 70 after receipt, got %d", got)
	}

	if _, err := svc.ReceivePurchase(ctx, purchase.ID); !errors.Is(err, store.ErrAlreadyReceived) {
		t.Fatalf("expected ErrAlreadyReceived, got %v", err)
	}
	if got := mustStock(t, svc, ctx, roseRef); got != 70 {
		t.Fatalf("expected stock unchanged by second receive, got %d", got)
	}
}

func TestReceiveCancelledPurchaseRejected(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	purchase, err := svc.CreatePurchase(ctx, domain.PurchaseCreateRequest{
		SupplierID: 1,
		Items: []domain.PurchaseLineInput{
			{ItemType: domain.ItemFlower, ItemID: 1, Qty: 10, Price: decimal.RequireFromString("120.00")},
		},
	})
	if err != nil {
		t.Fatalf("create purchase failed: %v", err)
	}
	if _, err := svc.CancelPurchase(ctx, purchase.ID); err != nil {
		t.Fatalf("cancel purchase failed: %v", err)
	}

	if _, err := svc.ReceivePurchase(ctx, purchase.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected cancelled purchase to be unreceivable, got %v", err)
	}
	if got := mustStock(t, svc, ctx, roseRef); got != 50 {
		t.Fatalf("expected stock unchanged, got %d", got)
	}
}

func TestWriteOffGuardsStock(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	writeOff, err := svc.WriteOff(ctx, domain.WriteOffRequest{FlowerID: 1, Qty: 5, Reason: domain.WriteOffExpired})
	if err != nil {
		t.Fatalf("write off failed: %v", err)
	}
	if writeOff.Qty != 5 {
		t.Fatalf("expected qty 5, got %d", writeOff.Qty)
	}
	if got := mustStock(t, svc, ctx, roseRef); got != 45 {
		t.Fatalf("expected rose stock 45 after write-off, got %d", got)
	}

	if _, err := svc.WriteOff(ctx, domain.WriteOffRequest{FlowerID: 1, Qty: 100, Reason: domain.WriteOffDamaged}); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if got := mustStock(t, svc, ctx, roseRef); got != 45 {
		t.Fatalf("expected stock unchanged after rejected write-off, got %d", got)
	}
}

func TestAdjustStockRejectsOverdraw(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	if err := svc.AdjustStock(ctx, roseRef, -60); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock on overdraw, got %v", err)
	}
	if err := svc.AdjustStock(ctx, roseRef, 10); err != nil {
		t.Fatalf("positive adjust failed: %v", err)
	}
	if got := mustStock(t, svc, ctx, roseRef); got != 60 {
		t.Fatalf("expected rose stock 60, got %d", got)
	}
}

func TestRoleGates(t *testing.T) {
	svc := newTestService()

	if _, err := svc.CreatePurchase(sellerCtx(), domain.PurchaseCreateRequest{
		SupplierID: 1,
		Items: []domain.PurchaseLineInput{
			{ItemType: domain.ItemFlower, ItemID: 1, Qty: 1, Price: decimal.RequireFromString("120.00")},
		},
	}); err == nil {
		t.Fatalf("expected seller to be refused purchase creation")
	}

	if _, err := svc.CreateOrder(managerCtx(), domain.OrderCreateRequest{
		ClientID: 1,
		Items:    []domain.OrderLineInput{{ItemType: domain.ItemFlower, ItemID: 1, Qty: 1}},
	}); err == nil {
		t.Fatalf("expected manager to be refused order creation")
	}

	if _, err := svc.ListAuditLogs(clientCtx(1), 10); err == nil {
		t.Fatalf("expected client to be refused audit log access")
	}

	if _, err := svc.StockLevel(context.Background(), roseRef); err == nil {
		t.Fatalf("expected unauthenticated stock access to fail")
	}

	if err := svc.AdjustStock(sellerCtx(), roseRef, 5); err == nil {
		t.Fatalf("expected seller to be refused manual stock adjustment")
	}
}

func TestClientOrderVisibilityScoped(t *testing.T) {
	svc := newTestService()

	order, err := svc.CreateOrder(clientCtx(1), domain.OrderCreateRequest{
		Items: []domain.OrderLineInput{{ItemType: domain.ItemFlower, ItemID: 1, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if _, err := svc.GetOrder(clientCtx(2), order.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected other client to get not found, got %v", err)
	}

	orders, err := svc.ListOrders(clientCtx(2), "", 1, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("expected other client to see no orders, got %d", len(orders))
	}
}

func TestCustomRequestLifecycle(t *testing.T) {
	svc := newTestService()

	created, err := svc.CreateCustomRequest(clientCtx(1), domain.CustomRequestCreateRequest{
		DesiredDate: "2026-09-15",
		Wishes:      "something in white and yellow",
		Items:       []domain.CustomRequestItem{{FlowerID: 2, Qty: 7}},
	})
	if err != nil {
		t.Fatalf("create custom request failed: %v", err)
	}
	if created.Status != domain.CustomRequestNew {
		t.Fatalf("expected new status, got %s", created.Status)
	}
	if created.ClientID != 1 {
		t.Fatalf("expected request bound to client 1, got %d", created.ClientID)
	}

	reviewed, err := svc.ReviewCustomRequest(managerCtx(), created.ID)
	if err != nil {
		t.Fatalf("review failed: %v", err)
	}
	if reviewed.Status != domain.CustomRequestReviewed {
		t.Fatalf("expected reviewed status, got %s", reviewed.Status)
	}

	mine, err := svc.ListCustomRequests(clientCtx(2), "", 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(mine) != 0 {
		t.Fatalf("expected other client to see no requests, got %d", len(mine))
	}
}

type countingCache struct {
	listing *domain.CatalogListing
	sets    int
	hits    int
}

func (c *countingCache) Get(_ context.Context, key string) (*domain.CatalogListing, bool, error) {
	if c.listing != nil {
		c.hits++
		return c.listing, true, nil
	}
	return nil, false, nil
}

func (c *countingCache) Set(_ context.Context, key string, listing *domain.CatalogListing, _ time.Duration) error {
	c.sets++
	c.listing = listing
	return nil
}

func TestCatalogListingsAreCached(t *testing.T) {
	cc := &countingCache{}
	svc := New(memory.NewSeeded(), cc, 5*time.Second)
	ctx := sellerCtx()

	first, err := svc.ListFlowers(ctx)
	if err != nil {
		t.Fatalf("first list failed: %v", err)
	}
	if cc.sets != 1 {
		t.Fatalf("expected one cache fill, got %d", cc.sets)
	}

	second, err := svc.ListFlowers(ctx)
	if err != nil {
		t.Fatalf("second list failed: %v", err)
	}
	if cc.hits != 1 {
		t.Fatalf("expected cache hit on second list, got %d", cc.hits)
	}
	if len(first) != len(second) {
		t.Fatalf("expected identical listings, got %d vs %d", len(first), len(second))
	}
}
