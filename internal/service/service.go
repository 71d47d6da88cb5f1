package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"flowershop/backend/internal/cache"
	"flowershop/backend/internal/domain"
	"flowershop/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo       store.Repository
	catalog    cache.CatalogCache
	catalogTTL time.Duration
}

func New(repo store.Repository, catalog cache.CatalogCache, catalogTTL time.Duration) *Service {
	if catalog == nil {
		catalog = cache.NoopCatalogCache{}
	}
	if catalogTTL <= 0 {
		catalogTTL = 60 * time.Second
	}

	return &Service{
		repo:       repo,
		catalog:    catalog,
		catalogTTL: catalogTTL,
	}
}

func (s *Service) requireRole(ctx context.Context, roles ...string) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, fmt.Errorf("authentication required")
	}
	for _, role := range roles {
		if actor.Role == role {
			return actor, nil
		}
	}
	return domain.Actor{}, fmt.Errorf("%s role required", strings.Join(roles, " or "))
}

// storageFailure maps unexpected persistence errors to a single reported
// kind while letting the workflow sentinels pass through untouched.
func storageFailure(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		store.ErrNotFound,
		store.ErrInsufficientStock,
		store.ErrOrderTerminal,
		store.ErrInvalidTransition,
		store.ErrAlreadyReceived,
		store.ErrAlreadyPaid,
		store.ErrEmptyOrder,
		store.ErrEmptyPurchase,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", store.ErrStorageUnavailable, err)
}

func (s *Service) ListFlowers(ctx context.Context) ([]domain.Flower, error) {
	if listing, ok, err := s.catalog.Get(ctx, "catalog:flowers"); err == nil && ok {
		return listing.Flowers, nil
	}
	flowers, err := s.repo.ListFlowers(ctx, true)
	if err != nil {
		return nil, storageFailure(err)
	}
	if err := s.catalog.Set(ctx, "catalog:flowers", &domain.CatalogListing{Flowers: flowers}, s.catalogTTL); err != nil {
		log.Printf("[service] WARN: failed to cache flower listing: %v", err)
	}
	return flowers, nil
}

func (s *Service) ListBouquets(ctx context.Context) ([]domain.Bouquet, error) {
	if listing, ok, err := s.catalog.Get(ctx, "catalog:bouquets"); err == nil && ok {
		return listing.Bouquets, nil
	}
	bouquets, err := s.repo.ListBouquets(ctx, true)
	if err != nil {
		return nil, storageFailure(err)
	}
	if err := s.catalog.Set(ctx, "catalog:bouquets", &domain.CatalogListing{Bouquets: bouquets}, s.catalogTTL); err != nil {
		log.Printf("[service] WARN: failed to cache bouquet listing: %v", err)
	}
	return bouquets, nil
}

func (s *Service) ListPackaging(ctx context.Context) ([]domain.Packaging, error) {
	if listing, ok, err := s.catalog.Get(ctx, "catalog:packaging"); err == nil && ok {
		return listing.Packaging, nil
	}
	items, err := s.repo.ListPackaging(ctx, true)
	if err != nil {
		return nil, storageFailure(err)
	}
	if err := s.catalog.Set(ctx, "catalog:packaging", &domain.CatalogListing{Packaging: items}, s.catalogTTL); err != nil {
		log.Printf("[service] WARN: failed to cache packaging listing: %v", err)
	}
	return items, nil
}

func (s *Service) ListAccessories(ctx context.Context) ([]domain.Accessory, error) {
	if listing, ok, err := s.catalog.Get(ctx, "catalog:accessories"); err == nil && ok {
		return listing.Accessories, nil
	}
	items, err := s.repo.ListAccessories(ctx, true)
	if err != nil {
		return nil, storageFailure(err)
	}
	if err := s.catalog.Set(ctx, "catalog:accessories", &domain.CatalogListing{Accessories: items}, s.catalogTTL); err != nil {
		log.Printf("[service] WARN: failed to cache accessory listing: %v", err)
	}
	return items, nil
}

func (s *Service) GetItem(ctx context.Context, ref domain.ItemRef) (domain.CatalogItem, error) {
	if !ref.Type.Valid() || ref.ID < 1 {
		return domain.CatalogItem{}, store.ErrNotFound
	}
	item, err := s.repo.GetCatalogItem(ctx, ref)
	if err != nil {
		return domain.CatalogItem{}, storageFailure(err)
	}
	return *item, nil
}

func (s *Service) StockLevel(ctx context.Context, ref domain.ItemRef) (int, error) {
	if _, err := s.requireRole(ctx, domain.RoleSeller, domain.RoleManager); err != nil {
		return 0, err
	}
	if !ref.Type.Valid() {
		return 0, store.ErrNotFound
	}
	qty, err := s.repo.StockLevel(ctx, ref)
	if err != nil {
		return 0, storageFailure(err)
	}
	return qty, nil
}

func (s *Service) ListInventory(ctx context.Context) ([]domain.InventoryEntry, error) {
	if _, err := s.requireRole(ctx, domain.RoleSeller, domain.RoleManager); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListInventory(ctx)
	if err != nil {
		return nil, storageFailure(err)
	}
	return entries, nil
}

// AdjustStock is a manual manager correction outside the normal
// workflows. Everything else reaches the ledger through an order,
// receipt or write-off transaction.
func (s *Service) AdjustStock(ctx context.Context, ref domain.ItemRef, delta int) error {
	actor, err := s.requireRole(ctx, domain.RoleManager)
	if err != nil {
		return err
	}
	if !ref.Type.Valid() || ref.ID < 1 {
		return store.ErrNotFound
	}
	if delta == 0 {
		return fmt.Errorf("delta must be non-zero")
	}
	if err := s.repo.AdjustStock(ctx, ref, delta); err != nil {
		return storageFailure(err)
	}
	s.logAudit(ctx, "stock_adjust", string(ref.Type), ref.ID, fmt.Sprintf("delta=%d,by=%s", delta, actor.Username))
	return nil
}

func (s *Service) CreateOrder(ctx context.Context, req domain.OrderCreateRequest) (domain.Order, error) {
	actor, err := s.requireRole(ctx, domain.RoleSeller, domain.RoleClient)
	if err != nil {
		return domain.Order{}, err
	}
	if actor.Role == domain.RoleClient {
		// Clients order for themselves at list price.
		req.ClientID = actor.ClientID
		req.DiscountPercent = 0
	}
	if req.ClientID < 1 {
		return domain.Order{}, store.ErrNotFound
	}
	if len(req.Items) == 0 {
		return domain.Order{}, store.ErrEmptyOrder
	}
	if req.DiscountPercent < 0 || req.DiscountPercent > 100 {
		return domain.Order{}, fmt.Errorf("discount percent must be between 0 and 100")
	}

	order := domain.Order{
		ClientID:        req.ClientID,
		CreatedBy:       actor.Username,
		DiscountPercent: req.DiscountPercent,
		Items:           make([]domain.OrderItem, 0, len(req.Items)),
	}
	for _, line := range req.Items {
		if !line.ItemType.Valid() || line.ItemID < 1 {
			return domain.Order{}, store.ErrNotFound
		}
		if line.Qty < 1 {
			return domain.Order{}, store.ErrEmptyOrder
		}
		order.Items = append(order.Items, domain.OrderItem{
			Ref: domain.ItemRef{Type: line.ItemType, ID: line.ItemID},
			Qty: line.Qty,
		})
	}

	created, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		return domain.Order{}, storageFailure(err)
	}

	s.logAudit(ctx, "order_create", "order", created.ID, fmt.Sprintf("client=%d,items=%d,total=%s", created.ClientID, len(created.Items), created.TotalSum.StringFixed(2)))
	return *created, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID int64) (domain.Order, error) {
	actor, err := s.requireRole(ctx, domain.RoleSeller, domain.RoleManager, domain.RoleClient)
	if err != nil {
		return domain.Order{}, err
	}
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, storageFailure(err)
	}
	if actor.Role == domain.RoleClient && order.ClientID != actor.ClientID {
		return domain.Order{}, store.ErrNotFound
	}
	return *order, nil
}

func (s *Service) ListOrders(ctx context.Context, status domain.OrderStatus, clientID int64, limit int) ([]domain.Order, error) {
	actor, err := s.requireRole(ctx, domain.RoleSeller, domain.RoleManager, domain.RoleClient)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleClient {
		clientID = actor.ClientID
	}
	orders, err := s.repo.ListOrders(ctx, status, clientID, limit)
	if err != nil {
		return nil, storageFailure(err)
	}
	return orders, nil
}

func (s *Service) ModifyOrder(ctx context.Context, orderID int64, req domain.OrderModifyRequest) (domain.Order, error) {
	if _, err := s.requireRole(ctx, domain.RoleSeller); err != nil {
		return domain.Order{}, err
	}
	if len(req.Lines) == 0 && req.DiscountPercent == nil {
		return domain.Order{}, fmt.Errorf("nothing to modify")
	}
	if req.DiscountPercent != nil && (*req.DiscountPercent < 0 || *req.DiscountPercent > 100) {
		return domain.Order{}, fmt.Errorf("discount percent must be between 0 and 100")
	}
	for _, line := range req.Lines {
		if !line.ItemType.Valid() || line.ItemID < 1 {
			return domain.Order{}, store.ErrNotFound
		}
		if line.Qty < 1 {
			return domain.Order{}, store.ErrEmptyOrder
		}
	}

	updated, err := s.repo.ModifyOrder(ctx, orderID, req.Lines, req.DiscountPercent)
	if err != nil {
		return domain.Order{}, storageFailure(err)
	}

	s.logAudit(ctx, "order_modify", "order", orderID, fmt.Sprintf("lines=%d,total=%s", len(req.Lines), updated.TotalSum.StringFixed(2)))
	return *updated, nil
}

func (s *Service) CancelOrder(ctx context.Context, orderID int64) (domain.Order, error) {
	actor, err := s.requireRole(ctx, domain.RoleSeller, domain.RoleClient)
	if err != nil {
		return domain.Order{}, err
	}
	if actor.Role == domain.RoleClient {
		order, err := s.repo.GetOrderByID(ctx, orderID)
		if err != nil {
			return domain.Order{}, storageFailure(err)
		}
		if order.ClientID != actor.ClientID {
			return domain.Order{}, store.ErrNotFound
		}
	}

	cancelled, err := s.repo.CancelOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, storageFailure(err)
	}

	s.logAudit(ctx, "order_cancel", "order", orderID, fmt.Sprintf("items=%d", len(cancelled.Items)))
	return *cancelled, nil
}

func (s *Service) AdvanceOrderStatus(ctx context.Context, orderID int64, next domain.OrderStatus) (domain.Order, error) {
	if _, err := s.requireRole(ctx, domain.RoleSeller); err != nil {
		return domain.Order{}, err
	}
	switch next {
	case domain.OrderAccepted, domain.OrderInProgress, domain.OrderReady:
	case domain.OrderIssued:
		// issued is only reachable through payment
		return domain.Order{}, store.ErrInvalidTransition
	case domain.OrderCancelled:
		return domain.Order{}, store.ErrInvalidTransition
	default:
		return domain.Order{}, store.ErrInvalidTransition
	}

	updated, err := s.repo.AdvanceOrderStatus(ctx, orderID, next)
	if err != nil {
		return domain.Order{}, storageFailure(err)
	}

	s.logAudit(ctx, "order_status", "order", orderID, fmt.Sprintf("status=%s", next))
	return *updated, nil
}

func (s *Service) PayOrder(ctx context.Context, orderID int64, method domain.PaymentMethod) (domain.Payment, error) {
	actor, err := s.requireRole(ctx, domain.RoleSeller, domain.RoleClient)
	if err != nil {
		return domain.Payment{}, err
	}
	if !method.Valid() {
		return domain.Payment{}, fmt.Errorf("payment method must be cash or card")
	}
	if actor.Role == domain.RoleClient {
		order, err := s.repo.GetOrderByID(ctx, orderID)
		if err != nil {
			return domain.Payment{}, storageFailure(err)
		}
		if order.ClientID != actor.ClientID {
			return domain.Payment{}, store.ErrNotFound
		}
	}

	payment, err := s.repo.PayOrder(ctx, orderID, method)
	if err != nil {
		return domain.Payment{}, storageFailure(err)
	}

	s.logAudit(ctx, "order_pay", "order", orderID, fmt.Sprintf("method=%s,amount=%s", method, payment.Amount.StringFixed(2)))
	return *payment, nil
}

func (s *Service) CreatePurchase(ctx context.Context, req domain.PurchaseCreateRequest) (domain.PurchaseOrder, error) {
	actor, err := s.requireRole(ctx, domain.RoleManager)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	if req.SupplierID < 1 {
		return domain.PurchaseOrder{}, store.ErrNotFound
	}
	if len(req.Items) == 0 {
		return domain.PurchaseOrder{}, store.ErrEmptyPurchase
	}

	po := domain.PurchaseOrder{
		SupplierID: req.SupplierID,
		CreatedBy:  actor.Username,
		Items:      make([]domain.PurchaseItem, 0, len(req.Items)),
	}
	for _, line := range req.Items {
		if !line.ItemType.Purchasable() || line.ItemID < 1 {
			return domain.PurchaseOrder{}, fmt.Errorf("item type %s cannot be purchased", line.ItemType)
		}
		if line.Qty < 1 {
			return domain.PurchaseOrder{}, store.ErrEmptyPurchase
		}
		if line.Price.Sign() <= 0 {
			return domain.PurchaseOrder{}, fmt.Errorf("purchase price must be positive")
		}
		po.Items = append(po.Items, domain.PurchaseItem{
			Ref:   domain.ItemRef{Type: line.ItemType, ID: line.ItemID},
			Qty:   line.Qty,
			Price: line.Price,
		})
	}

	created, err := s.repo.CreatePurchaseOrder(ctx, po)
	if err != nil {
		return domain.PurchaseOrder{}, storageFailure(err)
	}

	s.logAudit(ctx, "purchase_create", "purchase_order", created.ID, fmt.Sprintf("supplier=%d,items=%d", created.SupplierID, len(created.Items)))
	return *created, nil
}

func (s *Service) GetPurchase(ctx context.Context, purchaseID int64) (domain.PurchaseOrder, error) {
	if _, err := s.requireRole(ctx, domain.RoleManager); err != nil {
		return domain.PurchaseOrder{}, err
	}
	po, err := s.repo.GetPurchaseOrderByID(ctx, purchaseID)
	if err != nil {
		return domain.PurchaseOrder{}, storageFailure(err)
	}
	return *po, nil
}

func (s *Service) ListPurchases(ctx context.Context, status domain.PurchaseStatus, limit int) ([]domain.PurchaseOrder, error) {
	if _, err := s.requireRole(ctx, domain.RoleManager); err != nil {
		return nil, err
	}
	orders, err := s.repo.ListPurchaseOrders(ctx, status, limit)
	if err != nil {
		return nil, storageFailure(err)
	}
	return orders, nil
}

func (s *Service) SendPurchase(ctx context.Context, purchaseID int64) (domain.PurchaseOrder, error) {
	if _, err := s.requireRole(ctx, domain.RoleManager); err != nil {
		return domain.PurchaseOrder{}, err
	}
	updated, err := s.repo.MarkPurchaseSent(ctx, purchaseID)
	if err != nil {
		return domain.PurchaseOrder{}, storageFailure(err)
	}
	s.logAudit(ctx, "purchase_send", "purchase_order", purchaseID, "status=sent")
	return *updated, nil
}

func (s *Service) ReceivePurchase(ctx context.Context, purchaseID int64) (domain.Receipt, error) {
	actor, err := s.requireRole(ctx, domain.RoleManager)
	if err != nil {
		return domain.Receipt{}, err
	}

	receipt, err := s.repo.ReceivePurchaseOrder(ctx, purchaseID, actor.Username)
	if err != nil {
		return domain.Receipt{}, storageFailure(err)
	}

	s.logAudit(ctx, "purchase_receive", "purchase_order", purchaseID, fmt.Sprintf("receipt=%d,items=%d", receipt.ID, len(receipt.Items)))
	return *receipt, nil
}

func (s *Service) CancelPurchase(ctx context.Context, purchaseID int64) (domain.PurchaseOrder, error) {
	if _, err := s.requireRole(ctx, domain.RoleManager); err != nil {
		return domain.PurchaseOrder{}, err
	}
	updated, err := s.repo.CancelPurchaseOrder(ctx, purchaseID)
	if err != nil {
		return domain.PurchaseOrder{}, storageFailure(err)
	}
	s.logAudit(ctx, "purchase_cancel", "purchase_order", purchaseID, "status=cancelled")
	return *updated, nil
}

func (s *Service) ListReceipts(ctx context.Context, limit int) ([]domain.Receipt, error) {
	if _, err := s.requireRole(ctx, domain.RoleManager); err != nil {
		return nil, err
	}
	receipts, err := s.repo.ListReceipts(ctx, limit)
	if err != nil {
		return nil, storageFailure(err)
	}
	return receipts, nil
}

func (s *Service) WriteOff(ctx context.Context, req domain.WriteOffRequest) (domain.WriteOff, error) {
	actor, err := s.requireRole(ctx, domain.RoleManager)
	if err != nil {
		return domain.WriteOff{}, err
	}
	if req.FlowerID < 1 {
		return domain.WriteOff{}, store.ErrNotFound
	}
	if req.Qty < 1 {
		return domain.WriteOff{}, fmt.Errorf("write-off qty must be positive")
	}
	if !req.Reason.Valid() {
		return domain.WriteOff{}, fmt.Errorf("write-off reason must be expired, damaged or other")
	}

	created, err := s.repo.CreateWriteOff(ctx, domain.WriteOff{
		FlowerID:  req.FlowerID,
		Qty:       req.Qty,
		Reason:    req.Reason,
		CreatedBy: actor.Username,
	})
	if err != nil {
		return domain.WriteOff{}, storageFailure(err)
	}

	s.logAudit(ctx, "write_off", "flower", req.FlowerID, fmt.Sprintf("qty=%d,reason=%s", req.Qty, req.Reason))
	return *created, nil
}

func (s *Service) ListWriteOffs(ctx context.Context, limit int) ([]domain.WriteOff, error) {
	if _, err := s.requireRole(ctx, domain.RoleManager); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListWriteOffs(ctx, limit)
	if err != nil {
		return nil, storageFailure(err)
	}
	return entries, nil
}

func (s *Service) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	if _, err := s.requireRole(ctx, domain.RoleManager); err != nil {
		return nil, err
	}
	suppliers, err := s.repo.ListSuppliers(ctx)
	if err != nil {
		return nil, storageFailure(err)
	}
	return suppliers, nil
}

func (s *Service) ListSupplierPrices(ctx context.Context, supplierID int64) ([]domain.SupplierPrice, error) {
	if _, err := s.requireRole(ctx, domain.RoleManager); err != nil {
		return nil, err
	}
	prices, err := s.repo.ListSupplierPrices(ctx, supplierID)
	if err != nil {
		return nil, storageFailure(err)
	}
	return prices, nil
}

func (s *Service) CreateClient(ctx context.Context, client domain.Client) (domain.Client, error) {
	if _, err := s.requireRole(ctx, domain.RoleSeller, domain.RoleManager); err != nil {
		return domain.Client{}, err
	}
	client.FullName = strings.TrimSpace(client.FullName)
	if client.FullName == "" {
		return domain.Client{}, fmt.Errorf("client full name is required")
	}

	created, err := s.repo.CreateClient(ctx, client)
	if err != nil {
		return domain.Client{}, storageFailure(err)
	}
	s.logAudit(ctx, "client_create", "client", created.ID, fmt.Sprintf("name=%s", created.FullName))
	return *created, nil
}

func (s *Service) ListClients(ctx context.Context) ([]domain.Client, error) {
	if _, err := s.requireRole(ctx, domain.RoleSeller, domain.RoleManager); err != nil {
		return nil, err
	}
	clients, err := s.repo.ListClients(ctx)
	if err != nil {
		return nil, storageFailure(err)
	}
	return clients, nil
}

func (s *Service) CreateCustomRequest(ctx context.Context, req domain.CustomRequestCreateRequest) (domain.CustomRequest, error) {
	actor, err := s.requireRole(ctx, domain.RoleClient)
	if err != nil {
		return domain.CustomRequest{}, err
	}
	if actor.ClientID < 1 {
		return domain.CustomRequest{}, fmt.Errorf("client account is not linked to a client record")
	}
	desired, err := time.Parse("2006-01-02", strings.TrimSpace(req.DesiredDate))
	if err != nil {
		return domain.CustomRequest{}, fmt.Errorf("desired_date must be formatted YYYY-MM-DD")
	}
	for _, item := range req.Items {
		if item.FlowerID < 1 || item.Qty < 1 {
			return domain.CustomRequest{}, fmt.Errorf("request items need a flower and positive qty")
		}
	}

	created, err := s.repo.CreateCustomRequest(ctx, domain.CustomRequest{
		ClientID:    actor.ClientID,
		DesiredDate: desired,
		Wishes:      strings.TrimSpace(req.Wishes),
		Items:       req.Items,
	})
	if err != nil {
		return domain.CustomRequest{}, storageFailure(err)
	}

	s.logAudit(ctx, "custom_request_create", "custom_request", created.ID, fmt.Sprintf("client=%d,items=%d", created.ClientID, len(created.Items)))
	return *created, nil
}

func (s *Service) ListCustomRequests(ctx context.Context, status domain.CustomRequestStatus, limit int) ([]domain.CustomRequest, error) {
	actor, err := s.requireRole(ctx, domain.RoleSeller, domain.RoleManager, domain.RoleClient)
	if err != nil {
		return nil, err
	}
	clientID := int64(0)
	if actor.Role == domain.RoleClient {
		clientID = actor.ClientID
	}
	requests, err := s.repo.ListCustomRequests(ctx, status, clientID, limit)
	if err != nil {
		return nil, storageFailure(err)
	}
	return requests, nil
}

func (s *Service) ReviewCustomRequest(ctx context.Context, requestID int64) (domain.CustomRequest, error) {
	if _, err := s.requireRole(ctx, domain.RoleManager); err != nil {
		return domain.CustomRequest{}, err
	}
	updated, err := s.repo.ReviewCustomRequest(ctx, requestID)
	if err != nil {
		return domain.CustomRequest{}, storageFailure(err)
	}
	s.logAudit(ctx, "custom_request_review", "custom_request", requestID, "status=reviewed")
	return *updated, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if _, err := s.requireRole(ctx, domain.RoleManager); err != nil {
		return nil, err
	}
	logs, err := s.repo.ListAuditLogs(ctx, limit)
	if err != nil {
		return nil, storageFailure(err)
	}
	return logs, nil
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID int64, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%d: %v", action, entityType, entityID, err)
	}
}
