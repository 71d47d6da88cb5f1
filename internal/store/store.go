package store

import (
	"context"
	"errors"

	"flowershop/backend/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrOrderTerminal      = errors.New("order is in a terminal status")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrAlreadyReceived    = errors.New("purchase order already received")
	ErrAlreadyPaid        = errors.New("order already paid")
	ErrEmptyOrder         = errors.New("order has no items")
	ErrEmptyPurchase      = errors.New("purchase order has no items")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Repository is the persistence boundary. Every method that mutates
// inventory together with an owning entity (order, receipt, write-off,
// payment) executes as one atomic unit: either the entity write and all
// of its stock adjustments commit, or none do.
type Repository interface {
	// Catalog (read side).
	GetCatalogItem(ctx context.Context, ref domain.ItemRef) (*domain.CatalogItem, error)
	ListFlowers(ctx context.Context, activeOnly bool) ([]domain.Flower, error)
	ListBouquets(ctx context.Context, activeOnly bool) ([]domain.Bouquet, error)
	ListPackaging(ctx context.Context, activeOnly bool) ([]domain.Packaging, error)
	ListAccessories(ctx context.Context, activeOnly bool) ([]domain.Accessory, error)

	// Inventory ledger.
	StockLevel(ctx context.Context, ref domain.ItemRef) (int, error)
	AdjustStock(ctx context.Context, ref domain.ItemRef, delta int) error
	ListInventory(ctx context.Context) ([]domain.InventoryEntry, error)

	// Orders.
	CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	GetOrderByID(ctx context.Context, orderID int64) (*domain.Order, error)
	ListOrders(ctx context.Context, status domain.OrderStatus, clientID int64, limit int) ([]domain.Order, error)
	ModifyOrder(ctx context.Context, orderID int64, lines []domain.OrderLineInput, discountPercent *int) (*domain.Order, error)
	CancelOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	AdvanceOrderStatus(ctx context.Context, orderID int64, next domain.OrderStatus) (*domain.Order, error)

	// Payments.
	PayOrder(ctx context.Context, orderID int64, method domain.PaymentMethod) (*domain.Payment, error)
	GetPaymentByOrderID(ctx context.Context, orderID int64) (*domain.Payment, error)

	// Purchasing.
	CreatePurchaseOrder(ctx context.Context, po domain.PurchaseOrder) (*domain.PurchaseOrder, error)
	GetPurchaseOrderByID(ctx context.Context, purchaseID int64) (*domain.PurchaseOrder, error)
	ListPurchaseOrders(ctx context.Context, status domain.PurchaseStatus, limit int) ([]domain.PurchaseOrder, error)
	MarkPurchaseSent(ctx context.Context, purchaseID int64) (*domain.PurchaseOrder, error)
	ReceivePurchaseOrder(ctx context.Context, purchaseID int64, receivedBy string) (*domain.Receipt, error)
	CancelPurchaseOrder(ctx context.Context, purchaseID int64) (*domain.PurchaseOrder, error)
	ListReceipts(ctx context.Context, limit int) ([]domain.Receipt, error)

	// Write-offs.
	CreateWriteOff(ctx context.Context, entry domain.WriteOff) (*domain.WriteOff, error)
	ListWriteOffs(ctx context.Context, limit int) ([]domain.WriteOff, error)

	// Suppliers.
	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	ListSupplierPrices(ctx context.Context, supplierID int64) ([]domain.SupplierPrice, error)

	// Clients.
	CreateClient(ctx context.Context, client domain.Client) (*domain.Client, error)
	GetClientByID(ctx context.Context, clientID int64) (*domain.Client, error)
	ListClients(ctx context.Context) ([]domain.Client, error)

	// Custom requests.
	CreateCustomRequest(ctx context.Context, req domain.CustomRequest) (*domain.CustomRequest, error)
	ListCustomRequests(ctx context.Context, status domain.CustomRequestStatus, clientID int64, limit int) ([]domain.CustomRequest, error)
	ReviewCustomRequest(ctx context.Context, requestID int64) (*domain.CustomRequest, error)

	// Audit.
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error)

	// Users.
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
