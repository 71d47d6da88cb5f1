package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemType discriminates which catalog table an item reference points at.
type ItemType string

const (
	ItemFlower    ItemType = "FLOWER"
	ItemBouquet   ItemType = "BOUQUET"
	ItemPackaging ItemType = "PACKAGING"
	ItemAccessory ItemType = "ACCESSORY"
)

func (t ItemType) Valid() bool {
	switch t {
	case ItemFlower, ItemBouquet, ItemPackaging, ItemAccessory:
		return true
	}
	return false
}

// Purchasable reports whether the item type can appear on a purchase order.
// Bouquets are assembled in-house and never bought from suppliers.
func (t ItemType) Purchasable() bool {
	return t == ItemFlower || t == ItemPackaging || t == ItemAccessory
}

// ItemRef identifies one catalog row across the four item tables.
type ItemRef struct {
	Type ItemType `json:"item_type"`
	ID   int64    `json:"item_id"`
}

// CatalogItem is the read-side projection shared by all item types.
type CatalogItem struct {
	Ref    ItemRef         `json:"ref"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Active bool            `json:"active"`
}

type Flower struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Variety       string          `json:"variety"`
	Color         string          `json:"color"`
	Price         decimal.Decimal `json:"price"`
	ShelfLifeDays int             `json:"shelf_life_days"`
	Active        bool            `json:"active"`
}

type Bouquet struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Occasion string          `json:"occasion"`
	Price    decimal.Decimal `json:"price"`
	Active   bool            `json:"active"`
	Items    []BouquetItem   `json:"items,omitempty"`
}

type BouquetItem struct {
	FlowerID int64 `json:"flower_id"`
	Qty      int   `json:"qty"`
}

type Packaging struct {
	ID     int64           `json:"id"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Active bool            `json:"active"`
}

type Accessory struct {
	ID     int64           `json:"id"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Active bool            `json:"active"`
}

// InventoryEntry is the quantity on hand for one item reference.
// Qty never goes negative; a decrement that would cross zero fails the
// whole unit of work it belongs to.
type InventoryEntry struct {
	Ref ItemRef `json:"ref"`
	Qty int     `json:"qty"`
}

// OrderStatus is the enumerated order lifecycle state.
type OrderStatus string

const (
	OrderNew        OrderStatus = "new"
	OrderAccepted   OrderStatus = "accepted"
	OrderInProgress OrderStatus = "in_progress"
	OrderReady      OrderStatus = "ready"
	OrderIssued     OrderStatus = "issued"
	OrderCancelled  OrderStatus = "cancelled"
)

// Terminal reports whether no further mutation of the order is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderIssued || s == OrderCancelled
}

// forward chain; issued is only reachable through payment and cancelled
// only through CancelOrder, so neither appears as an advance target.
var orderNext = map[OrderStatus]OrderStatus{
	OrderNew:        OrderAccepted,
	OrderAccepted:   OrderInProgress,
	OrderInProgress: OrderReady,
}

// CanAdvance reports whether s -> next is a legal forward transition.
func (s OrderStatus) CanAdvance(next OrderStatus) bool {
	return orderNext[s] == next && next != ""
}

type Order struct {
	ID              int64           `json:"id"`
	ClientID        int64           `json:"client_id"`
	CreatedBy       string          `json:"created_by"`
	Status          OrderStatus     `json:"status"`
	DiscountPercent int             `json:"discount_percent"`
	TotalSum        decimal.Decimal `json:"total_sum"`
	CreatedAt       time.Time       `json:"created_at"`
	Items           []OrderItem     `json:"items"`
}

type OrderItem struct {
	ID      int64           `json:"id"`
	Ref     ItemRef         `json:"ref"`
	Qty     int             `json:"qty"`
	Price   decimal.Decimal `json:"price"`
	LineSum decimal.Decimal `json:"line_sum"`
}

type OrderLineInput struct {
	ItemType ItemType `json:"item_type"`
	ItemID   int64    `json:"item_id"`
	Qty      int      `json:"qty"`
}

type OrderCreateRequest struct {
	ClientID        int64            `json:"client_id"`
	DiscountPercent int              `json:"discount_percent"`
	Items           []OrderLineInput `json:"items"`
}

// OrderModifyRequest carries the new absolute qty per line (keyed by item
// reference) and an optional new discount. Lines absent from the request
// keep their current qty.
type OrderModifyRequest struct {
	Lines           []OrderLineInput `json:"lines"`
	DiscountPercent *int             `json:"discount_percent,omitempty"`
}

type PaymentMethod string

const (
	PayCash PaymentMethod = "cash"
	PayCard PaymentMethod = "card"
)

func (m PaymentMethod) Valid() bool {
	return m == PayCash || m == PayCard
}

type Payment struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	Method    PaymentMethod   `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

type PurchaseStatus string

const (
	PurchaseNew       PurchaseStatus = "new"
	PurchaseSent      PurchaseStatus = "sent"
	PurchaseReceived  PurchaseStatus = "received"
	PurchaseCancelled PurchaseStatus = "cancelled"
)

func (s PurchaseStatus) Terminal() bool {
	return s == PurchaseReceived || s == PurchaseCancelled
}

type PurchaseOrder struct {
	ID         int64          `json:"id"`
	SupplierID int64          `json:"supplier_id"`
	Status     PurchaseStatus `json:"status"`
	CreatedBy  string         `json:"created_by"`
	CreatedAt  time.Time      `json:"created_at"`
	Items      []PurchaseItem `json:"items"`
}

type PurchaseItem struct {
	ID    int64           `json:"id"`
	Ref   ItemRef         `json:"ref"`
	Qty   int             `json:"qty"`
	Price decimal.Decimal `json:"price"`
}

type PurchaseLineInput struct {
	ItemType ItemType        `json:"item_type"`
	ItemID   int64           `json:"item_id"`
	Qty      int             `json:"qty"`
	Price    decimal.Decimal `json:"price"`
}

type PayOrderRequest struct {
	Method PaymentMethod `json:"method"`
}

type OrderStatusUpdateRequest struct {
	Status OrderStatus `json:"status"`
}

type StockAdjustRequest struct {
	ItemType ItemType `json:"item_type"`
	ItemID   int64    `json:"item_id"`
	Delta    int      `json:"delta"`
}

type PurchaseCreateRequest struct {
	SupplierID int64               `json:"supplier_id"`
	Items      []PurchaseLineInput `json:"items"`
}

type Receipt struct {
	ID         int64         `json:"id"`
	PurchaseID int64         `json:"purchase_id"`
	ReceivedBy string        `json:"received_by"`
	ReceivedAt time.Time     `json:"received_at"`
	Items      []ReceiptItem `json:"items"`
}

type ReceiptItem struct {
	ID       int64           `json:"id"`
	Ref      ItemRef         `json:"ref"`
	Qty      int             `json:"qty"`
	BuyPrice decimal.Decimal `json:"buy_price"`
}

type WriteOffReason string

const (
	WriteOffExpired WriteOffReason = "expired"
	WriteOffDamaged WriteOffReason = "damaged"
	WriteOffOther   WriteOffReason = "other"
)

func (r WriteOffReason) Valid() bool {
	return r == WriteOffExpired || r == WriteOffDamaged || r == WriteOffOther
}

type WriteOff struct {
	ID        int64          `json:"id"`
	FlowerID  int64          `json:"flower_id"`
	Qty       int            `json:"qty"`
	Reason    WriteOffReason `json:"reason"`
	CreatedBy string         `json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
}

type WriteOffRequest struct {
	FlowerID int64          `json:"flower_id"`
	Qty      int            `json:"qty"`
	Reason   WriteOffReason `json:"reason"`
}

type Supplier struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type SupplierPrice struct {
	SupplierID int64           `json:"supplier_id"`
	Ref        ItemRef         `json:"ref"`
	Price      decimal.Decimal `json:"price"`
}

type CustomRequestStatus string

const (
	CustomRequestNew      CustomRequestStatus = "new"
	CustomRequestReviewed CustomRequestStatus = "reviewed"
)

type CustomRequest struct {
	ID          int64               `json:"id"`
	ClientID    int64               `json:"client_id"`
	DesiredDate time.Time           `json:"desired_date"`
	Wishes      string              `json:"wishes"`
	Status      CustomRequestStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	Items       []CustomRequestItem `json:"items"`
}

type CustomRequestItem struct {
	FlowerID int64 `json:"flower_id"`
	Qty      int   `json:"qty"`
}

type CustomRequestCreateRequest struct {
	DesiredDate string              `json:"desired_date"`
	Wishes      string              `json:"wishes"`
	Items       []CustomRequestItem `json:"items"`
}

type Client struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
}

// CatalogListing is the cacheable projection of one catalog section.
type CatalogListing struct {
	Flowers     []Flower    `json:"flowers,omitempty"`
	Bouquets    []Bouquet   `json:"bouquets,omitempty"`
	Packaging   []Packaging `json:"packaging,omitempty"`
	Accessories []Accessory `json:"accessories,omitempty"`
}

const (
	RoleSeller  = "seller"
	RoleManager = "manager"
	RoleClient  = "client"
)

// Actor is the authenticated caller attached to a request context.
type Actor struct {
	Username string
	Role     string
	ClientID int64
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type UserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	ClientID int64  `json:"client_id,omitempty"`
}

type User struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	Active    bool      `json:"active"`
	ClientID  int64     `json:"client_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is the persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	FullName  string
	Phone     string
	Active    bool
	ClientID  int64
	CreatedAt time.Time
}

type AuditLog struct {
	ID            int64     `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      int64     `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

// LineTotal computes qty x price rounded to cents.
func LineTotal(qty int, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty))).Round(2)
}

// OrderTotal applies the percent discount to the sum of line sums and
// rounds to cents: total = sum x (1 - discount/100).
func OrderTotal(lineSums []decimal.Decimal, discountPercent int) decimal.Decimal {
	sum := decimal.Zero
	for _, s := range lineSums {
		sum = sum.Add(s)
	}
	if discountPercent <= 0 {
		return sum.Round(2)
	}
	factor := decimal.NewFromInt(100 - int64(discountPercent)).Div(decimal.NewFromInt(100))
	return sum.Mul(factor).Round(2)
}
