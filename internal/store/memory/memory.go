package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"flowershop/backend/internal/domain"
	"flowershop/backend/internal/store"
)

type Store struct {
	mu              sync.RWMutex
	flowers         map[int64]domain.Flower
	bouquets        map[int64]domain.Bouquet
	packaging       map[int64]domain.Packaging
	accessories     map[int64]domain.Accessory
	inventory       map[domain.ItemRef]int
	orders          map[int64]domain.Order
	paymentsByOrder map[int64]domain.Payment
	purchases       map[int64]domain.PurchaseOrder
	receipts        map[int64]domain.Receipt
	writeOffs       []domain.WriteOff
	suppliers       map[int64]domain.Supplier
	supplierPrices  []domain.SupplierPrice
	clients         map[int64]domain.Client
	customRequests  map[int64]domain.CustomRequest
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
	seq             map[string]int64
}

func New() *Store {
	return &Store{
		flowers:         make(map[int64]domain.Flower),
		bouquets:        make(map[int64]domain.Bouquet),
		packaging:       make(map[int64]domain.Packaging),
		accessories:     make(map[int64]domain.Accessory),
		inventory:       make(map[domain.ItemRef]int),
		orders:          make(map[int64]domain.Order),
		paymentsByOrder: make(map[int64]domain.Payment),
		purchases:       make(map[int64]domain.PurchaseOrder),
		receipts:        make(map[int64]domain.Receipt),
		writeOffs:       make([]domain.WriteOff, 0, 32),
		suppliers:       make(map[int64]domain.Supplier),
		supplierPrices:  make([]domain.SupplierPrice, 0, 16),
		clients:         make(map[int64]domain.Client),
		customRequests:  make(map[int64]domain.CustomRequest),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: make(map[string]domain.UserAccount),
		seq:             make(map[string]int64),
	}
}

// seedUsers builds the initial user accounts for dev/demo mode.
// Passwords come from SEED_SELLER_PASSWORD, SEED_MANAGER_PASSWORD and
// SEED_CLIENT_PASSWORD; hardcoded dev defaults are used when unset, with
// a warning. Production deployments use PostgreSQL (DATABASE_URL set).
func seedUsers(clientIDs []int64) map[string]domain.UserAccount {
	sellerPwd := envOr("SEED_SELLER_PASSWORD", "seller123")
	managerPwd := envOr("SEED_MANAGER_PASSWORD", "manager123")
	clientPwd := envOr("SEED_CLIENT_PASSWORD", "client123")
	if os.Getenv("SEED_SELLER_PASSWORD") == "" || os.Getenv("SEED_MANAGER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_SELLER_PASSWORD, SEED_MANAGER_PASSWORD and SEED_CLIENT_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	accounts := []struct {
		username string
		password string
		role     string
		fullName string
		clientID int64
	}{
		{"seller", sellerPwd, domain.RoleSeller, "Anna Sokolova", 0},
		{"manager", managerPwd, domain.RoleManager, "Dmitry Volkov", 0},
	}
	for i, cid := range clientIDs {
		accounts = append(accounts, struct {
			username string
			password string
			role     string
			fullName string
			clientID int64
		}{fmt.Sprintf("client%d", i+1), clientPwd, domain.RoleClient, "", cid})
	}
	for _, u := range accounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			FullName:  u.fullName,
			Active:    true,
			ClientID:  u.clientID,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// NewSeeded returns a store pre-populated with a small demo shop:
// catalog, stock levels, suppliers, clients and user accounts.
func NewSeeded() *Store {
	s := New()

	flowers := []domain.Flower{
		{ID: 1, Name: "Rose", Variety: "Red Naomi", Color: "Red", Price: price("150.00"), ShelfLifeDays: 7, Active: true},
		{ID: 2, Name: "Rose", Variety: "White Naomi", Color: "White", Price: price("140.00"), ShelfLifeDays: 7, Active: true},
		{ID: 3, Name: "Tulip", Variety: "Darwin Hybrid", Color: "Yellow", Price: price("80.00"), ShelfLifeDays: 5, Active: true},
		{ID: 4, Name: "Chrysanthemum", Variety: "Spider", Color: "White", Price: price("100.00"), ShelfLifeDays: 10, Active: true},
		{ID: 5, Name: "Gerbera", Variety: "Gerbera", Color: "Orange", Price: price("90.00"), ShelfLifeDays: 8, Active: true},
	}
	bouquets := []domain.Bouquet{
		{ID: 1, Name: "Love", Occasion: "Birthday", Price: price("500.00"), Active: true,
			Items: []domain.BouquetItem{{FlowerID: 1, Qty: 5}, {FlowerID: 3, Qty: 3}}},
		{ID: 2, Name: "Tenderness", Occasion: "March 8", Price: price("600.00"), Active: true,
			Items: []domain.BouquetItem{{FlowerID: 2, Qty: 7}}},
		{ID: 3, Name: "Joy", Occasion: "Anniversary", Price: price("700.00"), Active: true,
			Items: []domain.BouquetItem{{FlowerID: 1, Qty: 3}, {FlowerID: 4, Qty: 5}}},
	}
	packaging := []domain.Packaging{
		{ID: 1, Name: "Kraft paper", Price: price("50.00"), Active: true},
		{ID: 2, Name: "Film wrap", Price: price("30.00"), Active: true},
		{ID: 3, Name: "Gift box", Price: price("150.00"), Active: true},
	}
	accessories := []domain.Accessory{
		{ID: 1, Name: "Satin ribbon", Price: price("20.00"), Active: true},
		{ID: 2, Name: "Greeting card", Price: price("30.00"), Active: true},
		{ID: 3, Name: "Glass vase", Price: price("200.00"), Active: true},
	}
	suppliers := []domain.Supplier{
		{ID: 1, Name: "Flowers Wholesale LLC", Phone: "+7-800-111-11-11", Email: "opt@flowers.example"},
		{ID: 2, Name: "Petrov Trading", Phone: "+7-900-999-88-77", Email: "petrov@mail.example"},
		{ID: 3, Name: "Rosa Company", Phone: "+7-800-222-22-22", Email: "rosa@mail.example"},
	}
	supplierPrices := []domain.SupplierPrice{
		{SupplierID: 1, Ref: domain.ItemRef{Type: domain.ItemFlower, ID: 1}, Price: price("120.00")},
		{SupplierID: 1, Ref: domain.ItemRef{Type: domain.ItemFlower, ID: 2}, Price: price("110.00")},
		{SupplierID: 1, Ref: domain.ItemRef{Type: domain.ItemFlower, ID: 3}, Price: price("60.00")},
		{SupplierID: 2, Ref: domain.ItemRef{Type: domain.ItemFlower, ID: 4}, Price: price("80.00")},
		{SupplierID: 2, Ref: domain.ItemRef{Type: domain.ItemPackaging, ID: 1}, Price: price("40.00")},
		{SupplierID: 3, Ref: domain.ItemRef{Type: domain.ItemFlower, ID: 5}, Price: price("70.00")},
	}
	clients := []domain.Client{
		{ID: 1, FullName: "Ivan Ivanov", Phone: "+7-900-111-22-33", Email: "ivanov@mail.example"},
		{ID: 2, FullName: "Maria Petrova", Phone: "+7-900-222-33-44", Email: "petrova@mail.example"},
		{ID: 3, FullName: "Petr Sidorov", Phone: "+7-900-333-44-55", Email: "sidorov@mail.example"},
	}

	for _, f := range flowers {
		s.flowers[f.ID] = f
		s.inventory[domain.ItemRef{Type: domain.ItemFlower, ID: f.ID}] = 50
	}
	for _, b := range bouquets {
		s.bouquets[b.ID] = b
		s.inventory[domain.ItemRef{Type: domain.ItemBouquet, ID: b.ID}] = 10
	}
	for _, p := range packaging {
		s.packaging[p.ID] = p
		s.inventory[domain.ItemRef{Type: domain.ItemPackaging, ID: p.ID}] = 100
	}
	for _, a := range accessories {
		s.accessories[a.ID] = a
		s.inventory[domain.ItemRef{Type: domain.ItemAccessory, ID: a.ID}] = 50
	}
	for _, sup := range suppliers {
		s.suppliers[sup.ID] = sup
	}
	s.supplierPrices = supplierPrices
	clientIDs := make([]int64, 0, len(clients))
	for _, c := range clients {
		s.clients[c.ID] = c
		clientIDs = append(clientIDs, c.ID)
	}
	s.seq["flower"] = int64(len(flowers))
	s.seq["bouquet"] = int64(len(bouquets))
	s.seq["packaging"] = int64(len(packaging))
	s.seq["accessory"] = int64(len(accessories))
	s.seq["supplier"] = int64(len(suppliers))
	s.seq["client"] = int64(len(clients))
	s.usersByUsername = seedUsers(clientIDs)
	return s
}

// next returns the following id for the named sequence. Caller must hold mu.
func (s *Store) next(entity string) int64 {
	s.seq[entity]++
	return s.seq[entity]
}

func (s *Store) GetCatalogItem(_ context.Context, ref domain.ItemRef) (*domain.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalogItemLocked(ref)
}

// catalogItemLocked resolves an item reference against the four catalog
// maps. Caller must hold mu (read or write).
func (s *Store) catalogItemLocked(ref domain.ItemRef) (*domain.CatalogItem, error) {
	item := domain.CatalogItem{Ref: ref}
	switch ref.Type {
	case domain.ItemFlower:
		f, ok := s.flowers[ref.ID]
		if !ok {
			return nil, store.ErrNotFound
		}
		item.Name = fmt.Sprintf("%s %s", f.Name, f.Variety)
		item.Price = f.Price
		item.Active = f.Active
	case domain.ItemBouquet:
		b, ok := s.bouquets[ref.ID]
		if !ok {
			return nil, store.ErrNotFound
		}
		item.Name = b.Name
		item.Price = b.Price
		item.Active = b.Active
	case domain.ItemPackaging:
		p, ok := s.packaging[ref.ID]
		if !ok {
			return nil, store.ErrNotFound
		}
		item.Name = p.Name
		item.Price = p.Price
		item.Active = p.Active
	case domain.ItemAccessory:
		a, ok := s.accessories[ref.ID]
		if !ok {
			return nil, store.ErrNotFound
		}
		item.Name = a.Name
		item.Price = a.Price
		item.Active = a.Active
	default:
		return nil, store.ErrNotFound
	}
	return &item, nil
}

func (s *Store) ListFlowers(_ context.Context, activeOnly bool) ([]domain.Flower, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flowers := make([]domain.Flower, 0, len(s.flowers))
	for _, f := range s.flowers {
		if activeOnly && !f.Active {
			continue
		}
		flowers = append(flowers, f)
	}
	slices.SortFunc(flowers, func(a, b domain.Flower) int { return int(a.ID - b.ID) })
	return flowers, nil
}

func (s *Store) ListBouquets(_ context.Context, activeOnly bool) ([]domain.Bouquet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bouquets := make([]domain.Bouquet, 0, len(s.bouquets))
	for _, b := range s.bouquets {
		if activeOnly && !b.Active {
			continue
		}
		copied := b
		copied.Items = slices.Clone(b.Items)
		bouquets = append(bouquets, copied)
	}
	slices.SortFunc(bouquets, func(a, b domain.Bouquet) int { return int(a.ID - b.ID) })
	return bouquets, nil
}

func (s *Store) ListPackaging(_ context.Context, activeOnly bool) ([]domain.Packaging, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.Packaging, 0, len(s.packaging))
	for _, p := range s.packaging {
		if activeOnly && !p.Active {
			continue
		}
		items = append(items, p)
	}
	slices.SortFunc(items, func(a, b domain.Packaging) int { return int(a.ID - b.ID) })
	return items, nil
}

func (s *Store) ListAccessories(_ context.Context, activeOnly bool) ([]domain.Accessory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.Accessory, 0, len(s.accessories))
	for _, a := range s.accessories {
		if activeOnly && !a.Active {
			continue
		}
		items = append(items, a)
	}
	slices.SortFunc(items, func(a, b domain.Accessory) int { return int(a.ID - b.ID) })
	return items, nil
}

func (s *Store) StockLevel(_ context.Context, ref domain.ItemRef) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inventory[ref], nil
}

func (s *Store) AdjustStock(_ context.Context, ref domain.ItemRef, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjustStockLocked(ref, delta)
}

// adjustStockLocked is the single choke point for stock mutation.
// Caller must hold mu.
func (s *Store) adjustStockLocked(ref domain.ItemRef, delta int) error {
	if !ref.Type.Valid() {
		return store.ErrNotFound
	}
	current := s.inventory[ref]
	if delta < 0 && current+delta < 0 {
		return store.ErrInsufficientStock
	}
	s.inventory[ref] = current + delta
	return nil
}

func (s *Store) ListInventory(_ context.Context) ([]domain.InventoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.InventoryEntry, 0, len(s.inventory))
	for ref, qty := range s.inventory {
		entries = append(entries, domain.InventoryEntry{Ref: ref, Qty: qty})
	}
	slices.SortFunc(entries, func(a, b domain.InventoryEntry) int {
		if a.Ref.Type == b.Ref.Type {
			return int(a.Ref.ID - b.Ref.ID)
		}
		return cmpString(string(a.Ref.Type), string(b.Ref.Type))
	})
	return entries, nil
}

func (s *Store) CreateOrder(_ context.Context, order domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(order.Items) == 0 {
		return nil, store.ErrEmptyOrder
	}
	// Price and validate every line before touching stock so a failing
	// line leaves the ledger untouched. Requested quantities are summed
	// per item reference; two lines for the same item must not both pass
	// against the initial quantity.
	needed := make(map[domain.ItemRef]int, len(order.Items))
	sums := make([]decimal.Decimal, 0, len(order.Items))
	for i, item := range order.Items {
		if item.Qty < 1 {
			return nil, store.ErrEmptyOrder
		}
		ci, err := s.catalogItemLocked(item.Ref)
		if err != nil {
			return nil, err
		}
		if !ci.Active {
			return nil, store.ErrNotFound
		}
		order.Items[i].Price = ci.Price
		order.Items[i].LineSum = domain.LineTotal(item.Qty, ci.Price)
		sums = append(sums, order.Items[i].LineSum)

		needed[item.Ref] += item.Qty
		if s.inventory[item.Ref] < needed[item.Ref] {
			return nil, store.ErrInsufficientStock
		}
	}
	for _, item := range order.Items {
		if err := s.adjustStockLocked(item.Ref, -item.Qty); err != nil {
			return nil, err
		}
	}
	order.TotalSum = domain.OrderTotal(sums, order.DiscountPercent)

	order.ID = s.next("order")
	order.Status = domain.OrderNew
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	for i := range order.Items {
		order.Items[i].ID = s.next("order_item")
	}
	s.orders[order.ID] = order
	created := cloneOrder(order)
	return &created, nil
}

func (s *Store) GetOrderByID(_ context.Context, orderID int64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := cloneOrder(order)
	return &copied, nil
}

func (s *Store) ListOrders(_ context.Context, status domain.OrderStatus, clientID int64, limit int) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if status != "" && o.Status != status {
			continue
		}
		if clientID > 0 && o.ClientID != clientID {
			continue
		}
		orders = append(orders, cloneOrder(o))
	}
	slices.SortFunc(orders, func(a, b domain.Order) int { return int(b.ID - a.ID) })
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (s *Store) ModifyOrder(_ context.Context, orderID int64, lines []domain.OrderLineInput, discountPercent *int) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if order.Status.Terminal() {
		return nil, store.ErrOrderTerminal
	}

	// Resolve the requested final qty per existing line, last occurrence
	// winning when a reference repeats, then validate every decrement up
	// front. A new qty below 1 is rejected; unknown refs as well.
	requested := make(map[int]int, len(lines))
	for _, ln := range lines {
		ref := domain.ItemRef{Type: ln.ItemType, ID: ln.ItemID}
		if ln.Qty < 1 {
			return nil, store.ErrEmptyOrder
		}
		idx := -1
		for i, item := range order.Items {
			if item.Ref == ref {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, store.ErrNotFound
		}
		requested[idx] = ln.Qty
	}

	type change struct {
		idx   int
		delta int
	}
	changes := make([]change, 0, len(requested))
	needed := make(map[domain.ItemRef]int, len(requested))
	for idx, qty := range requested {
		delta := qty - order.Items[idx].Qty
		if delta > 0 {
			ref := order.Items[idx].Ref
			needed[ref] += delta
			if s.inventory[ref] < needed[ref] {
				return nil, store.ErrInsufficientStock
			}
		}
		changes = append(changes, change{idx: idx, delta: delta})
	}

	for _, ch := range changes {
		item := order.Items[ch.idx]
		if err := s.adjustStockLocked(item.Ref, -ch.delta); err != nil {
			return nil, err
		}
		item.Qty += ch.delta
		item.LineSum = domain.LineTotal(item.Qty, item.Price)
		order.Items[ch.idx] = item
	}
	if discountPercent != nil {
		order.DiscountPercent = *discountPercent
	}
	sums := make([]decimal.Decimal, 0, len(order.Items))
	for _, item := range order.Items {
		sums = append(sums, item.LineSum)
	}
	order.TotalSum = domain.OrderTotal(sums, order.DiscountPercent)
	s.orders[orderID] = order
	updated := cloneOrder(order)
	return &updated, nil
}

func (s *Store) CancelOrder(_ context.Context, orderID int64) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if order.Status.Terminal() {
		return nil, store.ErrOrderTerminal
	}

	for _, item := range order.Items {
		if err := s.adjustStockLocked(item.Ref, item.Qty); err != nil {
			return nil, err
		}
	}
	order.Status = domain.OrderCancelled
	s.orders[orderID] = order
	updated := cloneOrder(order)
	return &updated, nil
}

func (s *Store) AdvanceOrderStatus(_ context.Context, orderID int64, next domain.OrderStatus) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if order.Status.Terminal() {
		return nil, store.ErrOrderTerminal
	}
	if !order.Status.CanAdvance(next) {
		return nil, store.ErrInvalidTransition
	}
	order.Status = next
	s.orders[orderID] = order
	updated := cloneOrder(order)
	return &updated, nil
}

func (s *Store) PayOrder(_ context.Context, orderID int64, method domain.PaymentMethod) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if _, exists := s.paymentsByOrder[orderID]; exists {
		return nil, store.ErrAlreadyPaid
	}
	if order.Status == domain.OrderCancelled {
		return nil, store.ErrOrderTerminal
	}

	payment := domain.Payment{
		ID:        s.next("payment"),
		OrderID:   orderID,
		Method:    method,
		Amount:    order.TotalSum,
		CreatedAt: time.Now().UTC(),
	}
	s.paymentsByOrder[orderID] = payment
	order.Status = domain.OrderIssued
	s.orders[orderID] = order
	created := payment
	return &created, nil
}

func (s *Store) GetPaymentByOrderID(_ context.Context, orderID int64) (*domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payment, ok := s.paymentsByOrder[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := payment
	return &copied, nil
}

func (s *Store) CreatePurchaseOrder(_ context.Context, po domain.PurchaseOrder) (*domain.PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(po.Items) == 0 {
		return nil, store.ErrEmptyPurchase
	}
	if _, ok := s.suppliers[po.SupplierID]; !ok {
		return nil, store.ErrNotFound
	}
	po.ID = s.next("purchase")
	po.Status = domain.PurchaseNew
	if po.CreatedAt.IsZero() {
		po.CreatedAt = time.Now().UTC()
	}
	for i := range po.Items {
		po.Items[i].ID = s.next("purchase_item")
	}
	s.purchases[po.ID] = po
	created := clonePurchase(po)
	return &created, nil
}

func (s *Store) GetPurchaseOrderByID(_ context.Context, purchaseID int64) (*domain.PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	po, ok := s.purchases[purchaseID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := clonePurchase(po)
	return &copied, nil
}

func (s *Store) ListPurchaseOrders(_ context.Context, status domain.PurchaseStatus, limit int) ([]domain.PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]domain.PurchaseOrder, 0, len(s.purchases))
	for _, po := range s.purchases {
		if status != "" && po.Status != status {
			continue
		}
		orders = append(orders, clonePurchase(po))
	}
	slices.SortFunc(orders, func(a, b domain.PurchaseOrder) int { return int(b.ID - a.ID) })
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (s *Store) MarkPurchaseSent(_ context.Context, purchaseID int64) (*domain.PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	po, ok := s.purchases[purchaseID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if po.Status == domain.PurchaseReceived {
		return nil, store.ErrAlreadyReceived
	}
	if po.Status != domain.PurchaseNew {
		return nil, store.ErrInvalidTransition
	}
	po.Status = domain.PurchaseSent
	s.purchases[purchaseID] = po
	updated := clonePurchase(po)
	return &updated, nil
}

func (s *Store) ReceivePurchaseOrder(_ context.Context, purchaseID int64, receivedBy string) (*domain.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	po, ok := s.purchases[purchaseID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if po.Status == domain.PurchaseReceived {
		return nil, store.ErrAlreadyReceived
	}
	if po.Status == domain.PurchaseCancelled {
		return nil, store.ErrNotFound
	}

	receipt := domain.Receipt{
		ID:         s.next("receipt"),
		PurchaseID: purchaseID,
		ReceivedBy: receivedBy,
		ReceivedAt: time.Now().UTC(),
		Items:      make([]domain.ReceiptItem, 0, len(po.Items)),
	}
	for _, item := range po.Items {
		if err := s.adjustStockLocked(item.Ref, item.Qty); err != nil {
			return nil, err
		}
		receipt.Items = append(receipt.Items, domain.ReceiptItem{
			ID:       s.next("receipt_item"),
			Ref:      item.Ref,
			Qty:      item.Qty,
			BuyPrice: item.Price,
		})
	}
	po.Status = domain.PurchaseReceived
	s.purchases[purchaseID] = po
	s.receipts[receipt.ID] = receipt
	created := cloneReceipt(receipt)
	return &created, nil
}

func (s *Store) CancelPurchaseOrder(_ context.Context, purchaseID int64) (*domain.PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	po, ok := s.purchases[purchaseID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if po.Status == domain.PurchaseReceived {
		return nil, store.ErrAlreadyReceived
	}
	if po.Status == domain.PurchaseCancelled {
		return nil, store.ErrInvalidTransition
	}
	po.Status = domain.PurchaseCancelled
	s.purchases[purchaseID] = po
	updated := clonePurchase(po)
	return &updated, nil
}

func (s *Store) ListReceipts(_ context.Context, limit int) ([]domain.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	receipts := make([]domain.Receipt, 0, len(s.receipts))
	for _, r := range s.receipts {
		receipts = append(receipts, cloneReceipt(r))
	}
	slices.SortFunc(receipts, func(a, b domain.Receipt) int { return int(b.ID - a.ID) })
	if limit > 0 && len(receipts) > limit {
		receipts = receipts[:limit]
	}
	return receipts, nil
}

func (s *Store) CreateWriteOff(_ context.Context, entry domain.WriteOff) (*domain.WriteOff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.flowers[entry.FlowerID]; !ok {
		return nil, store.ErrNotFound
	}
	ref := domain.ItemRef{Type: domain.ItemFlower, ID: entry.FlowerID}
	if err := s.adjustStockLocked(ref, -entry.Qty); err != nil {
		return nil, err
	}
	entry.ID = s.next("write_off")
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.writeOffs = append(s.writeOffs, entry)
	created := entry
	return &created, nil
}

func (s *Store) ListWriteOffs(_ context.Context, limit int) ([]domain.WriteOff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.WriteOff, len(s.writeOffs))
	copy(result, s.writeOffs)
	slices.SortFunc(result, func(a, b domain.WriteOff) int { return int(b.ID - a.ID) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	suppliers := make([]domain.Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		suppliers = append(suppliers, sup)
	}
	slices.SortFunc(suppliers, func(a, b domain.Supplier) int { return int(a.ID - b.ID) })
	return suppliers, nil
}

func (s *Store) ListSupplierPrices(_ context.Context, supplierID int64) ([]domain.SupplierPrice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.suppliers[supplierID]; !ok {
		return nil, store.ErrNotFound
	}
	prices := make([]domain.SupplierPrice, 0, 8)
	for _, sp := range s.supplierPrices {
		if sp.SupplierID == supplierID {
			prices = append(prices, sp)
		}
	}
	return prices, nil
}

func (s *Store) CreateClient(_ context.Context, client domain.Client) (*domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	client.ID = s.next("client")
	s.clients[client.ID] = client
	created := client
	return &created, nil
}

func (s *Store) GetClientByID(_ context.Context, clientID int64) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	client, ok := s.clients[clientID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := client
	return &copied, nil
}

func (s *Store) ListClients(_ context.Context) ([]domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := make([]domain.Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	slices.SortFunc(clients, func(a, b domain.Client) int { return int(a.ID - b.ID) })
	return clients, nil
}

func (s *Store) CreateCustomRequest(_ context.Context, req domain.CustomRequest) (*domain.CustomRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[req.ClientID]; !ok {
		return nil, store.ErrNotFound
	}
	req.ID = s.next("custom_request")
	req.Status = domain.CustomRequestNew
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	s.customRequests[req.ID] = req
	created := cloneCustomRequest(req)
	return &created, nil
}

func (s *Store) ListCustomRequests(_ context.Context, status domain.CustomRequestStatus, clientID int64, limit int) ([]domain.CustomRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	requests := make([]domain.CustomRequest, 0, len(s.customRequests))
	for _, r := range s.customRequests {
		if status != "" && r.Status != status {
			continue
		}
		if clientID > 0 && r.ClientID != clientID {
			continue
		}
		requests = append(requests, cloneCustomRequest(r))
	}
	slices.SortFunc(requests, func(a, b domain.CustomRequest) int { return int(b.ID - a.ID) })
	if limit > 0 && len(requests) > limit {
		requests = requests[:limit]
	}
	return requests, nil
}

func (s *Store) ReviewCustomRequest(_ context.Context, requestID int64) (*domain.CustomRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.customRequests[requestID]
	if !ok {
		return nil, store.ErrNotFound
	}
	req.Status = domain.CustomRequestReviewed
	s.customRequests[requestID] = req
	updated := cloneCustomRequest(req)
	return &updated, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = s.next("audit")
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, len(s.auditLogs))
	copy(result, s.auditLogs)
	slices.SortFunc(result, func(a, b domain.AuditLog) int { return int(b.ID - a.ID) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return fmt.Errorf("username %q already exists", user.Username)
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int { return cmpString(a.Username, b.Username) })
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cloneOrder(o domain.Order) domain.Order {
	copied := o
	copied.Items = slices.Clone(o.Items)
	return copied
}

func clonePurchase(po domain.PurchaseOrder) domain.PurchaseOrder {
	copied := po
	copied.Items = slices.Clone(po.Items)
	return copied
}

func cloneReceipt(r domain.Receipt) domain.Receipt {
	copied := r
	copied.Items = slices.Clone(r.Items)
	return copied
}

func cloneCustomRequest(r domain.CustomRequest) domain.CustomRequest {
	copied := r
	copied.Items = slices.Clone(r.Items)
	return copied
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
