package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"flowershop/backend/internal/domain"
	"flowershop/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// querier is satisfied by both *sql.DB and *sql.Tx so catalog lookups can
// run standalone or inside a unit of work.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) GetCatalogItem(ctx context.Context, ref domain.ItemRef) (*domain.CatalogItem, error) {
	return catalogItem(ctx, s.db, ref)
}

func catalogItem(ctx context.Context, q querier, ref domain.ItemRef) (*domain.CatalogItem, error) {
	item := domain.CatalogItem{Ref: ref}
	var err error
	switch ref.Type {
	case domain.ItemFlower:
		var name, variety string
		err = q.QueryRowContext(ctx, `
			SELECT name, variety, price, active
			FROM flowers
			WHERE id = $1
		`, ref.ID).Scan(&name, &variety, &item.Price, &item.Active)
		item.Name = strings.TrimSpace(name + " " + variety)
	case domain.ItemBouquet:
		err = q.QueryRowContext(ctx, `
			SELECT name, price, active
			FROM bouquets
			WHERE id = $1
		`, ref.ID).Scan(&item.Name, &item.Price, &item.Active)
	case domain.ItemPackaging:
		err = q.QueryRowContext(ctx, `
			SELECT name, price, active
			FROM packaging
			WHERE id = $1
		`, ref.ID).Scan(&item.Name, &item.Price, &item.Active)
	case domain.ItemAccessory:
		err = q.QueryRowContext(ctx, `
			SELECT name, price, active
			FROM accessories
			WHERE id = $1
		`, ref.ID).Scan(&item.Name, &item.Price, &item.Active)
	default:
		return nil, store.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListFlowers(ctx context.Context, activeOnly bool) ([]domain.Flower, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, variety, color, price, shelf_life_days, active
		FROM flowers
		WHERE active = true OR $1 = false
		ORDER BY id
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flowers := make([]domain.Flower, 0, 32)
	for rows.Next() {
		var f domain.Flower
		if err := rows.Scan(&f.ID, &f.Name, &f.Variety, &f.Color, &f.Price, &f.ShelfLifeDays, &f.Active); err != nil {
			return nil, err
		}
		flowers = append(flowers, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return flowers, nil
}

func (s *Store) ListBouquets(ctx context.Context, activeOnly bool) ([]domain.Bouquet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, occasion, price, active
		FROM bouquets
		WHERE active = true OR $1 = false
		ORDER BY id
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bouquets := make([]domain.Bouquet, 0, 16)
	byID := make(map[int64]int, 16)
	for rows.Next() {
		var b domain.Bouquet
		if err := rows.Scan(&b.ID, &b.Name, &b.Occasion, &b.Price, &b.Active); err != nil {
			return nil, err
		}
		byID[b.ID] = len(bouquets)
		bouquets = append(bouquets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT bouquet_id, flower_id, qty
		FROM bouquet_items
		ORDER BY bouquet_id, flower_id
	`)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var bouquetID int64
		var item domain.BouquetItem
		if err := itemRows.Scan(&bouquetID, &item.FlowerID, &item.Qty); err != nil {
			return nil, err
		}
		if idx, ok := byID[bouquetID]; ok {
			bouquets[idx].Items = append(bouquets[idx].Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}
	return bouquets, nil
}

func (s *Store) ListPackaging(ctx context.Context, activeOnly bool) ([]domain.Packaging, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price, active
		FROM packaging
		WHERE active = true OR $1 = false
		ORDER BY id
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Packaging, 0, 16)
	for rows.Next() {
		var p domain.Packaging
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Active); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListAccessories(ctx context.Context, activeOnly bool) ([]domain.Accessory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price, active
		FROM accessories
		WHERE active = true OR $1 = false
		ORDER BY id
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Accessory, 0, 16)
	for rows.Next() {
		var a domain.Accessory
		if err := rows.Scan(&a.ID, &a.Name, &a.Price, &a.Active); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) StockLevel(ctx context.Context, ref domain.ItemRef) (int, error) {
	var qty int
	err := s.db.QueryRowContext(ctx, `
		SELECT qty
		FROM inventory
		WHERE item_type = $1 AND item_id = $2
	`, ref.Type, ref.ID).Scan(&qty)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return qty, nil
}

// AdjustStock applies one signed delta outside any larger unit of work.
// Decrements are guarded at commit time: the UPDATE only matches when
// enough stock remains, so two concurrent decrements can never drive the
// quantity negative.
func (s *Store) AdjustStock(ctx context.Context, ref domain.ItemRef, delta int) error {
	if !ref.Type.Valid() {
		return store.ErrNotFound
	}
	if delta >= 0 {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO inventory (item_type, item_id, qty, updated_at)
			VALUES ($1,$2,$3,now())
			ON CONFLICT (item_type, item_id)
			DO UPDATE SET qty = inventory.qty + EXCLUDED.qty, updated_at = now()
		`, ref.Type, ref.ID, delta)
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE inventory
		SET qty = qty - $1, updated_at = now()
		WHERE item_type = $2 AND item_id = $3 AND qty >= $1
	`, -delta, ref.Type, ref.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrInsufficientStock
	}
	return nil
}

func decrementStockTx(ctx context.Context, tx *sql.Tx, ref domain.ItemRef, qty int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE inventory
		SET qty = qty - $1, updated_at = now()
		WHERE item_type = $2 AND item_id = $3 AND qty >= $1
	`, qty, ref.Type, ref.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrInsufficientStock
	}
	return nil
}

func incrementStockTx(ctx context.Context, tx *sql.Tx, ref domain.ItemRef, qty int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO inventory (item_type, item_id, qty, updated_at)
		VALUES ($1,$2,$3,now())
		ON CONFLICT (item_type, item_id)
		DO UPDATE SET qty = inventory.qty + EXCLUDED.qty, updated_at = now()
	`, ref.Type, ref.ID, qty)
	return err
}

func (s *Store) ListInventory(ctx context.Context) ([]domain.InventoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_type, item_id, qty
		FROM inventory
		ORDER BY item_type, item_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.InventoryEntry, 0, 64)
	for rows.Next() {
		var e domain.InventoryEntry
		if err := rows.Scan(&e.Ref.Type, &e.Ref.ID, &e.Qty); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	if len(order.Items) == 0 {
		return nil, store.ErrEmptyOrder
	}
	for _, item := range order.Items {
		if item.Qty < 1 {
			return nil, store.ErrEmptyOrder
		}
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Prices are loaded inside the transaction so a concurrent catalog
	// edit cannot split an order across two price versions.
	sums := make([]decimal.Decimal, 0, len(order.Items))
	for i, item := range order.Items {
		ci, err := catalogItem(ctx, tx, item.Ref)
		if err != nil {
			return nil, err
		}
		if !ci.Active {
			return nil, store.ErrNotFound
		}
		order.Items[i].Price = ci.Price
		order.Items[i].LineSum = domain.LineTotal(item.Qty, ci.Price)
		sums = append(sums, order.Items[i].LineSum)

		if err := decrementStockTx(ctx, tx, item.Ref, item.Qty); err != nil {
			return nil, err
		}
	}
	order.TotalSum = domain.OrderTotal(sums, order.DiscountPercent)
	order.Status = domain.OrderNew
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (client_id, created_by, status, discount_percent, total_sum, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`, order.ClientID, order.CreatedBy, order.Status, order.DiscountPercent, order.TotalSum, order.CreatedAt).Scan(&order.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	for i, item := range order.Items {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, item_type, item_id, qty, price, line_sum)
			VALUES ($1,$2,$3,$4,$5,$6)
			RETURNING id
		`, order.ID, item.Ref.Type, item.Ref.ID, item.Qty, item.Price, item.LineSum).Scan(&order.Items[i].ID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Store) GetOrderByID(ctx context.Context, orderID int64) (*domain.Order, error) {
	var order domain.Order
	err := s.db.QueryRowContext(ctx, `
		SELECT id, client_id, created_by, status, discount_percent, total_sum, created_at
		FROM orders
		WHERE id = $1
	`, orderID).Scan(&order.ID, &order.ClientID, &order.CreatedBy, &order.Status,
		&order.DiscountPercent, &order.TotalSum, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	order.CreatedAt = order.CreatedAt.UTC()

	items, err := s.orderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

func (s *Store) orderItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_type, item_id, qty, price, line_sum
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0, 8)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.Ref.Type, &item.Ref.ID, &item.Qty, &item.Price, &item.LineSum); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListOrders(ctx context.Context, status domain.OrderStatus, clientID int64, limit int) ([]domain.Order, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, client_id, created_by, status, discount_percent, total_sum, created_at
		FROM orders
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = 0 OR client_id = $2)
		ORDER BY id DESC
		LIMIT $3
	`, string(status), clientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, limit)
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.ClientID, &o.CreatedBy, &o.Status,
			&o.DiscountPercent, &o.TotalSum, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.CreatedAt = o.CreatedAt.UTC()
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := s.orderItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (s *Store) ModifyOrder(ctx context.Context, orderID int64, lines []domain.OrderLineInput, discountPercent *int) (*domain.Order, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var order domain.Order
	err = tx.QueryRowContext(ctx, `
		SELECT id, client_id, created_by, status, discount_percent, total_sum, created_at
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(&order.ID, &order.ClientID, &order.CreatedBy, &order.Status,
		&order.DiscountPercent, &order.TotalSum, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, store.ErrOrderTerminal
	}

	itemRows, err := tx.QueryContext(ctx, `
		SELECT id, item_type, item_id, qty, price, line_sum
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
		FOR UPDATE
	`, orderID)
	if err != nil {
		return nil, err
	}
	items := make([]domain.OrderItem, 0, 8)
	for itemRows.Next() {
		var item domain.OrderItem
		if err := itemRows.Scan(&item.ID, &item.Ref.Type, &item.Ref.ID, &item.Qty, &item.Price, &item.LineSum); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		items = append(items, item)
	}
	if err := itemRows.Err(); err != nil {
		_ = itemRows.Close()
		return nil, err
	}
	_ = itemRows.Close()

	for _, ln := range lines {
		if ln.Qty < 1 {
			return nil, store.ErrEmptyOrder
		}
		ref := domain.ItemRef{Type: ln.ItemType, ID: ln.ItemID}
		idx := -1
		for i, item := range items {
			if item.Ref == ref {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, store.ErrNotFound
		}
		delta := ln.Qty - items[idx].Qty
		switch {
		case delta > 0:
			if err := decrementStockTx(ctx, tx, ref, delta); err != nil {
				return nil, err
			}
		case delta < 0:
			if err := incrementStockTx(ctx, tx, ref, -delta); err != nil {
				return nil, err
			}
		default:
			continue
		}
		items[idx].Qty = ln.Qty
		items[idx].LineSum = domain.LineTotal(ln.Qty, items[idx].Price)
		_, err = tx.ExecContext(ctx, `
			UPDATE order_items
			SET qty = $2, line_sum = $3
			WHERE id = $1
		`, items[idx].ID, items[idx].Qty, items[idx].LineSum)
		if err != nil {
			return nil, err
		}
	}

	if discountPercent != nil {
		order.DiscountPercent = *discountPercent
	}
	sums := make([]decimal.Decimal, 0, len(items))
	for _, item := range items {
		sums = append(sums, item.LineSum)
	}
	order.TotalSum = domain.OrderTotal(sums, order.DiscountPercent)
	order.Items = items

	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET discount_percent = $2, total_sum = $3
		WHERE id = $1
	`, orderID, order.DiscountPercent, order.TotalSum)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	order.CreatedAt = order.CreatedAt.UTC()
	return &order, nil
}

func (s *Store) CancelOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var order domain.Order
	err = tx.QueryRowContext(ctx, `
		SELECT id, client_id, created_by, status, discount_percent, total_sum, created_at
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(&order.ID, &order.ClientID, &order.CreatedBy, &order.Status,
		&order.DiscountPercent, &order.TotalSum, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, store.ErrOrderTerminal
	}

	itemRows, err := tx.QueryContext(ctx, `
		SELECT id, item_type, item_id, qty, price, line_sum
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	items := make([]domain.OrderItem, 0, 8)
	for itemRows.Next() {
		var item domain.OrderItem
		if err := itemRows.Scan(&item.ID, &item.Ref.Type, &item.Ref.ID, &item.Qty, &item.Price, &item.LineSum); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		items = append(items, item)
	}
	if err := itemRows.Err(); err != nil {
		_ = itemRows.Close()
		return nil, err
	}
	_ = itemRows.Close()

	for _, item := range items {
		if err := incrementStockTx(ctx, tx, item.Ref, item.Qty); err != nil {
			return nil, err
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $2
		WHERE id = $1 AND status NOT IN ($3, $4)
	`, orderID, domain.OrderCancelled, domain.OrderIssued, domain.OrderCancelled)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrOrderTerminal
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	order.Status = domain.OrderCancelled
	order.Items = items
	order.CreatedAt = order.CreatedAt.UTC()
	return &order, nil
}

func (s *Store) AdvanceOrderStatus(ctx context.Context, orderID int64, next domain.OrderStatus) (*domain.Order, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var current domain.OrderStatus
	err = tx.QueryRowContext(ctx, `
		SELECT status
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if current.Terminal() {
		return nil, store.ErrOrderTerminal
	}
	if !current.CanAdvance(next) {
		return nil, store.ErrInvalidTransition
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $2
		WHERE id = $1
	`, orderID, next)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetOrderByID(ctx, orderID)
}

func (s *Store) PayOrder(ctx context.Context, orderID int64, method domain.PaymentMethod) (*domain.Payment, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var status domain.OrderStatus
	var total decimal.Decimal
	err = tx.QueryRowContext(ctx, `
		SELECT status, total_sum
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(&status, &total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if status == domain.OrderIssued {
		return nil, store.ErrAlreadyPaid
	}
	if status == domain.OrderCancelled {
		return nil, store.ErrOrderTerminal
	}

	// Amount is snapshotted from the order total at pay time; later order
	// edits never change a recorded payment.
	payment := domain.Payment{
		OrderID:   orderID,
		Method:    method,
		Amount:    total,
		CreatedAt: time.Now().UTC(),
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO payments (order_id, method, amount, created_at)
		VALUES ($1,$2,$3,$4)
		RETURNING id
	`, payment.OrderID, payment.Method, payment.Amount, payment.CreatedAt).Scan(&payment.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrAlreadyPaid
		}
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $2
		WHERE id = $1
	`, orderID, domain.OrderIssued)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *Store) GetPaymentByOrderID(ctx context.Context, orderID int64) (*domain.Payment, error) {
	var payment domain.Payment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, order_id, method, amount, created_at
		FROM payments
		WHERE order_id = $1
	`, orderID).Scan(&payment.ID, &payment.OrderID, &payment.Method, &payment.Amount, &payment.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	payment.CreatedAt = payment.CreatedAt.UTC()
	return &payment, nil
}

func (s *Store) CreatePurchaseOrder(ctx context.Context, po domain.PurchaseOrder) (*domain.PurchaseOrder, error) {
	if len(po.Items) == 0 {
		return nil, store.ErrEmptyPurchase
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	po.Status = domain.PurchaseNew
	if po.CreatedAt.IsZero() {
		po.CreatedAt = time.Now().UTC()
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO purchase_orders (supplier_id, status, created_by, created_at)
		VALUES ($1,$2,$3,$4)
		RETURNING id
	`, po.SupplierID, po.Status, po.CreatedBy, po.CreatedAt).Scan(&po.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	for i, item := range po.Items {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO purchase_items (purchase_order_id, item_type, item_id, qty, price)
			VALUES ($1,$2,$3,$4,$5)
			RETURNING id
		`, po.ID, item.Ref.Type, item.Ref.ID, item.Qty, item.Price).Scan(&po.Items[i].ID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &po, nil
}

func (s *Store) GetPurchaseOrderByID(ctx context.Context, purchaseID int64) (*domain.PurchaseOrder, error) {
	var po domain.PurchaseOrder
	err := s.db.QueryRowContext(ctx, `
		SELECT id, supplier_id, status, created_by, created_at
		FROM purchase_orders
		WHERE id = $1
	`, purchaseID).Scan(&po.ID, &po.SupplierID, &po.Status, &po.CreatedBy, &po.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	po.CreatedAt = po.CreatedAt.UTC()

	items, err := s.purchaseItems(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	po.Items = items
	return &po, nil
}

func (s *Store) purchaseItems(ctx context.Context, purchaseID int64) ([]domain.PurchaseItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_type, item_id, qty, price
		FROM purchase_items
		WHERE purchase_order_id = $1
		ORDER BY id
	`, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.PurchaseItem, 0, 8)
	for rows.Next() {
		var item domain.PurchaseItem
		if err := rows.Scan(&item.ID, &item.Ref.Type, &item.Ref.ID, &item.Qty, &item.Price); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListPurchaseOrders(ctx context.Context, status domain.PurchaseStatus, limit int) ([]domain.PurchaseOrder, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, supplier_id, status, created_by, created_at
		FROM purchase_orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY id DESC
		LIMIT $2
	`, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.PurchaseOrder, 0, limit)
	for rows.Next() {
		var po domain.PurchaseOrder
		if err := rows.Scan(&po.ID, &po.SupplierID, &po.Status, &po.CreatedBy, &po.CreatedAt); err != nil {
			return nil, err
		}
		po.CreatedAt = po.CreatedAt.UTC()
		orders = append(orders, po)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := s.purchaseItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (s *Store) MarkPurchaseSent(ctx context.Context, purchaseID int64) (*domain.PurchaseOrder, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var status domain.PurchaseStatus
	err = tx.QueryRowContext(ctx, `
		SELECT status
		FROM purchase_orders
		WHERE id = $1
		FOR UPDATE
	`, purchaseID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if status == domain.PurchaseReceived {
		return nil, store.ErrAlreadyReceived
	}
	if status != domain.PurchaseNew {
		return nil, store.ErrInvalidTransition
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE purchase_orders
		SET status = $2
		WHERE id = $1
	`, purchaseID, domain.PurchaseSent)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetPurchaseOrderByID(ctx, purchaseID)
}

func (s *Store) ReceivePurchaseOrder(ctx context.Context, purchaseID int64, receivedBy string) (*domain.Receipt, error) {
	receivedBy = strings.TrimSpace(receivedBy)
	if receivedBy == "" {
		receivedBy = "system"
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var status domain.PurchaseStatus
	err = tx.QueryRowContext(ctx, `
		SELECT status
		FROM purchase_orders
		WHERE id = $1
		FOR UPDATE
	`, purchaseID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if status == domain.PurchaseReceived {
		return nil, store.ErrAlreadyReceived
	}
	if status == domain.PurchaseCancelled {
		return nil, store.ErrNotFound
	}

	itemRows, err := tx.QueryContext(ctx, `
		SELECT id, item_type, item_id, qty, price
		FROM purchase_items
		WHERE purchase_order_id = $1
		ORDER BY id
	`, purchaseID)
	if err != nil {
		return nil, err
	}
	items := make([]domain.PurchaseItem, 0, 8)
	for itemRows.Next() {
		var item domain.PurchaseItem
		if err := itemRows.Scan(&item.ID, &item.Ref.Type, &item.Ref.ID, &item.Qty, &item.Price); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		items = append(items, item)
	}
	if err := itemRows.Err(); err != nil {
		_ = itemRows.Close()
		return nil, err
	}
	_ = itemRows.Close()
	if len(items) == 0 {
		return nil, store.ErrEmptyPurchase
	}

	receipt := domain.Receipt{
		PurchaseID: purchaseID,
		ReceivedBy: receivedBy,
		ReceivedAt: time.Now().UTC(),
		Items:      make([]domain.ReceiptItem, 0, len(items)),
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO receipts (purchase_order_id, received_by, received_at)
		VALUES ($1,$2,$3)
		RETURNING id
	`, receipt.PurchaseID, receipt.ReceivedBy, receipt.ReceivedAt).Scan(&receipt.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrAlreadyReceived
		}
		return nil, err
	}

	for _, item := range items {
		ri := domain.ReceiptItem{Ref: item.Ref, Qty: item.Qty, BuyPrice: item.Price}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO receipt_items (receipt_id, item_type, item_id, qty, buy_price)
			VALUES ($1,$2,$3,$4,$5)
			RETURNING id
		`, receipt.ID, ri.Ref.Type, ri.Ref.ID, ri.Qty, ri.BuyPrice).Scan(&ri.ID)
		if err != nil {
			return nil, err
		}
		if err := incrementStockTx(ctx, tx, item.Ref, item.Qty); err != nil {
			return nil, err
		}
		receipt.Items = append(receipt.Items, ri)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE purchase_orders
		SET status = $2
		WHERE id = $1 AND status <> $2
	`, purchaseID, domain.PurchaseReceived)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrAlreadyReceived
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (s *Store) CancelPurchaseOrder(ctx context.Context, purchaseID int64) (*domain.PurchaseOrder, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var status domain.PurchaseStatus
	err = tx.QueryRowContext(ctx, `
		SELECT status
		FROM purchase_orders
		WHERE id = $1
		FOR UPDATE
	`, purchaseID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if status == domain.PurchaseReceived {
		return nil, store.ErrAlreadyReceived
	}
	if status == domain.PurchaseCancelled {
		return nil, store.ErrInvalidTransition
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE purchase_orders
		SET status = $2
		WHERE id = $1
	`, purchaseID, domain.PurchaseCancelled)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetPurchaseOrderByID(ctx, purchaseID)
}

func (s *Store) ListReceipts(ctx context.Context, limit int) ([]domain.Receipt, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, purchase_order_id, received_by, received_at
		FROM receipts
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	receipts := make([]domain.Receipt, 0, limit)
	for rows.Next() {
		var r domain.Receipt
		if err := rows.Scan(&r.ID, &r.PurchaseID, &r.ReceivedBy, &r.ReceivedAt); err != nil {
			return nil, err
		}
		r.ReceivedAt = r.ReceivedAt.UTC()
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range receipts {
		itemRows, err := s.db.QueryContext(ctx, `
			SELECT id, item_type, item_id, qty, buy_price
			FROM receipt_items
			WHERE receipt_id = $1
			ORDER BY id
		`, receipts[i].ID)
		if err != nil {
			return nil, err
		}
		for itemRows.Next() {
			var item domain.ReceiptItem
			if err := itemRows.Scan(&item.ID, &item.Ref.Type, &item.Ref.ID, &item.Qty, &item.BuyPrice); err != nil {
				_ = itemRows.Close()
				return nil, err
			}
			receipts[i].Items = append(receipts[i].Items, item)
		}
		if err := itemRows.Err(); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		_ = itemRows.Close()
	}
	return receipts, nil
}

func (s *Store) CreateWriteOff(ctx context.Context, entry domain.WriteOff) (*domain.WriteOff, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	ref := domain.ItemRef{Type: domain.ItemFlower, ID: entry.FlowerID}
	if _, err := catalogItem(ctx, tx, ref); err != nil {
		return nil, err
	}
	if err := decrementStockTx(ctx, tx, ref, entry.Qty); err != nil {
		return nil, err
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO write_offs (flower_id, qty, reason, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, entry.FlowerID, entry.Qty, entry.Reason, entry.CreatedBy, entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *Store) ListWriteOffs(ctx context.Context, limit int) ([]domain.WriteOff, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, flower_id, qty, reason, created_by, created_at
		FROM write_offs
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.WriteOff, 0, limit)
	for rows.Next() {
		var e domain.WriteOff
		if err := rows.Scan(&e.ID, &e.FlowerID, &e.Qty, &e.Reason, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, email
		FROM suppliers
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	suppliers := make([]domain.Supplier, 0, 16)
	for rows.Next() {
		var sup domain.Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.Phone, &sup.Email); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, sup)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (s *Store) ListSupplierPrices(ctx context.Context, supplierID int64) ([]domain.SupplierPrice, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM suppliers WHERE id = $1)
	`, supplierID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT supplier_id, item_type, item_id, price
		FROM supplier_prices
		WHERE supplier_id = $1
		ORDER BY item_type, item_id
	`, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prices := make([]domain.SupplierPrice, 0, 16)
	for rows.Next() {
		var sp domain.SupplierPrice
		if err := rows.Scan(&sp.SupplierID, &sp.Ref.Type, &sp.Ref.ID, &sp.Price); err != nil {
			return nil, err
		}
		prices = append(prices, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return prices, nil
}

func (s *Store) CreateClient(ctx context.Context, client domain.Client) (*domain.Client, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO clients (full_name, phone, email)
		VALUES ($1,$2,$3)
		RETURNING id
	`, client.FullName, client.Phone, client.Email).Scan(&client.ID)
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (s *Store) GetClientByID(ctx context.Context, clientID int64) (*domain.Client, error) {
	var client domain.Client
	err := s.db.QueryRowContext(ctx, `
		SELECT id, full_name, phone, email
		FROM clients
		WHERE id = $1
	`, clientID).Scan(&client.ID, &client.FullName, &client.Phone, &client.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &client, nil
}

func (s *Store) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, full_name, phone, email
		FROM clients
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := make([]domain.Client, 0, 32)
	for rows.Next() {
		var c domain.Client
		if err := rows.Scan(&c.ID, &c.FullName, &c.Phone, &c.Email); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return clients, nil
}

func (s *Store) CreateCustomRequest(ctx context.Context, req domain.CustomRequest) (*domain.CustomRequest, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	req.Status = domain.CustomRequestNew
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO custom_requests (client_id, desired_date, wishes, status, created_at)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, req.ClientID, nowDateUTC(req.DesiredDate), req.Wishes, req.Status, req.CreatedAt).Scan(&req.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	for _, item := range req.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO custom_request_items (request_id, flower_id, qty)
			VALUES ($1,$2,$3)
		`, req.ID, item.FlowerID, item.Qty)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, store.ErrNotFound
			}
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *Store) ListCustomRequests(ctx context.Context, status domain.CustomRequestStatus, clientID int64, limit int) ([]domain.CustomRequest, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, client_id, desired_date, wishes, status, created_at
		FROM custom_requests
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = 0 OR client_id = $2)
		ORDER BY id DESC
		LIMIT $3
	`, string(status), clientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]domain.CustomRequest, 0, limit)
	for rows.Next() {
		var r domain.CustomRequest
		if err := rows.Scan(&r.ID, &r.ClientID, &r.DesiredDate, &r.Wishes, &r.Status, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.CreatedAt = r.CreatedAt.UTC()
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range requests {
		itemRows, err := s.db.QueryContext(ctx, `
			SELECT flower_id, qty
			FROM custom_request_items
			WHERE request_id = $1
			ORDER BY flower_id
		`, requests[i].ID)
		if err != nil {
			return nil, err
		}
		for itemRows.Next() {
			var item domain.CustomRequestItem
			if err := itemRows.Scan(&item.FlowerID, &item.Qty); err != nil {
				_ = itemRows.Close()
				return nil, err
			}
			requests[i].Items = append(requests[i].Items, item)
		}
		if err := itemRows.Err(); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		_ = itemRows.Close()
	}
	return requests, nil
}

func (s *Store) ReviewCustomRequest(ctx context.Context, requestID int64) (*domain.CustomRequest, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE custom_requests
		SET status = $2
		WHERE id = $1
	`, requestID, domain.CustomRequestReviewed)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	var r domain.CustomRequest
	err = s.db.QueryRowContext(ctx, `
		SELECT id, client_id, desired_date, wishes, status, created_at
		FROM custom_requests
		WHERE id = $1
	`, requestID).Scan(&r.ID, &r.ClientID, &r.DesiredDate, &r.Wishes, &r.Status, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = r.CreatedAt.UTC()

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT flower_id, qty
		FROM custom_request_items
		WHERE request_id = $1
		ORDER BY flower_id
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var item domain.CustomRequestItem
		if err := itemRows.Scan(&item.FlowerID, &item.Qty); err != nil {
			return nil, err
		}
		r.Items = append(r.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action,
			&entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return fmt.Errorf("username and password are required")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, full_name, phone, active, client_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, user.Username, user.Password, user.Role, user.FullName, user.Phone, user.Active,
		nullIfZero(user.ClientID), user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username %q already exists", user.Username)
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, full_name, phone, active, client_id, created_at
		FROM app_users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var u domain.UserAccount
		var clientID sql.NullInt64
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.FullName, &u.Phone, &u.Active, &clientID, &u.CreatedAt); err != nil {
			return nil, err
		}
		if clientID.Valid {
			u.ClientID = clientID.Int64
		}
		u.CreatedAt = u.CreatedAt.UTC()
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return fmt.Errorf("username and password are required")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nowDateUTC(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), t.UTC().Month(), t.UTC().Day(), 0, 0, 0, 0, time.UTC)
}

func nullIfZero(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}
