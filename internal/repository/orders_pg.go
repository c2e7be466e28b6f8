package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ordering-platform/internal/domain"
)

// Orders is the mutation tier of the two-tier authorization model. Every
// write carries its scoping predicate in the SQL itself: store-scoped
// methods add WHERE store_id, the ByID methods scope by order id alone
// (that is the privileged customer path — it lifts "who may write", never
// "which rows"). A write matching zero rows reports ErrNotFound.
type Orders interface {
	Insert(ctx context.Context, o *domain.Order) error
	InsertItems(ctx context.Context, orderID uuid.UUID, items []domain.OrderItem) error
	Delete(ctx context.Context, orderID uuid.UUID) error

	GetByID(ctx context.Context, orderID uuid.UUID) (domain.Order, error)
	ListByStore(ctx context.Context, storeID uuid.UUID) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)

	UpdateStatus(ctx context.Context, orderID, storeID uuid.UUID, next domain.Status, reason *string, from []domain.Status) (domain.Order, error)
	UpdatePayment(ctx context.Context, orderID, storeID uuid.UUID, next domain.PaymentStatus, complete bool, from []domain.PaymentStatus) (domain.Order, error)
	UpdatePaymentByID(ctx context.Context, orderID uuid.UUID, next domain.PaymentStatus, from []domain.PaymentStatus) (domain.Order, error)
}

type OrdersPG struct {
	pool *pgxpool.Pool
}

func NewOrdersPG(pool *pgxpool.Pool) *OrdersPG { return &OrdersPG{pool: pool} }

const orderColumns = `id, store_id, customer_name, customer_phone, COALESCE(customer_email,''),
	total_amount, status, payment_status, rejection_reason, created_at, updated_at`

func (r *OrdersPG) Insert(ctx context.Context, o *domain.Order) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO orders
		    (id, store_id, customer_name, customer_phone, customer_email,
		     total_amount, status, payment_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), $6, $7, $8, $9, $10)`,
		o.ID, o.StoreID, o.CustomerName, o.CustomerPhone, o.CustomerEmail,
		o.TotalAmount, o.Status, o.PaymentStatus, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (r *OrdersPG) InsertItems(ctx context.Context, orderID uuid.UUID, items []domain.OrderItem) error {
	for _, item := range items {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, product_name, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			item.ID, orderID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item %s: %w", item.ProductName, err)
		}
	}
	return nil
}

// Delete is the compensating action for a failed item insert during order
// creation; orders are otherwise never deleted.
func (r *OrdersPG) Delete(ctx context.Context, orderID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id=$1`, orderID)
	return err
}

func (r *OrdersPG) GetByID(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, orderID)
	o, err := scanOrder(row)
	if err != nil {
		return domain.Order{}, err
	}
	o.Items, err = r.itemsFor(ctx, o.ID)
	if err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *OrdersPG) ListByStore(ctx context.Context, storeID uuid.UUID) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE store_id=$1 ORDER BY created_at DESC`, storeID)
}

func (r *OrdersPG) ListAll(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`)
}

// UpdateStatus moves an order to next if its current status is in from.
// rejection_reason is rewritten on every transition so it stays set exactly
// when the order is rejected. The conditional predicate, not a lock, is what
// resolves two concurrent conflicting writes.
func (r *OrdersPG) UpdateStatus(ctx context.Context, orderID, storeID uuid.UUID, next domain.Status, reason *string, from []domain.Status) (domain.Order, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE orders
		SET status=$3, rejection_reason=$4, updated_at=NOW()
		WHERE id=$1 AND store_id=$2 AND status = ANY($5)
		RETURNING `+orderColumns,
		orderID, storeID, next, reason, statusStrings(from),
	)
	return r.returned(ctx, row)
}

func (r *OrdersPG) UpdatePayment(ctx context.Context, orderID, storeID uuid.UUID, next domain.PaymentStatus, complete bool, from []domain.PaymentStatus) (domain.Order, error) {
	// Payment confirmation completes the order in the same statement so
	// observers see a single snapshot carrying both changes.
	row := r.pool.QueryRow(ctx, `
		UPDATE orders
		SET payment_status=$3,
		    status=CASE WHEN $4 THEN 'completed' ELSE status END,
		    updated_at=NOW()
		WHERE id=$1 AND store_id=$2 AND payment_status = ANY($5)
		RETURNING `+orderColumns,
		orderID, storeID, next, complete, paymentStrings(from),
	)
	return r.returned(ctx, row)
}

func (r *OrdersPG) UpdatePaymentByID(ctx context.Context, orderID uuid.UUID, next domain.PaymentStatus, from []domain.PaymentStatus) (domain.Order, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE orders
		SET payment_status=$2, updated_at=NOW()
		WHERE id=$1 AND payment_status = ANY($3)
		RETURNING `+orderColumns,
		orderID, next, paymentStrings(from),
	)
	return r.returned(ctx, row)
}

func (r *OrdersPG) returned(ctx context.Context, row pgx.Row) (domain.Order, error) {
	o, err := scanOrder(row)
	if err != nil {
		return domain.Order{}, err
	}
	o.Items, err = r.itemsFor(ctx, o.ID)
	if err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *OrdersPG) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items, err = r.itemsFor(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *OrdersPG) itemsFor(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, unit_price
		FROM order_items WHERE order_id=$1 ORDER BY product_name`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID, &o.StoreID, &o.CustomerName, &o.CustomerPhone, &o.CustomerEmail,
		&o.TotalAmount, &o.Status, &o.PaymentStatus, &o.RejectionReason,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("failed to scan order: %w", err)
	}
	return o, nil
}

func statusStrings(in []domain.Status) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

func paymentStrings(in []domain.PaymentStatus) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
