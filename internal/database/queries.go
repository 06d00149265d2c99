package database

// Catalog queries
const (
	ListProductsSQL = `
		SELECT id, name, name_en, price, category, image_url
		FROM products
		ORDER BY id ASC`

	ListEmployeesSQL = `
		SELECT id, first_name, last_name
		FROM employees
		ORDER BY id ASC`
)

// Order queries
const (
	InsertOrderSQL = `
		INSERT INTO orders (status, total_amount)
		VALUES ($1, $2)
		RETURNING id, created_at`

	InsertOrderLineSQL = `
		INSERT INTO order_lines (order_id, item_id, name, unit_price, quantity, line_total, description, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	InsertReceiptSQL = `
		INSERT INTO receipts (order_id, payment_method, attendant, status, total_amount, tendered, change_due, payment_ref, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	InsertOrderStatusLogSQL = `
		INSERT INTO order_status_log (order_id, status, changed_by, notes)
		VALUES ($1, $2, $3, $4)`

	// ReconcileOrderSQL is true when header, lines and receipt agree.
	ReconcileOrderSQL = `
		SELECT o.total_amount = COALESCE((SELECT SUM(l.line_total) FROM order_lines l WHERE l.order_id = o.id), 0)
		   AND o.total_amount = r.total_amount
		FROM orders o
		JOIN receipts r ON r.order_id = o.id
		WHERE o.id = $1`

	ListOrdersByStatusSQL = `
		SELECT id, created_at, updated_at, status, total_amount
		FROM orders
		WHERE status = $1
		ORDER BY id DESC`

	ListOrderLinesByStatusSQL = `
		SELECT l.id, l.order_id, l.item_id, l.name, l.unit_price, l.quantity, l.line_total, l.description, l.note
		FROM order_lines l
		JOIN orders o ON o.id = l.order_id
		WHERE o.status = $1
		ORDER BY l.order_id DESC, l.id ASC`

	GetOrderByIDSQL = `
		SELECT id, created_at, updated_at, status, total_amount
		FROM orders WHERE id = $1`

	LockOrderStatusSQL = `
		SELECT status FROM orders WHERE id = $1 FOR UPDATE`

	UpdateOrderStatusSQL = `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2`

	UpdateReceiptStatusSQL = `
		UPDATE receipts SET status = $1
		WHERE order_id = $2`

	OrderExistsSQL = `
		SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`

	GetOrderStatusHistorySQL = `
		SELECT status, changed_by, changed_at, notes
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at ASC, id ASC`
)

// Receipt queries
const (
	ListReceiptsSQL = `
		SELECT id, order_id, payment_method, attendant, status, total_amount, tendered, change_due,
			   payment_ref, payment_status, created_at
		FROM receipts
		ORDER BY id DESC
		LIMIT $1`

	SettleReceiptSQL = `
		UPDATE receipts SET payment_status = $1
		WHERE payment_ref = $2`
)

// Barista queries
const (
	UpsertBaristaSQL = `
		INSERT INTO baristas (name, status)
		VALUES ($1, 'online')
		ON CONFLICT (name) DO UPDATE SET
			status = 'online',
			last_seen = NOW()
		RETURNING id`

	CheckBaristaOnlineSQL = `
		SELECT COUNT(*) FROM baristas
		WHERE name = $1 AND status = 'online' AND last_seen > NOW() - make_interval(secs => $2)`

	UpdateBaristaStatusSQL = `
		UPDATE baristas SET status = $1, last_seen = NOW()
		WHERE name = $2`

	IncrementBaristaProcessedSQL = `
		UPDATE baristas SET last_seen = NOW(), orders_processed = orders_processed + 1
		WHERE name = $1`

	ListBaristasSQL = `
		SELECT id, created_at, name, status, last_seen, orders_processed
		FROM baristas
		ORDER BY created_at ASC`
)
