package catalogRepository

const (
	queryUpsertProduct = `
		INSERT INTO products (
			id, name, category, price, currency,
			stock, attributes, created_at, updated_at
		) VALUES (
			:id, :name, :category, :price, :currency,
			:stock, :attributes, :created_at, :updated_at
		)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			stock = EXCLUDED.stock,
			attributes = EXCLUDED.attributes,
			updated_at = EXCLUDED.updated_at
	`

	queryGetProductByID = `
		SELECT
			id, name, category, price, currency,
			stock, attributes, created_at, updated_at
		FROM products
		WHERE id = :id
	`

	queryGetAllProducts = `
		SELECT
			id, name, category, price, currency,
			stock, attributes, created_at, updated_at
		FROM products
		ORDER BY id
	`

	queryDeleteProduct = `
		DELETE FROM products
		WHERE id = :id
	`
)
