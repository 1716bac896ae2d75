package seed

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Run provisions the bootstrap admin account and a handful of demo products.
// Every statement is idempotent, so re-running against a seeded database is a
// no-op.
func Run(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if err := seedAdmin(ctx, pool, logger); err != nil {
		return err
	}
	return seedProducts(ctx, pool, logger)
}

func seedAdmin(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	username := envOrDefault("SEED_ADMIN_USERNAME", "ADMIN01")
	password := envOrDefault("SEED_ADMIN_PASSWORD", "Admin@12345")

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	tag, err := pool.Exec(ctx, `
		INSERT INTO principals (space, username, password_hash, email, first_name, last_name, role, registered_by)
		VALUES ('user', $1, $2, 'admin@smartpos.local', 'System', 'Administrator', 'ADMIN', 'System')
		ON CONFLICT (space, username) DO NOTHING`,
		username, string(hashed))
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		logger.Info("bootstrap admin created", zap.String("username", username))
	} else {
		logger.Info("bootstrap admin already present", zap.String("username", username))
	}
	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	products := []struct {
		barcode string
		name    string
		price   float64
		weight  float64
	}{
		{"4791234567890", "White Bread 450g", 1.20, 0.45},
		{"4791234567891", "Full Cream Milk 1L", 2.10, 1.0},
		{"4791234567892", "Basmati Rice 5kg", 11.50, 5.0},
		{"4791234567893", "Red Apples", 3.80, 1.0},
		{"4791234567894", "Cheddar Cheese Block", 6.40, 0.25},
	}

	for _, p := range products {
		if _, err := pool.Exec(ctx, `
			INSERT INTO products (barcode, name, price, weight, created_by)
			VALUES ($1, $2, $3, $4, 'System')
			ON CONFLICT (barcode) DO NOTHING`,
			p.barcode, p.name, p.price, p.weight); err != nil {
			return err
		}
	}
	logger.Info("demo products seeded", zap.Int("count", len(products)))
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
