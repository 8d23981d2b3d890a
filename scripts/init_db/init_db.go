package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	"coldchain/compliance/internal/config"
	"coldchain/compliance/internal/pipeline"
	"coldchain/compliance/internal/store"
)

func main() {
	// config.Load also reads .env when present
	cfg := config.Load()

	ctx := context.Background()

	fmt.Println("Connecting to Postgres...")
	conn, err := pgx.Connect(ctx, fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName))
	if err != nil {
		log.Fatalf("Connection failed: %v\n\nMake sure Postgres is running:\n  docker-compose up -d postgres", err)
	}
	defer conn.Close(ctx)
	fmt.Println("✓ Connected")

	step1_schema(ctx, conn)
	step2_category_defaults(ctx, conn)
	step3_verify(ctx, conn)

	fmt.Println("\n✅ Database initialised successfully")
	fmt.Println("   Run next: go run ./scripts/seed_redis")
}

// ─────────────────────────────────────────────────────────────
// Step 1: Tables and indexes
// ─────────────────────────────────────────────────────────────
func step1_schema(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 1: Schema ──────────────────────────────")

	for i, stmt := range store.SchemaStatements {
		execOrFatal(ctx, conn, stmt, fmt.Sprintf("statement %d/%d", i+1, len(store.SchemaStatements)))
	}
}

// ─────────────────────────────────────────────────────────────
// Step 2: Category defaults as version rows
// ─────────────────────────────────────────────────────────────
func step2_category_defaults(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 2: Category defaults ───────────────────")

	// Effective from the epoch so they cover every historical reading.
	// Fixed ids keep the step idempotent.
	epoch := time.Unix(0, 0).UTC()
	for category, rng := range pipeline.DefaultCategoryRanges {
		_, err := conn.Exec(ctx, `
			INSERT INTO range_versions (id, scope, key, min_celsius, max_celsius, effective_from, created_by, created_at)
			VALUES ($1, 'category', $2, $3, $4, $5, 'init_db', NOW())
			ON CONFLICT (id) DO NOTHING
		`, "default-"+string(category), string(category), rng.Min, rng.Max, epoch)
		if err != nil {
			log.Fatalf("FAILED: default range for %s\nError: %v", category, err)
		}
		fmt.Printf("  ✓ %-10s %s\n", category, describe(rng.Min, rng.Max))
	}
}

// ─────────────────────────────────────────────────────────────
// Step 3: Verify everything was created
// ─────────────────────────────────────────────────────────────
func step3_verify(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 3: Verification ────────────────────────")

	tables := []string{"shipments", "range_versions", "alerts", "temperature_readings", "alert_readings"}
	for _, table := range tables {
		var exists bool
		err := conn.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_name = $1
			)
		`, table).Scan(&exists)
		if err != nil || !exists {
			log.Fatalf("Table %s was not created: %v", table, err)
		}
		fmt.Printf("  ✓ table: %s\n", table)
	}

	var indexCount int
	err := conn.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM pg_indexes
		WHERE tablename = ANY($1)
		AND indexname LIKE 'idx_%'
	`, tables).Scan(&indexCount)
	if err != nil {
		log.Fatalf("Index check failed: %v", err)
	}
	fmt.Printf("  ✓ indexes created: %d\n", indexCount)
}

// execOrFatal runs a SQL statement and prints result or exits on error
func execOrFatal(ctx context.Context, conn *pgx.Conn, sql, label string) {
	_, err := conn.Exec(ctx, sql)
	if err != nil {
		log.Fatalf("FAILED: %s\nError: %v\nSQL: %s", label, err, sql)
	}
	fmt.Printf("  ✓ %s\n", label)
}

func describe(min, max *float64) string {
	bound := func(v *float64) string {
		if v == nil {
			return "∞"
		}
		return fmt.Sprintf("%.1f°C", *v)
	}
	return bound(min) + " .. " + bound(max)
}
