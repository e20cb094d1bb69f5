// Command seed inserts the demo catalogue and demo users into an existing
// tenant's isolated store.
//
// Usage:
//
//	DATABASE_URL=postgres://... go run ./cmd/seed -tenant acme
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"

	_ "github.com/lib/pq"

	"github.com/mbd888/strata/internal/seed"
	"github.com/mbd888/strata/internal/tenancy"
	"github.com/mbd888/strata/internal/tenant"
)

func main() {
	tenantID := flag.String("tenant", "", "tenant id to seed")
	flag.Parse()

	if *tenantID == "" {
		log.Fatal("-tenant is required")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Refuse to seed tenants that are not registered
	store := tenant.NewPostgresStore(db)
	if _, err := store.Get(ctx, *tenantID); err != nil {
		log.Fatalf("Tenant %q not found: %v", *tenantID, err)
	}

	storage := tenancy.NewPostgresStorage(db)
	if err := seed.New(storage).SeedTenant(ctx, *tenantID); err != nil {
		log.Fatalf("Seeding tenant %q failed: %v", *tenantID, err)
	}

	log.Printf("Tenant %q seeded", *tenantID)
}
