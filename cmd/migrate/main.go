package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"priceindex-platform/internal/config"
)

// migrationFile maps a direction to the archive schema script covering the
// price_observations and pipeline_runs tables.
func migrationFile(direction string) (string, error) {
	switch direction {
	case "up":
		return "migrations/001_create_schema.up.sql", nil
	case "down":
		return "migrations/001_create_schema.down.sql", nil
	default:
		return "", fmt.Errorf("unknown direction %q (want up or down)", direction)
	}
}

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	// Validate before touching the database.
	file, err := migrationFile(*direction)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to reach database: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Connected to %s@%s:%d\n", cfg.Database.Database, cfg.Database.Host, cfg.Database.Port)

	content, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read migration file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Applying %s (archive tables: price_observations, pipeline_runs)\n", file)

	if _, err := db.Exec(string(content)); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Migration completed")
}
