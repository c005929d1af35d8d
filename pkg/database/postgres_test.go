package database

import (
	"io"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"priceindex-platform/pkg/logging"
	"priceindex-platform/pkg/metrics"
)

// TestCloseStopsPoolMonitor verifies the pool monitor goroutine exits when
// the connection is closed. sqlx.Open does not dial, so no server is needed.
func TestCloseStopsPoolMonitor(t *testing.T) {
	logger := logging.NewStructuredLogger("test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)

	db, err := sqlx.Open("postgres", "host=localhost dbname=test sslmode=disable")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	p := &PostgresDB{
		db:              db,
		logger:          logger,
		metrics:         metrics.NewCollectorWithRegisterer("test", prometheus.NewRegistry()),
		config:          &Config{Database: "test", MaxOpenConns: 10},
		done:            make(chan struct{}),
		monitorInterval: time.Millisecond,
	}

	exited := make(chan struct{})
	go func() {
		p.monitorConnectionPool()
		close(exited)
	}()

	// Let the monitor take at least one tick before closing.
	time.Sleep(5 * time.Millisecond)

	if err := p.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("pool monitor still running after Close")
	}
}
