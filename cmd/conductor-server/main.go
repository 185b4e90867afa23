// Package main provides the conductor broker executable with an optional delivery journal.
package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coregx/conductor"
	"github.com/coregx/conductor/adapters/relica"
	"github.com/coregx/conductor/cmd/conductor-server/internal/config"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Log levels in increasing severity.
const (
	levelDebug = iota
	levelInfo
	levelWarn
	levelError
)

// SimpleLogger implements conductor.Logger for standard logging.
type SimpleLogger struct {
	level int
}

// NewSimpleLogger creates a logger that drops messages below level
// ("debug", "info", "warn" or "error").
func NewSimpleLogger(level string) *SimpleLogger {
	switch level {
	case "debug":
		return &SimpleLogger{level: levelDebug}
	case "warn":
		return &SimpleLogger{level: levelWarn}
	case "error":
		return &SimpleLogger{level: levelError}
	default:
		return &SimpleLogger{level: levelInfo}
	}
}

func (l *SimpleLogger) Debugf(format string, args ...interface{}) {
	if l.level <= levelDebug {
		log.Printf("[DEBUG] "+format, args...)
	}
}
func (l *SimpleLogger) Infof(format string, args ...interface{}) {
	if l.level <= levelInfo {
		log.Printf("[INFO] "+format, args...)
	}
}
func (l *SimpleLogger) Warnf(format string, args ...interface{}) {
	if l.level <= levelWarn {
		log.Printf("[WARN] "+format, args...)
	}
}
func (l *SimpleLogger) Errorf(format string, args ...interface{}) {
	log.Printf("[ERROR] "+format, args...)
}
func (l *SimpleLogger) Info(message string) {
	if l.level <= levelInfo {
		log.Printf("[INFO] %s", message)
	}
}

func main() {
	log.Println("🚀 Starting Conductor broker v0.1.0...")

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("📝 Configuration loaded:")
	log.Printf("   Ingest: %s", cfg.Broker.FrontAddr)
	log.Printf("   Subscriptions: %s", cfg.Broker.BackAddr)
	log.Printf("   Queue size: %d", cfg.Broker.QueueSize)
	log.Printf("   Journal: %v", cfg.Journal.Enabled)

	logger := NewSimpleLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := []conductor.Option{
		conductor.WithLogger(logger),
		conductor.WithQueueSize(cfg.Broker.QueueSize),
		conductor.WithReadBufferSize(cfg.Broker.ReadBufferSize),
		conductor.WithRegistrationTimeout(time.Duration(cfg.Broker.RegistrationTimeout) * time.Second),
	}
	if cfg.Broker.EnableNotifications {
		opts = append(opts, conductor.WithNotifications(conductor.NewLoggingNotificationService(logger)))
	}

	var journalDone chan struct{}
	if cfg.Journal.Enabled {
		db, journal := openJournal(ctx, cfg, logger)
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				log.Printf("Failed to close database: %v", closeErr)
			}
		}()
		opts = append(opts, conductor.WithJournal(journal))

		journalDone = make(chan struct{})
		go func() {
			defer close(journalDone)
			log.Printf("🔄 Starting journal (interval: %ds)...", cfg.Journal.Interval)
			journal.Run(ctx, time.Duration(cfg.Journal.Interval)*time.Second)
		}()
	}

	broker, err := conductor.NewBroker(cfg.Broker.FrontAddr, cfg.Broker.BackAddr, opts...)
	if err != nil {
		log.Fatalf("Failed to create broker: %v", err)
	}
	if err := broker.Start(); err != nil {
		log.Fatalf("Failed to start broker: %v", err)
	}

	log.Printf("📡 Publishers connect to %s", broker.FrontAddr())
	log.Printf("📡 Subscribers connect to %s", broker.BackAddr())
	log.Println("✅ Conductor broker is ready!")

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down broker...")

	if err := broker.Close(); err != nil {
		log.Printf("Broker forced to shutdown: %v", err)
	}

	cancel() // Stop journal
	if journalDone != nil {
		<-journalDone
	}
	log.Println("✅ Broker stopped gracefully")
}

// openJournal connects to the journal database, applies the embedded
// migrations and creates the journal.
func openJournal(ctx context.Context, cfg *config.Config, logger conductor.Logger) (*sql.DB, *conductor.Journal) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.GetDSN())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("✅ Database connection established")

	if err := conductor.ApplyMigrations(ctx, db, cfg.Database.Driver, cfg.Database.Prefix); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	repos := relica.NewRepositoriesWithPrefix(db, cfg.Database.Driver, cfg.Database.Prefix)
	log.Println("✅ Repositories initialized (Relica adapters)")

	journal, err := conductor.NewJournal(
		conductor.WithJournalRepositories(repos.Route, repos.Session),
		conductor.WithJournalLogger(logger),
	)
	if err != nil {
		log.Fatalf("Failed to create journal: %v", err)
	}
	return db, journal
}
