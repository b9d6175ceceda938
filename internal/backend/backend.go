package backend

import (
	"fmt"
	"log/slog"

	"cuotas/internal/amqp"
	"cuotas/internal/services"
	"cuotas/internal/storage"
	"cuotas/internal/storage/memory"
)

// Type selects which Store implementation backs the services.
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Config holds configuration for backend creation
type Config struct {
	Type Type

	// SQLite specific
	SQLiteDBPath string

	// AMQP receipt queue (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// Result bundles the assembled services with their cleanup function.
type Result struct {
	Store     services.Store
	Publisher services.ReceiptPublisher
	Cleanup   CleanupFunc
}

// Create builds the Store and receipt publisher for the configured backend.
func Create(config Config) (*Result, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case SQLiteBackend:
		return createSQLite(config)
	case MemoryBackend:
		return createMemory(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func createSQLite(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// AMQP is optional: without it payments stay local and the mirror
	// worker's catch-up loop is the only reconciliation path.
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			slog.Warn("Failed to initialize AMQP client, continuing without receipt mirror", "error", err)
			amqpClient = nil
		} else {
			slog.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	slog.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", amqpClient != nil)

	cleanup := func() error {
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		return repo.Close()
	}

	result := &Result{
		Store:   repo,
		Cleanup: cleanup,
	}
	if amqpClient != nil {
		result.Publisher = amqpClient
	}
	return result, nil
}

func createMemory(config Config) (*Result, error) {
	store := memory.NewSeeded()

	slog.Info("Initialized memory backend")

	return &Result{
		Store:   store,
		Cleanup: nil,
	}, nil
}
