// Package backend builds the ledger store and optional event client
// selected by configuration.
package backend

import (
	"context"

	"mkwanja/internal/amqp"
	"mkwanja/internal/ledger"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result holds the opened store and, when AMQP is configured and reachable,
// the event client.
type Result struct {
	Store  ledger.Store
	Events *amqp.Client
	// Cleanup closes Events and Store. Call it once.
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

type Config struct {
	Type BackendType

	SQLiteDBPath string

	// Empty AMQPURL disables events.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	// RequireEvents turns a failed AMQP connection into an error instead of
	// a warning. The worker needs events; the API does not.
	RequireEvents bool
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
