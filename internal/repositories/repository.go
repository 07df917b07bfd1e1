package repositories

import "context"

// Repository aggregates the document-store repositories consumed by the
// service layer. The identity provider is a separate capability (see
// IdentityProvider); profiles, schools and children live in the store.
type Repository interface {
	Profile() ProfileRepository
	School() SchoolRepository
	Child() ChildRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
