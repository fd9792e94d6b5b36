package repository

import "context"

// Loader reads a TemplateBatch.
// Small interface used by the preload run and the watch loop.
type Loader interface {
	Load(ctx context.Context) (*TemplateBatch, error)
}

// Repository abstracts loading and watching of the batch file.
// JSONRepository implements this interface.
type Repository interface {
	Loader
	Path() string
	StartWatcher(ctx context.Context, onChange func()) error
}
