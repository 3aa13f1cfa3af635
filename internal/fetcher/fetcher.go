package fetcher

import (
	"context"

	"github.com/ralt/branchdiff/internal/models"
)

// Fetcher retrieves the binary package lists of a branch
type Fetcher interface {
	// Fetch returns the packages of branch, restricted to arch unless arch is empty
	Fetch(ctx context.Context, branch, arch string) (*models.Snapshot, error)
}

// Func adapts a function to the Fetcher interface
type Func func(ctx context.Context, branch, arch string) (*models.Snapshot, error)

// Fetch calls f
func (f Func) Fetch(ctx context.Context, branch, arch string) (*models.Snapshot, error) {
	return f(ctx, branch, arch)
}
