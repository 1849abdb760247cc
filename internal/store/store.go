package store

import (
	"context"

	"github.com/me/imagebuilder/pkg/model"
)

// Store defines the persistence layer for render job history.
type Store interface {
	// Job records
	CreateJob(ctx context.Context, job *model.Job) error
	GetJob(ctx context.Context, id string) (*model.Job, error)
	ListJobs(ctx context.Context, opts model.ListOptions) ([]*model.Job, int, error)
	UpdateJob(ctx context.Context, job *model.Job) error

	// Finished images, PNG encoded
	SaveImage(ctx context.Context, jobID string, png []byte) error
	GetImage(ctx context.Context, jobID string) ([]byte, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
