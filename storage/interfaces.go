package storage

import (
	"context"

	"f95-engagement/models"
)

// PassWriter is the interface any export backend must satisfy. WritePass
// must give up once ctx is done.
type PassWriter interface {
	WritePass(ctx context.Context, report *models.PassReport) error
	Close() error
}
