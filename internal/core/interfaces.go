package core

import (
	"context"
	"time"

	"cluster-service/internal/types"
)

// Transport is the bus collaborator initialised first during boot.
type Transport interface {
	Init(ctx context.Context) error
}

// Presenter is the presentation collaborator. Enqueue must not block.
type Presenter interface {
	Init(ctx context.Context) error
	StartTask(ctx context.Context) error
	Enqueue(cmd types.UICommand) bool
}

// Ticker is a periodic consumer driven from the dispatch loop.
type Ticker interface {
	Update(now time.Time)
}
