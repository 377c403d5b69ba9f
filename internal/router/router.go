package router

import (
	"fmt"

	"cluster-service/internal/types"
)

// DefaultMaxSubscribers is the per-topic subscriber capacity.
const DefaultMaxSubscribers = 8

// Router groups the topics of the node. Each topic is bounded on its own.
type Router struct {
	Samples *Topic[types.Sample]
	Status  *Topic[types.StatusSnapshot]
}

func New(maxSubscribers int) (*Router, error) {
	samples, err := NewTopic[types.Sample](maxSubscribers)
	if err != nil {
		return nil, fmt.Errorf("sample topic: %w", err)
	}
	status, err := NewTopic[types.StatusSnapshot](maxSubscribers)
	if err != nil {
		return nil, fmt.Errorf("status topic: %w", err)
	}
	return &Router{Samples: samples, Status: status}, nil
}
