package projection

import (
	"context"
	"fmt"

	"github.com/sagestream/sagestream/config"
)

type InitFunc func(ctx context.Context, sc config.Store) (Store, error)

var backends = make(map[string]InitFunc)

// RegisterBackend registers a store backend. It is meant to be called from
// an init function.
func RegisterBackend(typeName string, initFunc InitFunc) {
	backends[typeName] = initFunc
}

// Open returns a new Store for the configured backend
func Open(ctx context.Context, sc config.Store) (Store, error) {
	if sc.Type == "" {
		return nil, fmt.Errorf("no store.type configured")
	}
	initFunc, exists := backends[sc.Type]
	if !exists {
		return nil, fmt.Errorf("store.type %q not found or registered", sc.Type)
	}
	return initFunc(ctx, sc)
}
