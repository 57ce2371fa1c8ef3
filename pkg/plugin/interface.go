package plugin

import (
	"context"
)

// Module is the interface that module executables implement.
// It is served over HashiCorp go-plugin RPC; see Serve.
type Module interface {
	// Invoke calls a method declared in the module manifest.
	Invoke(ctx context.Context, class, method string, args map[string]any) (any, error)
}
