package interfaces

import (
	"context"

	"trade-coach/internal/types"
)

// ExecutionSource yields normalized executions from a broker or file.
type ExecutionSource interface {
	Executions(ctx context.Context) ([]types.Execution, error)
}
