package requestid

import (
	"context"

	"github.com/google/uuid"
)

type (
	requestKey   struct{}
	executionKey struct{}
	operatorKey  struct{}
)

// New generates a random UUID v4 identifier. Used for both request and
// execution ids.
func New() string {
	return uuid.NewString()
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestKey{}, id)
}

// FromContext extracts the request ID from ctx. Returns "" if absent.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestKey{}).(string)
	return id
}

// WithExecutionID tags ctx with the id of one schedule execution, so every
// log line of a claim/send/finish cycle can be correlated.
func WithExecutionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, executionKey{}, id)
}

func ExecutionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(executionKey{}).(string)
	return id
}

// WithOperator records the authenticated API caller.
func WithOperator(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, operatorKey{}, name)
}

func OperatorFromContext(ctx context.Context) string {
	name, _ := ctx.Value(operatorKey{}).(string)
	return name
}
