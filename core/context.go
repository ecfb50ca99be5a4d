package core

import "context"

// Context keys for job options
type contextKey string

const jobNumberKey contextKey = "jobNumber"

// withJobNumber stores the progress number handed to a picked job
func withJobNumber(ctx context.Context, n int64) context.Context {
	return context.WithValue(ctx, jobNumberKey, n)
}

// jobNumber returns the progress number of the current job, or 0 outside a batch
func jobNumber(ctx context.Context) int64 {
	n, _ := ctx.Value(jobNumberKey).(int64)
	return n
}
