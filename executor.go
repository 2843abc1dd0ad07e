package client

import (
	"context"

	"github.com/galib-hossain-meraz/youtube-notes/client/internal/shardqueue"
)

// executor abstracts the worker pool that runs background revalidations.
// Barrier lets AwaitRevalidation flush one key's queue.
type executor interface {
	Submit(context.Context, string, shardqueue.Job) error
	Barrier(context.Context, string) error
	Stop()
}
