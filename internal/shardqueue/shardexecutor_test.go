package shardqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type noopJob struct{}

func (noopJob) Run(context.Context) error { return nil }

// blockShard occupies the single worker of a one-shard executor until the
// returned func is called.
func blockShard(t *testing.T, ex *ShardExecutor, key string) func() {
	t.Helper()
	release := make(chan struct{})
	started := make(chan struct{})
	if err := ex.Submit(context.Background(), key, JobFunc(func(context.Context) error {
		close(started)
		<-release
		return nil
	})); err != nil {
		t.Fatalf("submit blocking job: %v", err)
	}
	<-started
	var once sync.Once
	return func() { once.Do(func() { close(release) }) }
}

func TestShardExecutor_FIFOOrdering(t *testing.T) {
	t.Parallel()
	p := NewShardExecutor(Config{Shards: 4, QueueSize: 10})
	defer p.Stop()

	var (
		mu    sync.Mutex
		order []int
	)
	for i := 0; i < 5; i++ {
		v := i
		if err := p.Submit(context.Background(), "notes/list", JobFunc(func(context.Context) error {
			mu.Lock()
			order = append(order, v)
			mu.Unlock()
			return nil
		})); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}
	if err := p.Barrier(context.Background(), "notes/list"); err != nil {
		t.Fatalf("barrier: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 5 {
		t.Fatalf("ran %d jobs, want 5", len(order))
	}
	for i, v := range order {
		if i != v {
			t.Fatalf("expected FIFO order, got %v", order)
		}
	}
}

func TestShardExecutor_ParallelDifferentKeys(t *testing.T) {
	t.Parallel()
	p := NewShardExecutor(Config{Shards: 4, QueueSize: 10})
	defer p.Stop()

	keyA, keyB := "users/me", "notes/list"
	for tries := 0; tries < 100 && p.shardFor(keyA) == p.shardFor(keyB); tries++ {
		keyB += "x"
	}

	start := make(chan struct{})
	done := make(chan struct{})
	_ = p.Submit(context.Background(), keyA, JobFunc(func(context.Context) error {
		<-start
		close(done)
		return nil
	}))
	_ = p.Submit(context.Background(), keyB, JobFunc(func(context.Context) error {
		close(start)
		<-done
		return nil
	}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("jobs blocked each other; expected parallelism")
	}
}

func TestShardExecutor_SerialExecutionSameKey(t *testing.T) {
	t.Parallel()
	const N = 100
	p := NewShardExecutor(Config{Shards: 4, QueueSize: N})
	defer p.Stop()

	var inFlight, overlap int32
	for i := 0; i < N; i++ {
		_ = p.Submit(context.Background(), "X", JobFunc(func(context.Context) error {
			if atomic.AddInt32(&inFlight, 1) > 1 {
				atomic.StoreInt32(&overlap, 1)
			}
			time.Sleep(50 * time.Microsecond)
			atomic.AddInt32(&inFlight, -1)
			return nil
		}))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Barrier(ctx, "X"); err != nil {
		t.Fatalf("barrier: %v", err)
	}
	if atomic.LoadInt32(&overlap) == 1 {
		t.Fatal("detected overlapping execution for same key")
	}
}

func TestShardExecutor_QueueFull(t *testing.T) {
	t.Parallel()
	ex := NewShardExecutor(Config{Shards: 1, QueueSize: 1, EnqueueTimeout: 10 * time.Millisecond})
	defer ex.Stop()
	release := blockShard(t, ex, "same")
	defer release()

	_ = ex.Submit(context.Background(), "same", noopJob{})
	err := ex.Submit(context.Background(), "same", noopJob{})
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	var qf *QueueFullError
	if !errors.As(err, &qf) || qf.Capacity != 1 {
		t.Fatalf("expected QueueFullError with capacity 1, got %#v", err)
	}
}

func TestShardExecutor_SubmitContextCanceledWhileWaiting(t *testing.T) {
	t.Parallel()
	ex := NewShardExecutor(Config{Shards: 1, QueueSize: 1, EnqueueTimeout: time.Second})
	defer ex.Stop()
	release := blockShard(t, ex, "k")
	defer release()

	_ = ex.Submit(context.Background(), "k", noopJob{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := ex.Submit(ctx, "k", noopJob{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestShardExecutor_SubmitAfterStop(t *testing.T) {
	t.Parallel()
	p := NewShardExecutor(Config{Shards: 2, QueueSize: 2})
	p.Stop()
	p.Stop()

	if err := p.Submit(context.Background(), "Z", noopJob{}); !errors.Is(err, ErrExecutorClosed) {
		t.Fatalf("expected ErrExecutorClosed, got %v", err)
	}
	if err := p.Barrier(context.Background(), "Z"); !errors.Is(err, ErrExecutorClosed) {
		t.Fatalf("expected ErrExecutorClosed from Barrier, got %v", err)
	}
}

func TestShardExecutor_StopSubmit_RaceFree(t *testing.T) {
	t.Parallel()
	p := NewShardExecutor(Config{Shards: 4, QueueSize: 32})

	var wg sync.WaitGroup
	for i := 0; i < 500; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Submit(context.Background(), "k", noopJob{})
		}()
	}
	go p.Stop()
	wg.Wait()
}

func TestShardExecutor_AcceptedJobsRunAcrossStop(t *testing.T) {
	t.Parallel()
	for round := 0; round < 20; round++ {
		p := NewShardExecutor(Config{Shards: 2, QueueSize: 256})

		var accepted, ran int32
		var wg sync.WaitGroup
		for i := 0; i < 200; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := p.Submit(context.Background(), "k", JobFunc(func(context.Context) error {
					atomic.AddInt32(&ran, 1)
					return nil
				}))
				if err == nil {
					atomic.AddInt32(&accepted, 1)
				}
			}()
		}
		p.Stop()
		wg.Wait()
		if a, r := atomic.LoadInt32(&accepted), atomic.LoadInt32(&ran); a != r {
			t.Fatalf("round %d: %d jobs accepted, %d ran", round, a, r)
		}
	}
}

func TestShardExecutor_StopDrainsQueuedJobs(t *testing.T) {
	t.Parallel()
	ex := NewShardExecutor(Config{Shards: 1, QueueSize: 4})
	release := blockShard(t, ex, "k")

	var ran int32
	for i := 0; i < 3; i++ {
		_ = ex.Submit(context.Background(), "k", JobFunc(func(context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		}))
	}
	release()
	ex.Stop()
	if got := atomic.LoadInt32(&ran); got != 3 {
		t.Fatalf("drained %d jobs, want 3", got)
	}
}

func TestErrorHandler_CalledOnceNoRetry(t *testing.T) {
	t.Parallel()
	var calls, runs int32
	ex := NewShardExecutor(Config{Shards: 1, QueueSize: 8, ErrorHandler: func(error) { atomic.AddInt32(&calls, 1) }})
	defer ex.Stop()

	_ = ex.Submit(context.Background(), "k", JobFunc(func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return errors.New("boom")
	}))
	if err := ex.Barrier(context.Background(), "k"); err != nil {
		t.Fatalf("barrier: %v", err)
	}
	if got := atomic.LoadInt32(&runs); got != 1 {
		t.Fatalf("job ran %d times, want 1", got)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("error handler calls = %d, want 1", got)
	}
}

func TestErrorHandler_PanicRecovered(t *testing.T) {
	t.Parallel()
	ex := NewShardExecutor(Config{Shards: 1, QueueSize: 8, ErrorHandler: func(error) { panic("handler panic") }})
	defer ex.Stop()

	_ = ex.Submit(context.Background(), "k", JobFunc(func(context.Context) error { return errors.New("boom") }))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ex.Barrier(ctx, "k"); err != nil {
		t.Fatalf("worker did not continue after handler panic: %v", err)
	}
}

func TestWorker_JobPanicIsReported(t *testing.T) {
	t.Parallel()
	errs := make(chan error, 1)
	ex := NewShardExecutor(Config{Shards: 1, QueueSize: 4, ErrorHandler: func(err error) { errs <- err }})
	defer ex.Stop()

	_ = ex.Submit(context.Background(), "k", JobFunc(func(context.Context) error { panic("job panic") }))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ex.Barrier(ctx, "k"); err != nil {
		t.Fatalf("same shard did not continue after job panic: %v", err)
	}
	select {
	case err := <-errs:
		if err == nil {
			t.Fatal("expected panic to surface as error")
		}
	default:
		t.Fatal("error handler not called for panicking job")
	}
}

func TestWorker_SkipsRunForCanceledJob(t *testing.T) {
	t.Parallel()
	var handlerCalls, ran int32
	ex := NewShardExecutor(Config{Shards: 1, QueueSize: 2, ErrorHandler: func(error) { atomic.AddInt32(&handlerCalls, 1) }})
	defer ex.Stop()
	release := blockShard(t, ex, "k")

	jobCtx, cancelJob := context.WithCancel(context.Background())
	_ = ex.Submit(jobCtx, "k", JobFunc(func(context.Context) error {
		atomic.StoreInt32(&ran, 1)
		return nil
	}))
	cancelJob()
	release()

	if err := ex.Barrier(context.Background(), "k"); err != nil {
		t.Fatalf("barrier: %v", err)
	}
	if atomic.LoadInt32(&ran) == 1 {
		t.Fatal("Run should not be called for a canceled job")
	}
	if atomic.LoadInt32(&handlerCalls) == 0 {
		t.Fatal("expected error handler for canceled job")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("NOTES_REVALIDATE_SHARDS", "8")
	t.Setenv("NOTES_REVALIDATE_QUEUE_SIZE", "256")
	t.Setenv("NOTES_REVALIDATE_ENQUEUE_TIMEOUT", "250ms")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Shards != 8 || cfg.QueueSize != 256 {
		t.Fatalf("unexpected Shards/QueueSize: %+v", cfg)
	}
	if cfg.EnqueueTimeout != 250*time.Millisecond {
		t.Fatalf("unexpected EnqueueTimeout: %v", cfg.EnqueueTimeout)
	}
}

func TestQueueFullError_Is(t *testing.T) {
	t.Parallel()
	err := &QueueFullError{Shard: 1, Length: 3, Capacity: 3}
	if !errors.Is(err, ErrQueueFull) {
		t.Fatal("QueueFullError should match ErrQueueFull")
	}
	if errors.Is(err, ErrExecutorClosed) {
		t.Fatal("QueueFullError must not match ErrExecutorClosed")
	}
}
