package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"cluster-service/internal/logger"
	"cluster-service/internal/router"
	"cluster-service/internal/types"
)

// Redis keys
const (
	ClusterHash = "cluster"
	LogList     = "cluster:log"
	InjectList  = "cluster:inject"
)

// CommandQueueSize bounds the pending presentation commands.
const CommandQueueSize = 10

type Callbacks struct {
	InjectCallback func(string) error // "init-fail:<subsystem>", "error:<code>"
}

type timedStatus struct {
	status types.StatusSnapshot
	ts     time.Time
}

// RedisClient is the presentation bridge. Router callbacks and Enqueue only
// hand data to the worker goroutine, which owns all Redis I/O.
type RedisClient struct {
	client    *redis.Client
	callbacks Callbacks
	logger    *logger.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	bootID    string

	commands chan types.UICommand
	samples  chan types.Sample
	status   chan timedStatus
	statusIn *statusSink

	view view
}

func NewRedisClient(host string, port int, l *logger.Logger, callbacks Callbacks) *RedisClient {
	ctx, cancel := context.WithCancel(context.Background())
	r := &RedisClient{
		client: redis.NewClient(&redis.Options{
			Addr: fmt.Sprintf("%s:%d", host, port),
			DB:   0,
		}),
		callbacks: callbacks,
		logger:    l,
		ctx:       ctx,
		cancel:    cancel,
		bootID:    uuid.NewString(),
		commands:  make(chan types.UICommand, CommandQueueSize),
		samples:   make(chan types.Sample, 1),
		status:    make(chan timedStatus, 1),
	}
	r.statusIn = &statusSink{r: r}
	return r
}

// Init connects to Redis and resets the dashboard hash for this boot.
func (r *RedisClient) Init(ctx context.Context) error {
	r.logger.Infof("Attempting to connect to Redis at %s", r.client.Options().Addr)

	if err := r.client.Ping(ctx).Err(); err != nil {
		r.logger.Infof("Redis connection failed: %v", err)
		return fmt.Errorf("Redis connection failed: %w", err)
	}
	r.logger.Infof("Successfully connected to Redis")

	pipe := r.client.Pipeline()
	pipe.Del(ctx, ClusterHash, LogList)
	pipe.HSet(ctx, ClusterHash, "boot-id", r.bootID)
	pipe.Publish(ctx, ClusterHash, "boot-id")
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to reset %s hash: %w", ClusterHash, err)
	}
	r.logger.Infof("Boot id %s", r.bootID)
	return nil
}

// StartTask starts the worker and the injection listener.
func (r *RedisClient) StartTask(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.logger.Infof("Starting presentation worker")

	r.wg.Add(1)
	go r.worker()

	if r.callbacks.InjectCallback != nil {
		r.wg.Add(1)
		go r.listCommandListener(InjectList, r.callbacks.InjectCallback)
	}
	return nil
}

// Enqueue hands cmd to the worker. It returns false when the queue is full.
func (r *RedisClient) Enqueue(cmd types.UICommand) bool {
	select {
	case r.commands <- cmd:
		return true
	default:
		return false
	}
}

// Receive is the sample topic subscriber. Only the latest sample is kept.
func (r *RedisClient) Receive(s types.Sample, _ time.Time) {
	offerLatest(r.samples, s)
}

// StatusSubscriber returns the status topic subscriber.
func (r *RedisClient) StatusSubscriber() router.Subscriber[types.StatusSnapshot] {
	return r.statusIn
}

type statusSink struct {
	r *RedisClient
}

func (s *statusSink) Receive(st types.StatusSnapshot, ts time.Time) {
	offerLatest(s.r.status, timedStatus{status: st, ts: ts})
}

// offerLatest puts v into a one-slot channel, replacing any unread value.
func offerLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (r *RedisClient) worker() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Infof("Context cancelled, exiting presentation worker")
			return
		case st := <-r.status:
			r.write(r.view.applyStatus(st.status, st.ts))
		case cmd := <-r.commands:
			r.write(r.view.applyCommand(cmd))
		case s := <-r.samples:
			r.write(r.view.applySample(s))
		}
	}
}

// write applies u to the cluster hash and announces each field.
func (r *RedisClient) write(u update) {
	if u.empty() {
		return
	}

	pipe := r.client.Pipeline()
	if len(u.set) > 0 {
		pipe.HSet(r.ctx, ClusterHash, u.set)
	}
	if len(u.del) > 0 {
		pipe.HDel(r.ctx, ClusterHash, u.del...)
	}
	if u.hasLog {
		lines := make([]interface{}, len(u.logLines))
		for i, l := range u.logLines {
			lines[i] = l
		}
		pipe.Del(r.ctx, LogList)
		pipe.RPush(r.ctx, LogList, lines...)
	}
	for _, field := range u.fields() {
		pipe.Publish(r.ctx, ClusterHash, field)
	}

	if _, err := pipe.Exec(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Warnf("Failed to update %s: %v", ClusterHash, err)
	}
}

func (r *RedisClient) listCommandListener(key string, handler func(string) error) {
	defer r.wg.Done()
	r.logger.Infof("Starting list command listener for %s", key)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Infof("Context cancelled, exiting %s listener", key)
			return
		default:
			// Use BRPOP with a short timeout to allow periodic context cancellation checks
			result, err := r.client.BRPop(r.ctx, 5*time.Second, key).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if errors.Is(err, context.Canceled) {
					r.logger.Infof("Context cancelled, exiting %s listener", key)
					return
				}
				r.logger.Infof("Error reading from %s list: %v", key, err)
				select {
				case <-r.ctx.Done():
				case <-time.After(time.Second):
				}
				continue
			}

			if len(result) >= 2 { // BRPOP returns [key, value]
				value := result[1]
				r.logger.Debugf("Received command from %s: %s", key, value)
				if err := handler(value); err != nil {
					r.logger.Warnf("Error handling %s command: %v", key, err)
				}
			}
		}
	}
}

func (r *RedisClient) BootID() string { return r.bootID }

func (r *RedisClient) Close() error {
	r.logger.Infof("Closing Redis client")
	r.cancel()

	// Wait for all goroutines to finish with a timeout
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Infof("All Redis goroutines finished")
	case <-time.After(5 * time.Second):
		r.logger.Infof("Timeout waiting for Redis goroutines to finish")
	}

	return r.client.Close()
}
