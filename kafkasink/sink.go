// Package kafkasink streams committed ChainPay events to a Kafka topic.
//
// Each event.Record is published as JSON, keyed by the hex address of the
// event's subject so that all events of one merchant or account land on the
// same partition in order. Publishing is asynchronous: hooks enqueue and a
// background loop writes batches, so a slow broker never holds the engine.
package kafkasink

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/chainpayid/chainpay/event"
	"github.com/chainpayid/chainpay/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin           = (*Sink)(nil)
	_ plugin.OnInit           = (*Sink)(nil)
	_ plugin.OnShutdown       = (*Sink)(nil)
	_ plugin.OnEventCommitted = (*Sink)(nil)
)

// DefaultTopic is the topic events are published to.
const DefaultTopic = "chainpay.events"

// Header keys set on every message.
const (
	HeaderEventName = "event-name"
	HeaderEventID   = "event-id"
)

// Defaults.
const (
	DefaultQueueSize    = 1024
	DefaultBatchSize    = 100
	DefaultWriteTimeout = 10 * time.Second
)

// ErrClosed is returned when publishing to a stopped sink.
var ErrClosed = errors.New("kafkasink: sink closed")

// Writer is the subset of *kafka.Writer the sink needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter returns a synchronous writer for topic on brokers.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
}

// Sink is a plugin publishing committed events to Kafka.
type Sink struct {
	writer       Writer
	logger       *slog.Logger
	batchSize    int
	writeTimeout time.Duration

	queue   chan kafka.Message
	start   sync.Once
	stop    sync.Once
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// Option configures a Sink.
type Option func(*Sink)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) { s.logger = logger }
}

// WithQueueSize bounds the number of messages waiting to be written.
// Events arriving at a full queue are dropped and counted.
func WithQueueSize(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.queue = make(chan kafka.Message, n)
		}
	}
}

// WithBatchSize sets the maximum messages per write.
func WithBatchSize(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithWriteTimeout bounds each batch write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Sink) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// New creates a Sink writing through w.
func New(w Writer, opts ...Option) *Sink {
	s := &Sink{
		writer:       w,
		logger:       slog.Default(),
		batchSize:    DefaultBatchSize,
		writeTimeout: DefaultWriteTimeout,
		queue:        make(chan kafka.Message, DefaultQueueSize),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements plugin.Plugin.
func (s *Sink) Name() string { return "kafka-sink" }

// OnInit implements plugin.OnInit by starting the publish loop.
func (s *Sink) OnInit(_ context.Context, _ any) error {
	s.start.Do(func() { go s.loop() })
	return nil
}

// OnEventCommitted implements plugin.OnEventCommitted.
func (s *Sink) OnEventCommitted(_ context.Context, rec event.Record) error {
	msg, err := Message(rec)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	s.start.Do(func() { go s.loop() })

	select {
	case s.queue <- msg:
	default:
		s.dropped.Add(1)
		s.logger.Warn("kafkasink: queue full, dropping event",
			"event", rec.Name,
			"seq", rec.Seq,
		)
	}
	return nil
}

// OnShutdown implements plugin.OnShutdown. Queued events are flushed before
// the writer is closed.
func (s *Sink) OnShutdown(ctx context.Context) error {
	var err error
	s.stop.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()

		s.start.Do(func() { go s.loop() })

		select {
		case <-s.done:
		case <-ctx.Done():
			err = ctx.Err()
		}
		if cerr := s.writer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}

// Dropped returns the number of events discarded at a full queue.
func (s *Sink) Dropped() uint64 { return s.dropped.Load() }

// Failed returns the number of events whose write failed.
func (s *Sink) Failed() uint64 { return s.failed.Load() }

func (s *Sink) loop() {
	defer close(s.done)

	batch := make([]kafka.Message, 0, s.batchSize)
	for msg := range s.queue {
		batch = append(batch[:0], msg)
	drain:
		for len(batch) < s.batchSize {
			select {
			case next, ok := <-s.queue:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}
		s.write(batch)
	}
}

func (s *Sink) write(batch []kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()

	if err := s.writer.WriteMessages(ctx, batch...); err != nil {
		s.failed.Add(uint64(len(batch)))
		s.logger.Error("kafkasink: write failed",
			"messages", len(batch),
			"error", err,
		)
		return
	}
	s.logger.Debug("kafkasink: batch written", "messages", len(batch))
}

// Message encodes rec as a Kafka message.
func Message(rec event.Record) (kafka.Message, error) {
	value, err := json.Marshal(rec)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(rec.Subject.Hex()),
		Value: value,
		Time:  rec.OccurredAt,
		Headers: []kafka.Header{
			{Key: HeaderEventName, Value: []byte(rec.Name)},
			{Key: HeaderEventID, Value: []byte(rec.ID.String())},
		},
	}, nil
}
