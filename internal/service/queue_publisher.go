// Package service holds the application services that sit between the HTTP
// handlers and the auth core: user management and audit publishing.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/tms-api/internal/auth"
	"github.com/iliyamo/tms-api/internal/metrics"
	q "github.com/iliyamo/tms-api/internal/queue"
)

// EventSink delivers one audit event.
type EventSink interface {
	Publish(ctx context.Context, ev q.AuthEvent) error
}

// AMQPSink publishes events to the durable auth.events queue.  The
// connection is opened on first use and re-dialled after a failure.
type AMQPSink struct {
	URL string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Publish marshals ev and sends it as a persistent message.
func (s *AMQPSink) Publish(ctx context.Context, ev q.AuthEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.open(); err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := s.ch.PublishWithContext(ctx, "", q.AuditQueueName, false, false, pub); err != nil {
		s.reset()
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close releases the broker connection.
func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}

func (s *AMQPSink) open() error {
	if s.ch != nil && !s.ch.IsClosed() {
		return nil
	}
	s.reset()
	conn, err := amqp.Dial(s.URL)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(q.AuditQueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("queue declare: %w", err)
	}
	s.conn, s.ch = conn, ch
	return nil
}

func (s *AMQPSink) reset() {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.conn, s.ch = nil, nil
}

// AuditPublisher queues audit events and hands them to a sink from one
// background goroutine, so a slow or absent broker never delays a
// request.  When the buffer is full new events are dropped and counted.
type AuditPublisher struct {
	sink    EventSink
	log     *slog.Logger
	events  chan q.AuthEvent
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Uint64

	// mu orders Emit against Close so nothing is sent after the drain.
	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

// NewAuditPublisher starts the delivery goroutine.  buffer < 1 means 1.
func NewAuditPublisher(sink EventSink, buffer int, log *slog.Logger) *AuditPublisher {
	if buffer < 1 {
		buffer = 1
	}
	p := &AuditPublisher{
		sink:   sink,
		log:    log,
		events: make(chan q.AuthEvent, buffer),
		done:   make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Record implements auth.Recorder.
func (p *AuditPublisher) Record(_ context.Context, o auth.Outcome) {
	p.Emit(q.NewAuthEvent(string(o.Flow), metrics.Result(o.Err), o.Subject, o.Subject))
}

// Emit enqueues ev without blocking.  Events emitted after Close are
// dropped.
func (p *AuditPublisher) Emit(ev q.AuthEvent) {
	if p == nil {
		return
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.dropped.Add(1)
		return
	}
	select {
	case p.events <- ev:
	default:
		p.dropped.Add(1)
	}
}

// Dropped is the number of events lost to a full buffer or a closed
// publisher.
func (p *AuditPublisher) Dropped() uint64 { return p.dropped.Load() }

// Close stops accepting events, delivers what is buffered and waits.
func (p *AuditPublisher) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.done)
		p.mu.Unlock()
		p.wg.Wait()
	})
}

func (p *AuditPublisher) run() {
	defer p.wg.Done()
	for {
		select {
		case ev := <-p.events:
			p.deliver(ev)
		case <-p.done:
			for {
				select {
				case ev := <-p.events:
					p.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (p *AuditPublisher) deliver(ev q.AuthEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.sink.Publish(ctx, ev); err != nil {
		p.log.Warn("audit: publish failed", "type", ev.Type, "user_id", ev.UserID, "error", err)
	}
}
