package enquiry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/KAMASDM/augustina/internal/metrics"
)

const batchSize = 20

// Dispatcher drains pending deliveries through a Mailer.
type Dispatcher struct {
	store    *Store
	mailer   Mailer
	logger   *zap.Logger
	metrics  *metrics.Collector
	interval time.Duration
	wake     chan struct{}
	now      func() time.Time
}

func NewDispatcher(store *Store, mailer Mailer, interval time.Duration, logger *zap.Logger, m *metrics.Collector) *Dispatcher {
	return &Dispatcher{
		store:    store,
		mailer:   mailer,
		logger:   logger.Named("dispatcher"),
		metrics:  m,
		interval: interval,
		wake:     make(chan struct{}, 1),
		now:      time.Now,
	}
}

// Notify asks a running dispatcher to drain the outbox now.
func (d *Dispatcher) Notify() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run drains the outbox every interval and on Notify until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if _, err := d.DispatchOnce(ctx); err != nil && ctx.Err() == nil {
			d.logger.Error("dispatch enquiries", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.wake:
		}
	}
}

// DispatchOnce sends every delivery pending now and reports how many were
// sent. A failed send marks that delivery failed and moves on.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	sent := 0
	for {
		pending, err := d.store.Pending(ctx, batchSize)
		if err != nil {
			return sent, err
		}
		if len(pending) == 0 {
			return sent, nil
		}

		for _, delivery := range pending {
			if err := ctx.Err(); err != nil {
				return sent, err
			}
			ok, err := d.deliver(ctx, delivery)
			if err != nil {
				return sent, err
			}
			if ok {
				sent++
			}
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, delivery Delivery) (bool, error) {
	log := d.logger.With(
		zap.Int64("delivery", delivery.ID),
		zap.String("enquiry", delivery.Enquiry.ID),
		zap.String("route", delivery.Route))

	// Claimed deliveries are sent at most once, even if recording the
	// outcome fails afterwards.
	if err := d.store.Claim(ctx, delivery.ID); err != nil {
		return false, err
	}

	sendErr := d.mailer.Send(ctx, Message{
		Route:      delivery.Route,
		TemplateID: delivery.TemplateID,
		Params:     delivery.Enquiry.TemplateParams(),
	})
	if sendErr != nil {
		if ctx.Err() != nil {
			// Shutting down; hand it back for the next run.
			if err := d.store.Release(context.WithoutCancel(ctx), delivery.ID); err != nil {
				log.Error("release delivery", zap.Error(err))
			}
			return false, ctx.Err()
		}
		log.Warn("delivery failed", zap.Error(sendErr))
		d.metrics.Delivery(delivery.Route, StatusFailed)
		if err := d.store.MarkFailed(ctx, delivery.ID, sendErr); err != nil {
			log.Error("record failed delivery", zap.Error(err))
		}
		return false, nil
	}

	log.Debug("delivery sent")
	d.metrics.Delivery(delivery.Route, StatusSent)
	if err := d.store.MarkSent(ctx, delivery.ID, d.now()); err != nil {
		log.Error("record sent delivery", zap.Error(err))
	}
	return true, nil
}
