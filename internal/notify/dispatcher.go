// Package notify delivers unnotified matches and flips their notification
// state once delivery is confirmed.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/honeycarbs/job-discovery/internal/domain"
	"github.com/honeycarbs/job-discovery/internal/repository"
	"github.com/honeycarbs/job-discovery/internal/storage/filestore"
	"github.com/honeycarbs/job-discovery/pkg/logging"
)

// Sender delivers one match. A nil error confirms delivery.
type Sender interface {
	Name() string
	Send(ctx context.Context, job domain.MatchedJob) error
}

// Store is the slice of the durable store the dispatcher uses
type Store interface {
	Unnotified() ([]domain.MatchedJob, error)
	MarkNotified(ids []domain.JobID) (filestore.NotifyResult, error)
}

// Locker serializes store mutations across processes
type Locker interface {
	Lock(ctx context.Context) (unlock func() error, err error)
}

// Refresher regenerates derived views after notification state changed
type Refresher interface {
	Write() error
}

// Report summarizes one dispatch
type Report struct {
	Pending   int      `json:"pending"`
	Delivered int      `json:"delivered"`
	Failed    int      `json:"failed"`
	Missing   []string `json:"missing,omitempty"`
}

// Dispatcher sends pending matches through a Sender
type Dispatcher struct {
	store   Store
	sender  Sender
	locker  Locker
	graph   repository.MatchRepository
	refresh Refresher
	logger  *logging.Logger
	now     func() time.Time
}

// Option configures Dispatcher
type Option func(*Dispatcher)

func WithLocker(l Locker) Option {
	return func(d *Dispatcher) {
		d.locker = l
	}
}

// WithGraph mirrors notification state into a match repository
func WithGraph(r repository.MatchRepository) Option {
	return func(d *Dispatcher) {
		d.graph = r
	}
}

func WithRefresher(r Refresher) Option {
	return func(d *Dispatcher) {
		d.refresh = r
	}
}

func WithLogger(l *logging.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

func NewDispatcher(store Store, sender Sender, opts ...Option) (*Dispatcher, error) {
	if store == nil {
		return nil, fmt.Errorf("notify.Dispatcher: store is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("notify.Dispatcher: sender is required")
	}
	d := &Dispatcher{
		store:  store,
		sender: sender,
		logger: logging.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch sends every unnotified match and marks the delivered ones.
// Failed sends stay pending for the next dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context) (Report, error) {
	if d.locker != nil {
		unlock, err := d.locker.Lock(ctx)
		if err != nil {
			return Report{}, err
		}
		defer func() {
			if err := unlock(); err != nil {
				d.logger.Warn("failed to release run lock", "err", err)
			}
		}()
	}

	pending, err := d.store.Unnotified()
	if err != nil {
		return Report{}, err
	}
	rep := Report{Pending: len(pending)}

	var delivered []domain.JobID
	var sendErrs []error
	for _, job := range pending {
		if err := d.sender.Send(ctx, job); err != nil {
			rep.Failed++
			sendErrs = append(sendErrs, fmt.Errorf("%s: %w", job.ID, err))
			d.logger.Warn("notification failed", "sender", d.sender.Name(), "job_id", job.ID.String(), "err", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		delivered = append(delivered, job.ID)
	}

	if len(delivered) > 0 {
		res, err := d.store.MarkNotified(delivered)
		if err != nil {
			return rep, fmt.Errorf("mark notified: %w", err)
		}
		rep.Delivered = len(res.Updated)
		for _, id := range res.Missing {
			rep.Missing = append(rep.Missing, id.String())
		}
		d.mirror(ctx, res.Updated)
	}

	d.logger.Info("notifications dispatched",
		"sender", d.sender.Name(),
		"pending", rep.Pending,
		"delivered", rep.Delivered,
		"failed", rep.Failed,
	)
	if len(sendErrs) > 0 && rep.Delivered == 0 {
		return rep, errors.Join(sendErrs...)
	}
	return rep, nil
}

func (d *Dispatcher) mirror(ctx context.Context, ids []domain.JobID) {
	if len(ids) == 0 {
		return
	}
	if d.graph != nil {
		if err := d.graph.MarkNotified(ctx, ids, d.now().UTC()); err != nil {
			d.logger.Warn("graph mirror failed", "err", err)
		}
	}
	if d.refresh != nil {
		if err := d.refresh.Write(); err != nil {
			d.logger.Warn("viewer refresh failed", "err", err)
		}
	}
}
