// Package sweeper runs the periodic payment release job: completed jobs whose
// hold period has elapsed get their provider payout transferred without
// waiting for the consumer to trigger it.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"job-marketplace-api/internal/entity"
	"job-marketplace-api/pkg/eventbus"

	"github.com/robfig/cron/v3"
)

const sweepTimeout = 2 * time.Minute

// ReleaseService is the slice of the job request service the sweeper needs.
type ReleaseService interface {
	ReleaseEligiblePayments(ctx context.Context) ([]entity.Event, error)
}

type Sweeper struct {
	cron     *cron.Cron
	releaser ReleaseService
	events   eventbus.Publisher
	log      *slog.Logger
}

func New(releaser ReleaseService, events eventbus.Publisher, log *slog.Logger) *Sweeper {
	return &Sweeper{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		releaser: releaser,
		events:   events,
		log:      log,
	}
}

func (s *Sweeper) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("release sweeper started", "schedule", schedule)

	return nil
}

// Stop waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("release sweeper stopped")
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	events, err := s.releaser.ReleaseEligiblePayments(ctx)
	if err != nil {
		// partial failure: some releases may still have gone through
		s.log.Error("release sweep finished with errors", "error", err, "released", len(events))
	}

	for _, ev := range events {
		if pubErr := s.events.Publish(ctx, ev.Name, ev); pubErr != nil {
			s.log.Warn("event publish failed", "routing_key", ev.Name, "error", pubErr)
		}
	}

	if len(events) > 0 {
		s.log.Info("release sweep done", "released", len(events))
	}
}
