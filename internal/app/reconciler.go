/**
 * @description
 * Periodic statistics reconciler. Remote change events are best effort, so a
 * missed delivery can leave subscribers holding a stale snapshot; this cron
 * job re-lists the store on a configurable schedule, recomputes the
 * aggregate snapshot and rebroadcasts it.
 *
 * @dependencies
 * - github.com/robfig/cron/v3: Job scheduling with panic recovery.
 */

package app

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

const reconcileTimeout = 30 * time.Second

// Reconciler owns the cron scheduler for the stats rebroadcast job.
type Reconciler struct {
	cron *cron.Cron
	svc  *Service
}

// NewReconciler creates a reconciler for the given service.
func NewReconciler(svc *Service) *Reconciler {
	c := cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(log.Default()))))
	return &Reconciler{cron: c, svc: svc}
}

// Start registers the stats job on the given cron schedule and starts the
// scheduler in the background.
func (r *Reconciler) Start(schedule string) error {
	if _, err := r.cron.AddFunc(schedule, r.rebroadcastStats); err != nil {
		return err
	}
	r.cron.Start()
	log.Printf("level=info component=reconciler msg=\"stats reconciler started\" schedule=%q", schedule)
	return nil
}

// Stop gracefully stops the scheduler and waits for a running job to finish.
func (r *Reconciler) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *Reconciler) rebroadcastStats() {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	if err := r.svc.BroadcastStats(ctx); err != nil {
		log.Printf("level=error component=reconciler msg=\"stats rebroadcast failed\" err=%v", err)
	}
}
