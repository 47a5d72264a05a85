/**
 * @description
 * This file implements the remote change feed: change events published by
 * peer back-office instances arrive over RabbitMQ, the single changed row is
 * re-fetched from the store, and the result is replayed onto the same
 * in-process bus that local mutations use. Subscribers therefore see one
 * unified notification stream regardless of where a change originated.
 *
 * Events are identity-only; whatever the store holds at re-fetch time wins,
 * so replays and out-of-order deliveries are harmless.
 */

package app

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/goldenelnobles/transaction-service/internal/domain"
	"github.com/goldenelnobles/transaction-service/internal/notify"
	"github.com/goldenelnobles/transaction-service/internal/store"
	"github.com/goldenelnobles/transaction-service/pkg/rabbitmq"
)

const feedHandlerTimeout = 15 * time.Second

// ChangeFeedConsumer replays broker-delivered change events onto the bus.
type ChangeFeedConsumer struct {
	repo store.Repository
	bus  *notify.Bus
	svc  *Service
}

// ChangeFeedConsumer returns the consumer bound to this service's store and bus.
func (s *Service) ChangeFeedConsumer() *ChangeFeedConsumer {
	return &ChangeFeedConsumer{repo: s.repo, bus: s.bus, svc: s}
}

// HandleMessage is the broker binding entry point. It returns true to ack;
// malformed payloads are acked (re-queuing cannot fix them), transient store
// failures are nacked for redelivery.
func (c *ChangeFeedConsumer) HandleMessage(body []byte) bool {
	ctx, cancel := context.WithTimeout(context.Background(), feedHandlerTimeout)
	defer cancel()

	var event rabbitmq.ChangeEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("level=warn component=change_feed msg=\"malformed change event; dropping\" err=%v", err)
		return true
	}

	if err := c.processEvent(ctx, event); err != nil {
		log.Printf("level=error component=change_feed msg=\"change event processing failed\" transaction_id=%s kind=%s err=%v", event.TransactionID, event.Kind, err)
		return false
	}
	return true
}

func (c *ChangeFeedConsumer) processEvent(ctx context.Context, event rabbitmq.ChangeEvent) error {
	id, err := uuid.Parse(event.TransactionID)
	if err != nil {
		log.Printf("level=warn component=change_feed msg=\"change event with invalid id; dropping\" transaction_id=%q", event.TransactionID)
		return nil
	}

	var tx *domain.Transaction
	if event.Kind != "deleted" {
		tx, err = c.repo.FindTransactionByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrTransactionNotFound) {
				// The row vanished between the event and the re-fetch; treat it
				// as a deletion so views drop it.
				event.Kind = "deleted"
			} else {
				return err
			}
		}
	}

	switch event.Kind {
	case "created":
		c.bus.Publish(notify.Event{Channel: notify.ChannelCreated, Transaction: tx})
	case "updated":
		c.bus.Publish(notify.Event{Channel: notify.ChannelUpdated, Transaction: tx})
	case "deleted":
		// The row is gone, so all that can travel is its identity; subscribers
		// need at least the id to drop the right row from their views.
		c.bus.Publish(notify.Event{Channel: notify.ChannelDeleted, Transaction: &domain.Transaction{ID: id, Code: event.Code}})
	default:
		log.Printf("level=warn component=change_feed msg=\"unknown change kind; dropping\" kind=%q", event.Kind)
		return nil
	}

	return c.svc.BroadcastStats(ctx)
}

// FeedBindings maps broker routing keys to the consumer's handler, in the
// shape expected by rabbitmq.Consumer.ConsumeWithBindings.
func (c *ChangeFeedConsumer) FeedBindings() map[string]func([]byte) bool {
	return map[string]func([]byte) bool{
		"transactions.changed.created": c.HandleMessage,
		"transactions.changed.updated": c.HandleMessage,
		"transactions.changed.deleted": c.HandleMessage,
	}
}
