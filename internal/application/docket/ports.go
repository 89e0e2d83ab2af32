package docket

import (
	"context"
	"time"

	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/messaging/kafka"
)

// RenewalLocker serializes renewal batches per matter.  The redis
// LockFactory implements it.
type RenewalLocker interface {
	LockRenewals(ctx context.Context, matterIDs []int64) (func(context.Context) error, error)
}

// EventPublisher sends enveloped notifications.  The kafka Producer
// implements it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key, eventType string, payload interface{}) error
}

// Clock returns the current time; tests pin it.
type Clock func() time.Time

type nopLocker struct{}

func (nopLocker) LockRenewals(context.Context, []int64) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

// NopLocker grants every lock.  Single-process tools use it.
func NopLocker() RenewalLocker { return nopLocker{} }

type nopPublisher struct{}

func (nopPublisher) PublishEvent(context.Context, string, string, string, interface{}) error {
	return nil
}

// NopPublisher drops notifications.
func NopPublisher() EventPublisher { return nopPublisher{} }

// Task change actions announced on kafka.TopicTaskChanged.
const (
	ChangeCreated     = "created"
	ChangeCleared     = "cleared"
	ChangeDeleted     = "deleted"
	ChangeRescheduled = "rescheduled"
	ChangeScheduled   = "scheduled"
	ChangeTransition  = "transition"
)

var _ EventPublisher = (*kafka.Producer)(nil)

//Personal.AI order the ending
