package domain

import (
	"context"
	"time"
)

type Message struct {
	Key   []byte
	Value []byte
}

type PublisherPort interface {
	Publish(topic string, msgs ...Message) error
}

type SubscriberPort interface {
	Subscribe(ctx context.Context, topic, groupID string) (<-chan Message, error)
}

const (
	TopicCommissionSnapshots = "ib-commission-snapshots"
	TopicSyncRuns            = "ib-sync-runs"
	TopicPartnerEvents       = "ib-partner-events"
)

// EventPublisher emits engine results for downstream reporting.
type EventPublisher interface {
	PublishCommission(commission *PartnerCommission) error
	PublishSyncRun(run *SyncRunSummary) error
}

type PartnerEventType string

const (
	PartnerEventApproved          PartnerEventType = "partner.approved"
	PartnerEventAssignmentsEdited PartnerEventType = "partner.assignments_edited"
	PartnerEventReferralAssigned  PartnerEventType = "referral.assigned"
)

// PartnerEvent is produced by the approval workflow and consumed here to
// trigger a backfill for the affected partner.
type PartnerEvent struct {
	Type       PartnerEventType `json:"type"`
	PartnerID  string           `json:"partner_id"`
	UserID     string           `json:"user_id,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
