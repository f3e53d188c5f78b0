package domain

import (
	"context"
	"time"
)

// ReferralEdge links a trader (customer or sub-partner) to the partner who
// referred them. A user has at most one active edge.
type ReferralEdge struct {
	ID            string
	UserID        string
	PartnerID     string
	Active        bool
	CreatedAt     time.Time
	DeactivatedAt *time.Time
}

// ReferralHistory is an append-only record of a referral reassignment.
type ReferralHistory struct {
	ID            string
	UserID        string
	FromPartnerID string
	ToPartnerID   string
	Reason        string
	ChangedAt     time.Time
}

type ReferralRepository interface {
	GetActiveEdgesByPartnerIDs(ctx context.Context, partnerIDs []string) ([]*ReferralEdge, error)
	GetActiveEdgeByUserID(ctx context.Context, userID string) (*ReferralEdge, error)
	// Reassign deactivates the user's current edge, creates the new one and
	// appends history atomically.
	Reassign(ctx context.Context, edge *ReferralEdge, history *ReferralHistory) error
	GetHistoryByUserID(ctx context.Context, userID string) ([]*ReferralHistory, error)
}

// ReferralScope is the set of users whose trades count for a partner.
type ReferralScope struct {
	PartnerID string
	// Owners maps each in-scope user to the partner that directly referred them.
	Owners map[string]string
	// ExcludedUserID is the partner's own user, never part of Owners.
	ExcludedUserID string
}

func (s ReferralScope) UserIDs() []string {
	ids := make([]string, 0, len(s.Owners))
	for id := range s.Owners {
		ids = append(ids, id)
	}
	return ids
}
