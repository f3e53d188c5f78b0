// Package domaintest provides in-memory implementations of the domain
// repositories for tests.
package domaintest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
)

type MemTradeRepo struct {
	mu      sync.Mutex
	trades  map[string]*domain.TradeRecord
	Batches int
	Err     error
}

func NewMemTradeRepo() *MemTradeRepo {
	return &MemTradeRepo{trades: make(map[string]*domain.TradeRecord)}
}

func tradeKey(accountID, externalID string) string { return accountID + "|" + externalID }

func (r *MemTradeRepo) UpsertTrades(_ context.Context, trades []*domain.TradeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Batches++
	for _, t := range trades {
		cp := *t
		key := tradeKey(t.AccountID, t.ExternalID)
		if existing, ok := r.trades[key]; ok {
			cp.ID = existing.ID
			cp.CreatedAt = existing.CreatedAt
		} else {
			cp.ID = uuid.NewString()
		}
		r.trades[key] = &cp
	}
	return nil
}

func (r *MemTradeRepo) GetClosedTradesByUserIDs(_ context.Context, userIDs []string) ([]*domain.TradeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = struct{}{}
	}
	var out []*domain.TradeRecord
	for _, t := range r.trades {
		if _, ok := wanted[t.UserID]; ok {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemTradeRepo) GetTradesByAccountID(_ context.Context, accountID string) ([]*domain.TradeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.TradeRecord
	for _, t := range r.trades {
		if t.AccountID == accountID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out, nil
}

func (r *MemTradeRepo) PurgeTradesByAccountID(_ context.Context, accountID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, t := range r.trades {
		if t.AccountID == accountID {
			delete(r.trades, k)
			n++
		}
	}
	return n, nil
}

func (r *MemTradeRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trades)
}

type MemPartnerRepo struct {
	mu       sync.Mutex
	partners map[string]*domain.Partner
}

func NewMemPartnerRepo(partners ...*domain.Partner) *MemPartnerRepo {
	r := &MemPartnerRepo{partners: make(map[string]*domain.Partner)}
	for _, p := range partners {
		r.partners[p.ID] = p
	}
	return r
}

func (r *MemPartnerRepo) GetPartnerByID(_ context.Context, partnerID string) (*domain.Partner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.partners[partnerID]
	if !ok {
		return nil, domain.ErrPartnerNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MemPartnerRepo) GetPartnerByUserID(_ context.Context, userID string) (*domain.Partner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.partners {
		if p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrPartnerNotFound
}

func (r *MemPartnerRepo) ListPartnersByStatus(_ context.Context, status domain.PartnerStatus) ([]*domain.Partner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Partner
	for _, p := range r.partners {
		if p.Status == status {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemPartnerRepo) UpdatePartnerStatus(_ context.Context, partnerID string, status domain.PartnerStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.partners[partnerID]
	if !ok {
		return domain.ErrPartnerNotFound
	}
	p.Status = status
	if status == domain.PartnerApproved && p.ApprovedAt == nil {
		now := time.Now().UTC()
		p.ApprovedAt = &now
	}
	return nil
}

func (r *MemPartnerRepo) SetReferralCode(_ context.Context, partnerID, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.partners[partnerID]
	if !ok {
		return domain.ErrPartnerNotFound
	}
	p.ReferralCode = code
	return nil
}

type MemAssignmentRepo struct {
	mu          sync.Mutex
	assignments map[string][]*domain.GroupAssignment
}

func NewMemAssignmentRepo() *MemAssignmentRepo {
	return &MemAssignmentRepo{assignments: make(map[string][]*domain.GroupAssignment)}
}

func (r *MemAssignmentRepo) GetAssignmentsByPartnerID(_ context.Context, partnerID string) ([]*domain.GroupAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.GroupAssignment(nil), r.assignments[partnerID]...), nil
}

func (r *MemAssignmentRepo) ReplaceAssignments(_ context.Context, partnerID string, assignments []*domain.GroupAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assignments[partnerID] = append([]*domain.GroupAssignment(nil), assignments...)
	return nil
}

type MemAccountRepo struct {
	Accounts []*domain.TradingAccount
}

func (r *MemAccountRepo) GetAccountsByUserIDs(_ context.Context, userIDs []string) ([]*domain.TradingAccount, error) {
	wanted := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = struct{}{}
	}
	var out []*domain.TradingAccount
	for _, a := range r.Accounts {
		if _, ok := wanted[a.UserID]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *MemAccountRepo) GetAccountByID(_ context.Context, accountID string) (*domain.TradingAccount, error) {
	for _, a := range r.Accounts {
		if a.ID == accountID {
			return a, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

type MemReferralRepo struct {
	mu      sync.Mutex
	Edges   []*domain.ReferralEdge
	History []*domain.ReferralHistory
}

// Link adds an active edge without touching existing ones.
func (r *MemReferralRepo) Link(userID, partnerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Edges = append(r.Edges, &domain.ReferralEdge{
		ID:        uuid.NewString(),
		UserID:    userID,
		PartnerID: partnerID,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	})
}

func (r *MemReferralRepo) GetActiveEdgesByPartnerIDs(_ context.Context, partnerIDs []string) ([]*domain.ReferralEdge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[string]struct{}, len(partnerIDs))
	for _, id := range partnerIDs {
		wanted[id] = struct{}{}
	}
	var out []*domain.ReferralEdge
	for _, e := range r.Edges {
		if _, ok := wanted[e.PartnerID]; ok && e.Active {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemReferralRepo) GetActiveEdgeByUserID(_ context.Context, userID string) (*domain.ReferralEdge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.Edges {
		if e.UserID == userID && e.Active {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemReferralRepo) Reassign(_ context.Context, edge *domain.ReferralEdge, history *domain.ReferralHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.Edges {
		if e.UserID == edge.UserID && e.Active {
			e.Active = false
			now := time.Now().UTC()
			e.DeactivatedAt = &now
		}
	}
	cp := *edge
	r.Edges = append(r.Edges, &cp)
	if history != nil {
		h := *history
		r.History = append(r.History, &h)
	}
	return nil
}

func (r *MemReferralRepo) GetHistoryByUserID(_ context.Context, userID string) ([]*domain.ReferralHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ReferralHistory
	for _, h := range r.History {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	return out, nil
}

type MemSnapshotRepo struct {
	mu      sync.Mutex
	totals  map[string]*domain.PartnerCommission
	perUser map[string][]*domain.CommissionSnapshot
	Saves   int
}

func NewMemSnapshotRepo() *MemSnapshotRepo {
	return &MemSnapshotRepo{
		totals:  make(map[string]*domain.PartnerCommission),
		perUser: make(map[string][]*domain.CommissionSnapshot),
	}
}

func (r *MemSnapshotRepo) SaveSnapshots(_ context.Context, total *domain.PartnerCommission, perUser []*domain.CommissionSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Saves++
	cp := *total
	r.totals[total.PartnerID] = &cp
	r.perUser[total.PartnerID] = append([]*domain.CommissionSnapshot(nil), perUser...)
	return nil
}

func (r *MemSnapshotRepo) GetPartnerCommission(_ context.Context, partnerID string) (*domain.PartnerCommission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.totals[partnerID]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MemSnapshotRepo) GetSnapshotsByPartnerID(_ context.Context, partnerID string) ([]*domain.CommissionSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.CommissionSnapshot(nil), r.perUser[partnerID]...), nil
}

func (r *MemSnapshotRepo) DeletePartnerCommission(_ context.Context, partnerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.totals, partnerID)
	return nil
}

type RecordingPublisher struct {
	mu          sync.Mutex
	Commissions []*domain.PartnerCommission
	Runs        []*domain.SyncRunSummary
}

func (p *RecordingPublisher) PublishCommission(c *domain.PartnerCommission) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Commissions = append(p.Commissions, c)
	return nil
}

func (p *RecordingPublisher) PublishSyncRun(run *domain.SyncRunSummary) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Runs = append(p.Runs, run)
	return nil
}

type MemSyncRunRepo struct {
	mu   sync.Mutex
	Runs []*domain.SyncRunSummary
}

func (r *MemSyncRunRepo) SaveSyncRun(_ context.Context, run *domain.SyncRunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *run
	r.Runs = append(r.Runs, &cp)
	return nil
}

func (r *MemSyncRunRepo) GetLatestSyncRuns(_ context.Context, limit int) ([]*domain.SyncRunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.SyncRunSummary, 0, limit)
	for i := len(r.Runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.Runs[i])
	}
	return out, nil
}
