package usecase

import (
	"context"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/LavaJover/shvark-ib-service/internal/domain/domaintest"
)

func TestResolveScopeExpandsSubPartners(t *testing.T) {
	top := &domain.Partner{ID: "p-top", UserID: "u-top", Status: domain.PartnerApproved}
	sub := &domain.Partner{ID: "p-sub", UserID: "u-sub", Status: domain.PartnerApproved}
	partners := domaintest.NewMemPartnerRepo(top, sub)

	refs := &domaintest.MemReferralRepo{}
	refs.Link("u-1", "p-top")
	refs.Link("u-sub", "p-top")
	refs.Link("u-2", "p-sub")
	refs.Link("u-3", "p-sub")
	refs.Link("u-other", "p-elsewhere")

	uc := NewDefaultReferralUsecase(refs, partners, nil)
	scope, err := uc.ResolveScope(context.Background(), top)
	require.NoError(t, err)

	want := map[string]string{
		"u-1":   "p-top",
		"u-sub": "p-top",
		"u-2":   "p-sub",
		"u-3":   "p-sub",
	}
	if diff := cmp.Diff(want, scope.Owners); diff != "" {
		t.Fatalf("owners mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, "u-top", scope.ExcludedUserID)

	ids := scope.UserIDs()
	sort.Strings(ids)
	require.Equal(t, []string{"u-1", "u-2", "u-3", "u-sub"}, ids)
}

func TestResolveScopeExcludesPartnerAndSurvivesCycles(t *testing.T) {
	a := &domain.Partner{ID: "p-a", UserID: "u-a"}
	b := &domain.Partner{ID: "p-b", UserID: "u-b"}
	partners := domaintest.NewMemPartnerRepo(a, b)

	refs := &domaintest.MemReferralRepo{}
	refs.Link("u-a", "p-a")
	refs.Link("u-b", "p-a")
	refs.Link("u-x", "p-b")
	// b's referral tree points back at a.
	refs.Link("u-a", "p-b")

	uc := NewDefaultReferralUsecase(refs, partners, nil)
	scope, err := uc.ResolveScope(context.Background(), a)
	require.NoError(t, err)

	require.NotContains(t, scope.Owners, "u-a")
	require.Equal(t, "p-a", scope.Owners["u-b"])
	require.Equal(t, "p-b", scope.Owners["u-x"])
	require.Len(t, scope.Owners, 2)
}

func TestAssignRecordsHistory(t *testing.T) {
	partners := domaintest.NewMemPartnerRepo(
		&domain.Partner{ID: "p-1", UserID: "u-p1"},
		&domain.Partner{ID: "p-2", UserID: "u-p2"},
	)
	refs := &domaintest.MemReferralRepo{}
	uc := NewDefaultReferralUsecase(refs, partners, nil)
	ctx := context.Background()

	require.NoError(t, uc.Assign(ctx, "u-1", "p-1", "signup"))
	require.NoError(t, uc.Assign(ctx, "u-1", "p-2", "support ticket"))

	edge, err := refs.GetActiveEdgeByUserID(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, "p-2", edge.PartnerID)

	history, err := uc.History(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "", history[0].FromPartnerID)
	require.Equal(t, "p-1", history[1].FromPartnerID)
	require.Equal(t, "p-2", history[1].ToPartnerID)

	active := 0
	for _, e := range refs.Edges {
		if e.UserID == "u-1" && e.Active {
			active++
		}
	}
	require.Equal(t, 1, active)
}

func TestAssignSamePartnerIsNoop(t *testing.T) {
	partners := domaintest.NewMemPartnerRepo(&domain.Partner{ID: "p-1", UserID: "u-p1"})
	refs := &domaintest.MemReferralRepo{}
	uc := NewDefaultReferralUsecase(refs, partners, nil)
	ctx := context.Background()

	require.NoError(t, uc.Assign(ctx, "u-1", "p-1", "signup"))
	require.NoError(t, uc.Assign(ctx, "u-1", "p-1", "again"))

	history, err := uc.History(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Len(t, refs.Edges, 1)
}

func TestAssignRejectsSelfReferral(t *testing.T) {
	partners := domaintest.NewMemPartnerRepo(&domain.Partner{ID: "p-1", UserID: "u-p1"})
	uc := NewDefaultReferralUsecase(&domaintest.MemReferralRepo{}, partners, nil)

	err := uc.Assign(context.Background(), "u-p1", "p-1", "")
	require.ErrorIs(t, err, domain.ErrSelfReferral)
}
