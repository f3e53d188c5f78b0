package groupkey

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
)

func rule(key string, perLot, spread int64) domain.CommissionRule {
	return domain.CommissionRule{
		GroupKey:           key,
		USDPerLot:          decimal.NewFromInt(perLot),
		SpreadSharePercent: decimal.NewFromInt(spread),
	}
}

func TestResolveExactBeatsFuzzy(t *testing.T) {
	rules := domain.RuleMap{
		"standard":     rule("standard", 5, 10),
		"standard-pro": rule("standard-pro", 7, 0),
		"stand":        rule("stand", 1, 0),
	}

	// Repeat to shake out any dependence on map iteration order.
	for i := 0; i < 50; i++ {
		got, kind, ok := Resolve([]string{"real/standard", "standard"}, rules)
		require.True(t, ok)
		require.Equal(t, domain.MatchExact, kind)
		require.Equal(t, "standard", got.GroupKey)
	}
}

func TestResolveCandidateOrderWins(t *testing.T) {
	rules := domain.RuleMap{
		"gold": rule("gold", 3, 0),
		"vip":  rule("vip", 9, 0),
	}

	got, kind, ok := Resolve([]string{"vip", "gold"}, rules)
	require.True(t, ok)
	require.Equal(t, domain.MatchExact, kind)
	require.Equal(t, "vip", got.GroupKey)
}

func TestResolveFuzzy(t *testing.T) {
	rules := domain.RuleMap{
		"ecn":      rule("ecn", 2, 0),
		"standard": rule("standard", 5, 10),
	}

	got, kind, ok := ResolveGroup(`real\Standard-Plus\x`, rules)
	require.True(t, ok)
	require.Equal(t, domain.MatchFuzzy, kind)
	require.Equal(t, "standard", got.GroupKey)

	// key contains candidate
	got, kind, ok = Resolve([]string{"ec"}, rules)
	require.True(t, ok)
	require.Equal(t, domain.MatchFuzzy, kind)
	require.Equal(t, "ecn", got.GroupKey)
}

func TestResolveFuzzyIsDeterministic(t *testing.T) {
	rules := domain.RuleMap{
		"pro-b": rule("pro-b", 2, 0),
		"pro-a": rule("pro-a", 1, 0),
		"pro-c": rule("pro-c", 3, 0),
	}
	for i := 0; i < 50; i++ {
		got, kind, ok := Resolve([]string{"pro"}, rules)
		require.True(t, ok)
		require.Equal(t, domain.MatchFuzzy, kind)
		require.Equal(t, "pro-a", got.GroupKey)
	}
}

func TestResolveSingleRuleFallback(t *testing.T) {
	rules := domain.RuleMap{"standard": rule("standard", 5, 10)}

	got, kind, ok := ResolveGroup("demo/zzz-unrelated", rules)
	require.True(t, ok)
	require.Equal(t, domain.MatchSingle, kind)
	require.Equal(t, "standard", got.GroupKey)

	got, kind, ok = ResolveGroup("", rules)
	require.True(t, ok)
	require.Equal(t, domain.MatchSingle, kind)
	require.Equal(t, "standard", got.GroupKey)
}

func TestResolveUnattributed(t *testing.T) {
	rules := domain.RuleMap{
		"gold": rule("gold", 3, 0),
		"vip":  rule("vip", 9, 0),
	}
	_, kind, ok := ResolveGroup("demo/zzz", rules)
	require.False(t, ok)
	require.Equal(t, domain.MatchNone, kind)

	_, kind, ok = ResolveGroup("gold", nil)
	require.False(t, ok)
	require.Equal(t, domain.MatchNone, kind)
}

func TestResolveBackslashPathUsesLastSegment(t *testing.T) {
	rules := domain.RuleMap{"standard": rule("standard", 5, 10)}

	got, _, ok := ResolveGroup(`real\Bbook\Standard\dynamic-2000x-20Pips`, rules)
	require.True(t, ok)
	require.True(t, got.USDPerLot.Equal(decimal.NewFromInt(5)))
}

func TestBuildRuleMap(t *testing.T) {
	partner := &domain.Partner{
		ID:                        "p1",
		DefaultUSDPerLot:          decimal.NewFromInt(4),
		DefaultSpreadSharePercent: decimal.NewFromInt(20),
	}

	t.Run("assignments keyed by normalized group id", func(t *testing.T) {
		rules := BuildRuleMap(partner, []*domain.GroupAssignment{
			{GroupID: " Standard ", USDPerLot: decimal.NewFromInt(5)},
			{GroupName: "VIP", USDPerLot: decimal.NewFromInt(8)},
			{GroupID: "STANDARD", USDPerLot: decimal.NewFromInt(99)},
			{},
		})
		require.Len(t, rules, 2)
		require.True(t, rules["standard"].USDPerLot.Equal(decimal.NewFromInt(5)))
		require.True(t, rules["vip"].USDPerLot.Equal(decimal.NewFromInt(8)))
	})

	t.Run("no assignments gives wildcard", func(t *testing.T) {
		rules := BuildRuleMap(partner, nil)
		require.Len(t, rules, 1)
		wc := rules[domain.WildcardGroupKey]
		require.True(t, wc.USDPerLot.Equal(decimal.NewFromInt(4)))
		require.True(t, wc.SpreadSharePercent.Equal(decimal.NewFromInt(20)))

		got, kind, ok := ResolveGroup(`real\anything`, rules)
		require.True(t, ok)
		require.Equal(t, domain.MatchSingle, kind)
		require.Equal(t, domain.WildcardGroupKey, got.GroupKey)
	})
}
