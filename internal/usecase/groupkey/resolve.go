package groupkey

import (
	"sort"
	"strings"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
)

// Resolve picks the rule for a trade's candidate keys:
// exact match, then substring match, then the partner's only rule.
// ok is false when the trade stays unattributed.
func Resolve(candidates []string, rules domain.RuleMap) (domain.CommissionRule, domain.MatchKind, bool) {
	if len(rules) == 0 {
		return domain.CommissionRule{}, domain.MatchNone, false
	}

	for _, c := range candidates {
		if rule, ok := rules[c]; ok {
			return rule, domain.MatchExact, true
		}
	}

	// Map iteration order is random; fuzzy matching walks sorted keys so the
	// same trade always lands on the same rule.
	keys := sortedKeys(rules)
	for _, c := range candidates {
		if c == "" {
			continue
		}
		for _, k := range keys {
			if k == "" || k == domain.WildcardGroupKey {
				continue
			}
			if strings.Contains(k, c) || strings.Contains(c, k) {
				return rules[k], domain.MatchFuzzy, true
			}
		}
	}

	if len(rules) == 1 {
		return rules[keys[0]], domain.MatchSingle, true
	}

	return domain.CommissionRule{}, domain.MatchNone, false
}

// ResolveGroup is Normalize followed by Resolve.
func ResolveGroup(rawGroup string, rules domain.RuleMap) (domain.CommissionRule, domain.MatchKind, bool) {
	return Resolve(Normalize(rawGroup), rules)
}

// BuildRuleMap keys a partner's assignments by AssignmentKey. A partner
// without assignments gets a single wildcard rule from its defaults.
func BuildRuleMap(partner *domain.Partner, assignments []*domain.GroupAssignment) domain.RuleMap {
	rules := make(domain.RuleMap, len(assignments))
	for _, a := range assignments {
		key := AssignmentKey(a.GroupID, a.GroupName)
		if key == "" {
			continue
		}
		if _, dup := rules[key]; dup {
			continue
		}
		rules[key] = domain.CommissionRule{
			GroupKey:           key,
			USDPerLot:          a.USDPerLot,
			SpreadSharePercent: a.SpreadSharePercent,
		}
	}
	if len(rules) == 0 && partner != nil {
		rules[domain.WildcardGroupKey] = domain.CommissionRule{
			GroupKey:           domain.WildcardGroupKey,
			USDPerLot:          partner.DefaultUSDPerLot,
			SpreadSharePercent: partner.DefaultSpreadSharePercent,
		}
	}
	return rules
}

func sortedKeys(rules domain.RuleMap) []string {
	keys := make([]string, 0, len(rules))
	for k := range rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
