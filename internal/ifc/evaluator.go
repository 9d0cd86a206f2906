package ifc

import (
	"context"
	"fmt"
	"sort"
)

// groupAccumulator folds SPT values per group id. Inside a group values are
// combined with the operator opposite to the one used across groups.
type groupAccumulator struct {
	cnf    bool
	values map[int32]bool
}

func newGroupAccumulator(cnf bool) *groupAccumulator {
	return &groupAccumulator{cnf: cnf, values: make(map[int32]bool)}
}

func (a *groupAccumulator) add(groups []int32, value bool) {
	for _, g := range groups {
		current, seen := a.values[g]
		switch {
		case !seen:
			a.values[g] = value
		case a.cnf:
			a.values[g] = current || value
		default:
			a.values[g] = current && value
		}
	}
}

func (a *groupAccumulator) verdict() bool {
	ids := make([]int32, 0, len(a.values))
	for id := range a.values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	result := a.cnf
	for _, id := range ids {
		if a.cnf {
			result = result && a.values[id]
		} else {
			result = result || a.values[id]
		}
	}
	return result
}

// EvaluateTrigger evaluates every SPT in document order and combines the
// groups. A trigger without SPTs yields true for CNF and false for DNF.
func EvaluateTrigger(ctx context.Context, tp *TriggerPoint, mc MatchContext) (bool, error) {
	acc := newGroupAccumulator(tp.CNF)

	for i, spt := range tp.SPTs {
		raw, err := spt.Predicate.Matches(ctx, mc)
		if err != nil {
			return false, fmt.Errorf("%w: spt %d: %v", ErrEvaluation, i, err)
		}
		acc.add(spt.Groups, raw != spt.Negated)
	}

	return acc.verdict(), nil
}

// FilterMatches applies the profile part indicator before the trigger. A
// criterion without a trigger always matches.
func FilterMatches(ctx context.Context, fc FilterCriterion, mc MatchContext) (bool, error) {
	if fc.ProfilePart != nil && !fc.ProfilePart.allows(mc.Registered) {
		return false, nil
	}
	if fc.Trigger == nil {
		return true, nil
	}
	return EvaluateTrigger(ctx, fc.Trigger, mc)
}

// SelectApplicationServers returns the servers of matching criteria ordered
// by ascending priority, document order within equal priorities. Criteria
// that fail to evaluate are skipped and reported in the returned faults.
func SelectApplicationServers(ctx context.Context, profile *ServiceProfile, mc MatchContext) ([]string, []CriterionFault) {
	type match struct {
		priority int32
		server   string
	}

	var (
		matches []match
		faults  []CriterionFault
	)

	for _, fc := range profile.Criteria {
		ok, err := FilterMatches(ctx, fc, mc)
		if err != nil {
			faults = append(faults, CriterionFault{Index: fc.Index, Err: err})
			continue
		}
		if ok && fc.ApplicationServer != "" {
			matches = append(matches, match{priority: fc.Priority, server: fc.ApplicationServer})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].priority < matches[j].priority
	})

	servers := make([]string, 0, len(matches))
	for _, m := range matches {
		servers = append(servers, m.server)
	}
	return servers, faults
}
