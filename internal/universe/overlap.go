package universe

import (
	"sort"

	"github.com/quantfoundry/universe-data/internal/model"
)

// Overlap names two conflicting intervals for one symbol.
type Overlap struct {
	UniverseID string
	Symbol     string
	A, B       model.MembershipInterval
}

// FindOverlap scans intervals in any order and returns the first pair that
// overlap for the same (universe, symbol), or nil when the set is
// consistent. Half-open adjacency (one interval ending exactly where the
// next starts) is not an overlap.
func FindOverlap(intervals []model.MembershipInterval) *Overlap {
	groups := make(map[string][]model.MembershipInterval)
	for _, iv := range intervals {
		key := iv.UniverseID + "\x00" + iv.Symbol
		groups[key] = append(groups[key], iv)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].Start.Before(group[j].Start) })
		for i := 1; i < len(group); i++ {
			prev, cur := group[i-1], group[i]
			if prev.End == nil || cur.Start.Before(*prev.End) {
				return &Overlap{
					UniverseID: cur.UniverseID,
					Symbol:     cur.Symbol,
					A:          prev,
					B:          cur,
				}
			}
		}
	}
	return nil
}
