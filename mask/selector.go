package mask

import (
	"fmt"
	"math/rand"
	"sort"
)

const (
	// selectionWindow is the width of the window a variant is drawn
	// from once its minor allele count has been chosen.
	selectionWindow = 20
	// maxRestarts is the number of times a combination is started over
	// after reaching a dead end.
	maxRestarts = 100
)

// Pool maps minor allele counts to the variants having them.
type Pool struct {
	// macs are the distinct counts in increasing order.
	macs      []int
	positions map[int][]int
}

// NewPool creates a pool of the given variants. Variants with zero
// minor allele count cannot contribute to a cMAC and are left out.
func NewPool(mac []int, variants []int) *Pool {
	p := &Pool{positions: make(map[int][]int)}
	for _, v := range variants {
		m := mac[v]
		if m <= 0 {
			continue
		}
		if _, ok := p.positions[m]; !ok {
			p.macs = append(p.macs, m)
		}
		p.positions[m] = append(p.positions[m], v)
	}
	sort.Ints(p.macs)
	return p
}

// Len returns the number of variants in the pool.
func (p *Pool) Len() (n int) {
	for _, pos := range p.positions {
		n += len(pos)
	}
	return
}

// MinMAC returns the smallest count in the pool, or 0 if it is empty.
func (p *Pool) MinMAC() int {
	if len(p.macs) == 0 {
		return 0
	}
	return p.macs[0]
}

// eligible returns counts not greater than limit.
func (p *Pool) eligible(limit int) []int {
	return p.macs[:sort.SearchInts(p.macs, limit+1)]
}

// Select draws a combination of variants from the pool whose minor
// allele counts sum exactly to target.
//
// Counts are drawn uniformly among the distinct values not exceeding
// the remaining target. For every drawn count a variant is picked from
// a window of at most selectionWindow variants starting at a uniformly
// random offset into the list of variants with this count. The same
// variant can be picked more than once.
func Select(rnd *rand.Rand, p *Pool, target int) ([]int, error) {
	if target < 1 {
		return nil, fmt.Errorf("cannot select variants for cMAC %d", target)
	}
	eligible := p.eligible(target)
	if len(eligible) == 0 {
		return nil, fmt.Errorf("%w (target %d, smallest %d)", ErrNoEligibleMAC, target, p.MinMAC())
	}

	combo := make([]int, 0, 8)
	for restart := 0; restart < maxRestarts; restart++ {
		combo = combo[:0]
		current := 0
		macs := eligible
		for current < target && len(macs) > 0 {
			m := macs[rnd.Intn(len(macs))]
			if current+m <= target {
				combo = append(combo, m)
				current += m
				macs = p.eligible(target - current)
			}
		}
		if current == target {
			return p.pick(rnd, combo), nil
		}
		log.Debugf("Dead end selecting cMAC %d (reached %d), restarting", target, current)
	}
	return nil, fmt.Errorf("%w: no combination for cMAC %d after %d restarts", ErrExhausted, target, maxRestarts)
}

// pick chooses one variant for every count of the combination.
func (p *Pool) pick(rnd *rand.Rand, combo []int) []int {
	selected := make([]int, len(combo))
	for k, m := range combo {
		pos := p.positions[m]
		n := len(pos)
		i := int(float64(n) * rnd.Float64())
		j := i + selectionWindow
		if j > n {
			j = n
		}
		selected[k] = pos[i+rnd.Intn(j-i)]
	}
	return selected
}
