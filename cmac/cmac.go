// Package cmac defines cumulative minor allele count (cMAC) bins and
// the number of variant sets each chromosome contributes to a bin.
package cmac

import (
	"fmt"
	"strconv"
	"strings"
)

// Bin is a closed interval [Lo, Hi] of cumulative minor allele counts.
type Bin struct {
	Lo int
	Hi int
}

// DefaultBins is the ordered, non-overlapping set of bins results are
// reported for.
var DefaultBins = []Bin{
	{2, 2}, {3, 3}, {4, 4}, {5, 5}, {6, 7}, {8, 9},
	{10, 11}, {12, 14}, {15, 20}, {21, 30}, {31, 60},
	{61, 100}, {101, 500}, {501, 1000},
}

// Contains returns true if cmac lies inside the bin.
func (b Bin) Contains(cmac int) bool {
	return b.Lo <= cmac && cmac <= b.Hi
}

// Mid returns the integer midpoint of the bin.
func (b Bin) Mid() int {
	return (b.Lo + b.Hi) / 2
}

// Label returns the column label of the bin, e.g. "6_7".
func (b Bin) Label() string {
	return strconv.Itoa(b.Lo) + "_" + strconv.Itoa(b.Hi)
}

func (b Bin) String() string {
	return fmt.Sprintf("(%d,%d)", b.Lo, b.Hi)
}

// ParseLabel parses a label created by Label.
func ParseLabel(s string) (b Bin, err error) {
	parts := strings.Split(s, "_")
	if len(parts) != 2 {
		return b, fmt.Errorf("invalid cMAC bin label %q", s)
	}
	if b.Lo, err = strconv.Atoi(parts[0]); err != nil {
		return b, fmt.Errorf("invalid cMAC bin label %q: %w", s, err)
	}
	if b.Hi, err = strconv.Atoi(parts[1]); err != nil {
		return b, fmt.Errorf("invalid cMAC bin label %q: %w", s, err)
	}
	return b, b.Validate()
}

// Validate checks that the bin is a proper interval of positive counts.
func (b Bin) Validate() error {
	if b.Lo < 1 || b.Hi < b.Lo {
		return fmt.Errorf("invalid cMAC bin %v", b)
	}
	return nil
}

// ValidateBins checks every bin and that the bins are ordered and do
// not overlap.
func ValidateBins(bins []Bin) error {
	if len(bins) == 0 {
		return fmt.Errorf("no cMAC bins")
	}
	for i, b := range bins {
		if err := b.Validate(); err != nil {
			return err
		}
		if i > 0 && b.Lo <= bins[i-1].Hi {
			return fmt.Errorf("cMAC bins %v and %v overlap or are out of order", bins[i-1], b)
		}
	}
	return nil
}

// Labels returns labels of all the bins in order.
func Labels(bins []Bin) []string {
	labels := make([]string, len(bins))
	for i, b := range bins {
		labels[i] = b.Label()
	}
	return labels
}

// Quotas splits count genes per bin between chromosomes proportionally
// to their number of variants. Shares are floor-rounded, so the total
// can be lower than count.
func Quotas(nVariants []int, count int) []int {
	total := 0
	for _, n := range nVariants {
		total += n
	}
	quotas := make([]int, len(nVariants))
	if total == 0 {
		return quotas
	}
	for i, n := range nVariants {
		quotas[i] = int(float64(n) / float64(total) * float64(count))
	}
	return quotas
}
