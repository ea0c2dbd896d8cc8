package draw

import "strings"

// Tier is the rank label of one outcome code within a day.
type Tier string

// TopTier is the special prize, the prediction target.
const TopTier Tier = "DB"

// TierCount is the number of codes in a complete day.
const TierCount = 27

// TopWidth is the digit width of the top-tier code.
const TopWidth = 5

type tierGroup struct {
	prefix string
	count  int
	width  int
}

// prize groups in rank order
var tierGroups = []tierGroup{
	{"DB", 1, 5},
	{"G1", 1, 5},
	{"G2", 2, 5},
	{"G3", 6, 5},
	{"G4", 4, 4},
	{"G5", 6, 4},
	{"G6", 3, 3},
	{"G7", 4, 2},
}

var (
	tierOrder []Tier
	tierWidth = make(map[Tier]int, TierCount)
	tierIndex = make(map[Tier]int, TierCount)
)

func init() {
	for _, g := range tierGroups {
		for i := 1; i <= g.count; i++ {
			t := Tier(g.prefix)
			if g.count > 1 {
				t = Tier(g.prefix + "." + string(rune('0'+i)))
			}
			tierIndex[t] = len(tierOrder)
			tierOrder = append(tierOrder, t)
			tierWidth[t] = g.width
		}
	}
}

// Tiers returns all tiers in rank order.
func Tiers() []Tier {
	out := make([]Tier, len(tierOrder))
	copy(out, tierOrder)
	return out
}

// ParseTier normalizes a tier label, accepting "g3.2", "G3-2", "g3_2" and "DB".
func ParseTier(s string) (Tier, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", ".")
	s = strings.ReplaceAll(s, "_", ".")
	t := Tier(s)
	_, ok := tierWidth[t]
	return t, ok
}

// Width returns the digit width of the tier's code, 0 for unknown tiers.
func (t Tier) Width() int {
	return tierWidth[t]
}

// Index returns the rank position of the tier, -1 for unknown tiers.
func (t Tier) Index() int {
	if i, ok := tierIndex[t]; ok {
		return i
	}
	return -1
}

// ZeroCode is the placeholder code for a missing tier.
func (t Tier) ZeroCode() string {
	return strings.Repeat("0", t.Width())
}

// TotalDigits is the number of digits across one complete day.
func TotalDigits() int {
	n := 0
	for _, t := range tierOrder {
		n += tierWidth[t]
	}
	return n
}
