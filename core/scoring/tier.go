package scoring

// Tier is an achievement badge derived from the total score. It is display only.
type Tier int

const (
	TierNone Tier = iota
	TierMerit
	TierExcellent
	TierOutstanding
)

var tierLabels = map[Tier]string{
	TierNone:        "",
	TierMerit:       "High Performance",
	TierExcellent:   "Excellent Performance!",
	TierOutstanding: "Outstanding Achievement!",
}

func (t Tier) Label() string { return tierLabels[t] }

func (t Tier) String() string {
	switch t {
	case TierMerit:
		return "merit"
	case TierExcellent:
		return "excellent"
	case TierOutstanding:
		return "outstanding"
	}
	return "none"
}

func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Tiers holds the exclusive lower bounds of each tier.
type Tiers struct {
	Merit       int
	Excellent   int
	Outstanding int
}

var DefaultTiers = Tiers{Merit: 300, Excellent: 320, Outstanding: 340}

// Classify returns the highest tier whose bound `total` exceeds.
func (ts Tiers) Classify(total int) Tier {
	switch {
	case total > ts.Outstanding:
		return TierOutstanding
	case total > ts.Excellent:
		return TierExcellent
	case total > ts.Merit:
		return TierMerit
	}
	return TierNone
}
