package severity

type Trend string

const (
	MoreSevere Trend = "moreSevere"
	LessSevere Trend = "lessSevere"
	NoChange   Trend = "noChange"
)

// Trend compares the rank of current against previous.
func (t *table) Trend(previous, current string) (Trend, error) {
	p, err := t.Rank(previous)
	if err != nil {
		return "", err
	}

	c, err := t.Rank(current)
	if err != nil {
		return "", err
	}

	switch {
	case c < p:
		return MoreSevere, nil
	case c > p:
		return LessSevere, nil
	default:
		return NoChange, nil
	}
}
