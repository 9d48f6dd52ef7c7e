package check

// Band is the color band of a visibility rate
type Band string

const (
	BandGreen  Band = "green"
	BandYellow Band = "yellow"
	BandRed    Band = "red"
)

// BandFor returns green for >= 70, yellow for >= 40 and red below
func BandFor(rate int) Band {
	switch {
	case rate >= 70:
		return BandGreen
	case rate >= 40:
		return BandYellow
	default:
		return BandRed
	}
}
