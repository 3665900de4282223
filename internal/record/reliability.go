package record

// unrankedRank places class 0 after every ranked class.
const unrankedRank = 10

// ReliabilityRank converts a reliability class into a sortable rank
// where lower is strictly better. Classes 1..9 keep their value; the
// unranked sentinel 0 maps to 10 so it sorts after everything ranked.
//
// This is the ONLY place the 0-sorts-last quirk is encoded. All
// comparisons go through this function, never through raw class values.
func ReliabilityRank(class int) int {
	if class == 0 {
		return unrankedRank
	}
	return class
}

// BetterReliability reports whether class a is strictly preferable to
// class b under the explicit total order.
func BetterReliability(a, b int) bool {
	return ReliabilityRank(a) < ReliabilityRank(b)
}

// ReliabilityScore maps a class onto the 0..3 scale used by the
// selector's optimization score: class 1 scores 3, class 2 scores 2,
// class 3 scores 1, class >= 4 and unranked score 0.
func ReliabilityScore(class int) float64 {
	s := 4 - ReliabilityRank(class)
	if s < 0 {
		return 0
	}
	if s > 3 {
		return 3
	}
	return float64(s)
}
