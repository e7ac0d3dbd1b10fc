package shared

// IsBetter reports whether a beats b: higher difficulty wins,
// equal difficulty is won by the lower nonce.
func IsBetter(a, b Solution) bool {
	if a.Difficulty != b.Difficulty {
		return a.Difficulty > b.Difficulty
	}
	return a.Nonce < b.Nonce
}

// Merge picks the best of the given worker results, skipping nils.
// It returns nil only if every result is nil.
func Merge(results []*Solution) *Solution {
	var best *Solution
	for _, r := range results {
		if r == nil {
			continue
		}
		if best == nil || IsBetter(*r, *best) {
			best = r
		}
	}
	return best
}
