package matching

// AmbiguityPenalty scores how many unpaid invoices shared the transaction's
// amount (spec §4.D): a single candidate is unambiguous, two candidates
// draw a small penalty, three or more draw the maximum.
func AmbiguityPenalty(candidateCount int) int {
	switch {
	case candidateCount <= 1:
		return 0
	case candidateCount == 2:
		return 5
	default:
		return 10
	}
}
