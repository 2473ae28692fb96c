package matching

import (
	"time"

	"github.com/google/uuid"
)

// Candidate is an unpaid invoice already filtered by exact amount
// equality to the transaction (spec §4.F precondition).
type Candidate struct {
	ID            uuid.UUID
	InvoiceNumber string
	CustomerName  string
	DueDate       time.Time
}

// Transaction is the subset of a bank transaction the matcher needs.
type Transaction struct {
	Description     string
	TransactionDate time.Time
}

// Result is the outcome of matching one transaction against its
// candidate set (spec §4.F).
type Result struct {
	Status           Status
	MatchedInvoiceID *uuid.UUID
	InvoiceNumber    string
	Score            float64
	Breakdown        Breakdown
	Explanation      string
}

// Match runs the full pipeline (normalize -> similarity -> date proximity
// -> ambiguity -> confidence -> classify) for one transaction against its
// candidate set. Match is pure and deterministic: identical inputs always
// produce a byte-for-byte identical Result, and the order of candidates
// does not affect the outcome (ties broken by the smaller candidate ID).
func Match(tx Transaction, candidates []Candidate) Result {
	if len(candidates) == 0 {
		return Result{
			Status:      StatusUnmatched,
			Score:       0,
			Explanation: "No candidate invoices found with matching amount",
			Breakdown: Breakdown{
				Status:      StatusUnmatched,
				Explanation: "No candidate invoices found with matching amount",
			},
		}
	}

	normalizedDesc := Normalize(tx.Description)

	type ranked struct {
		candidate      Candidate
		nameSimilarity float64
		dateScore      int
		prelim         float64
	}

	ranks := make([]ranked, len(candidates))
	for i, c := range candidates {
		nameSim := Similarity(normalizedDesc, Normalize(c.CustomerName))
		dateScore := DateProximity(tx.TransactionDate, c.DueDate)
		prelim := nameSim*rankingNameWeight + float64(dateScore)
		ranks[i] = ranked{candidate: c, nameSimilarity: nameSim, dateScore: dateScore, prelim: prelim}
	}

	best := ranks[0]
	for _, r := range ranks[1:] {
		if r.prelim > best.prelim || (r.prelim == best.prelim && less(r.candidate.ID, best.candidate.ID)) {
			best = r
		}
	}

	breakdown := Combine(best.nameSimilarity, best.dateScore, len(candidates))

	result := Result{
		Status:      breakdown.Status,
		Score:       breakdown.Score,
		Breakdown:   breakdown,
		Explanation: breakdown.Explanation,
	}

	if breakdown.Status != StatusUnmatched {
		id := best.candidate.ID
		result.MatchedInvoiceID = &id
		result.InvoiceNumber = best.candidate.InvoiceNumber
	}

	return result
}

// less gives a total, deterministic ordering over UUIDs for tie-breaking
// (spec §4.F step 4: "ties broken by the smaller candidate id").
func less(a, b uuid.UUID) bool {
	return a.String() < b.String()
}
