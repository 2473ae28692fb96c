package matching

import "strings"

// noiseWords is the closed, case-insensitive (post-uppercase) set of
// banking boilerplate tokens stripped during normalization (spec §4.A).
var noiseWords = map[string]struct{}{
	"PAYMENT": {}, "DEPOSIT": {}, "TRANSFER": {}, "WITHDRAWAL": {}, "CREDIT": {},
	"DEBIT": {}, "CHK": {}, "CHECK": {}, "CHEQUE": {}, "ACH": {}, "WIRE": {},
	"EFT": {}, "ONLINE": {}, "ELECTRONIC": {}, "EBANK": {}, "INTERNET": {},
	"MOBILE": {}, "PMT": {}, "DEP": {}, "TRF": {}, "TXN": {}, "REF": {},
	"POS": {}, "FROM": {}, "TO": {}, "FOR": {}, "THE": {}, "AND": {},
	"PENDING": {}, "CLEARED": {}, "POSTED": {}, "MEMO": {},
}

// Normalize canonicalizes free-form text into an uppercase, noise-free,
// single-space-joined token stream (spec §4.A). Empty or otherwise
// degenerate input yields the empty string. Idempotent by construction:
// a second pass sees only already-uppercase alphanumerics and spaces, so
// every step is a no-op on its own output.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	upper := strings.ToUpper(s)

	var b strings.Builder
	b.Grow(len(upper))
	for _, r := range upper {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	kept := fields[:0]
	for _, tok := range fields {
		if _, isNoise := noiseWords[tok]; isNoise {
			continue
		}
		kept = append(kept, tok)
	}

	return strings.Join(kept, " ")
}
