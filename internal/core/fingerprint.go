package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// DefaultBucketCents is the default amount-bucket width used when
// fingerprinting. One cent means amounts must match exactly after the
// half-up rounding ParseAmount already performs.
const DefaultBucketCents = 1

// Fingerprinter derives the dedup key for a transaction from its date,
// normalized description and bucketed amount.
//
// Widening BucketCents makes near-identical re-exports of the same
// transaction collide, but also merges genuinely distinct same-day,
// same-payee transactions whose amounts land in one bucket. That false
// dedup is an accepted risk of wide buckets and is not detected or
// resolved here.
type Fingerprinter struct {
	BucketCents int64
}

// Of computes the fingerprint for t. The description contributes in
// lowercased, whitespace-collapsed form so that cosmetic differences
// between exports ("COFFEE SHOP" vs "Coffee  Shop") still collide.
func (f Fingerprinter) Of(t Transaction) string {
	w := f.BucketCents
	if w <= 0 {
		w = DefaultBucketCents
	}
	h := sha256.New()
	h.Write([]byte(t.Date.ISO()))
	h.Write([]byte{0x1f})
	h.Write([]byte(strings.ToLower(NormalizeDescription(t.Description))))
	h.Write([]byte{0x1f})
	h.Write([]byte(strconv.FormatInt(bucket(t.Amount.Cents, w), 10)))
	return hex.EncodeToString(h.Sum(nil))
}

// bucket rounds cents to the nearest multiple of width, halves away
// from zero.
func bucket(cents, width int64) int64 {
	if width <= 1 {
		return cents
	}
	half := width / 2
	if cents >= 0 {
		return (cents + half) / width
	}
	return -((-cents + half) / width)
}

// NormalizeDescription collapses runs of whitespace to single spaces
// and trims the ends. Case is preserved; this is the form stored on the
// canonical transaction.
func NormalizeDescription(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// PayeeKey derives the payee grouping bucket for a description:
// lowercased, whitespace-collapsed, with trailing reference digits and
// "#1234"-style store numbers stripped, so "COFFEE SHOP #1041" and
// "Coffee Shop #2210" aggregate together.
func PayeeKey(description string) string {
	s := strings.ToLower(NormalizeDescription(description))
	fields := strings.Fields(s)
	for len(fields) > 0 && isReferenceToken(fields[len(fields)-1]) {
		fields = fields[:len(fields)-1]
	}
	if len(fields) == 0 {
		return s
	}
	return strings.Join(fields, " ")
}

func isReferenceToken(tok string) bool {
	tok = strings.TrimPrefix(tok, "#")
	if tok == "" {
		return true
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
