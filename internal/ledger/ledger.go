// Package ledger encodes and decodes the payment ledger an order carries in
// its PaymentMethod field. The whole ledger is one display string: entries
// look like "Pix (R$ 150,00)" and are joined with " + ". That string is the
// persisted record of individual payments; the order's DownPayment cache must
// always be re-derived from it with Decode, never carried arithmetically.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Separator joins ledger entries in the serialized string.
const Separator = " + "

// ErrIndexOutOfBounds is returned by RemoveEntry for an invalid entry index.
var ErrIndexOutOfBounds = errors.New("ledger: entry index out of bounds")

// Entry is one decoded payment.
type Entry struct {
	Method string
	Amount float64
}

// amountPattern matches a Brazilian-formatted amount inside an entry:
// optional period thousands separators, comma decimal separator.
var amountPattern = regexp.MustCompile(`(\d{1,3}(?:\.\d{3})+|\d+)(?:,(\d{1,2}))?`)

// FormatAmount renders an amount as "R$ 1.234,56" (two decimals, comma
// decimal separator, period thousands separators).
func FormatAmount(amount float64) string {
	cents := int64(math.Round(amount * 100))
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := cents / 100
	frac := cents % 100
	digits := strconv.FormatInt(whole, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	return fmt.Sprintf("R$ %s%s,%02d", sign, b.String(), frac)
}

// Encode renders a single payment as a ledger entry.
func Encode(method string, amount float64) string {
	return fmt.Sprintf("%s (%s)", method, FormatAmount(amount))
}

// Append adds a payment to an existing ledger string. Callers must recompute
// the cached total by decoding the result; incremental addition drifts.
func Append(ledgerStr, method string, amount float64) string {
	entry := Encode(method, amount)
	if ledgerStr == "" {
		return entry
	}
	return ledgerStr + Separator + entry
}

// Segments splits a ledger string into its raw entry strings. An empty
// ledger has no segments.
func Segments(ledgerStr string) []string {
	if ledgerStr == "" {
		return nil
	}
	return strings.Split(ledgerStr, Separator)
}

// Decode recovers the per-entry payments and their sum from a ledger string.
// A segment whose amount cannot be parsed contributes zero but is kept in the
// entry list with its raw text as method; the unparsed count lets callers
// surface a warning instead of silently dropping data.
func Decode(ledgerStr string) (entries []Entry, total float64, unparsed int) {
	for _, seg := range Segments(ledgerStr) {
		amount, ok := parseSegment(seg)
		if !ok {
			unparsed++
			entries = append(entries, Entry{Method: strings.TrimSpace(seg)})
			continue
		}
		method := seg
		if i := strings.LastIndex(seg, "("); i >= 0 {
			method = seg[:i]
		}
		entries = append(entries, Entry{Method: strings.TrimSpace(method), Amount: amount})
		total += amount
	}
	return entries, total, unparsed
}

// Total is Decode reduced to the sum and the unparsed count.
func Total(ledgerStr string) (float64, int) {
	_, total, unparsed := Decode(ledgerStr)
	return total, unparsed
}

// RemoveEntry drops the segment at index and rejoins the rest. The caller
// must recompute the cached total from the returned string.
func RemoveEntry(ledgerStr string, index int) (string, error) {
	segs := Segments(ledgerStr)
	if index < 0 || index >= len(segs) {
		return ledgerStr, ErrIndexOutOfBounds
	}
	segs = append(segs[:index], segs[index+1:]...)
	return strings.Join(segs, Separator), nil
}

// parseSegment extracts the parenthesized amount of one entry.
func parseSegment(seg string) (float64, bool) {
	open := strings.LastIndex(seg, "(")
	closing := strings.LastIndex(seg, ")")
	if open < 0 || closing < open {
		return 0, false
	}
	m := amountPattern.FindStringSubmatch(seg[open+1 : closing])
	if m == nil {
		return 0, false
	}
	whole := strings.ReplaceAll(m[1], ".", "")
	frac := m[2]
	if frac == "" {
		frac = "0"
	}
	amount, err := strconv.ParseFloat(whole+"."+frac, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}
