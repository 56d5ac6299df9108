// Package lninvoice encodes and decodes the handful of fields the swap
// engine actually needs off a Lightning payment request: the payment
// hash (used as the HTLC claim hash and, for gas-drop swaps, the swap id
// itself), the requested amount, and the expiry.
//
// It reuses the real bech32 framing (human-readable part + checksum) the
// way zpay32 does, but — deliberately, since full BOLT-11 parsing
// (signature recovery, routing-hint graphs, every tagged field) is the
// wallet adapter's job, not this engine's — the tagged-field body uses a
// simplified byte-aligned TLV rather than BOLT-11's 5-bit-packed field
// layout. This engine only round-trips invoices it or a paired adapter
// produced; it never needs to parse an arbitrary third-party BOLT-11
// string bit-for-bit.
package lninvoice

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/decred/dcrd/bech32"
)

// defaultExpiry is used when an invoice carries no explicit expiry tag,
// matching BOLT-11's documented default.
const defaultExpiry = 3600 * time.Second

// Invoice is the decoded subset of a Lightning payment request this
// engine consumes.
type Invoice struct {
	// PaymentHash is the 32-byte payment hash.
	PaymentHash [32]byte

	// MilliSat is the requested amount in milli-satoshis, or nil if the
	// invoice did not specify one (amountless invoice).
	MilliSat *uint64

	// Timestamp is the invoice creation time.
	Timestamp time.Time

	// Expiry is how long after Timestamp the invoice is valid for.
	Expiry time.Duration

	// Net is the network prefix found after "ln" (e.g. "bc", "tb"),
	// letting a caller reject payment requests for the wrong chain
	// before ever reaching an LP.
	Net string
}

var amountMultiplier = map[byte]float64{
	'm': 1e-3,
	'u': 1e-6,
	'n': 1e-9,
	'p': 1e-12,
}

const (
	fieldPaymentHash byte = 1
	fieldTimestamp   byte = 2
	fieldExpiry      byte = 6
)

// Encode builds a bech32 payment request for net (e.g. "bc") carrying
// paymentHash, an optional milliSat amount, and expiry.
func Encode(net string, paymentHash [32]byte, milliSat *uint64, ts time.Time, expiry time.Duration) (string, error) {
	hrp := "ln" + net
	if milliSat != nil {
		hrp += formatAmount(*milliSat)
	}

	body := encodeTLV(fieldPaymentHash, paymentHash[:])
	body = append(body, encodeTLV(fieldTimestamp, encodeUint(uint64(ts.Unix())))...)
	body = append(body, encodeTLV(fieldExpiry, encodeUint(uint64(expiry/time.Second)))...)

	data, err := bech32.ConvertBits(body, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert bits: %w", err)
	}

	return bech32.Encode(hrp, data)
}

// Decode parses a payment request produced by Encode (or a compatible
// adapter) and extracts the payment hash, amount, timestamp and expiry.
func Decode(payReq string) (*Invoice, error) {
	if !strings.HasPrefix(strings.ToLower(payReq), "ln") {
		return nil, fmt.Errorf("not a lightning payment request: missing ln prefix")
	}

	hrp, data, err := bech32.DecodeNoLimit(payReq)
	if err != nil {
		return nil, fmt.Errorf("bech32 decode: %w", err)
	}
	if len(hrp) < 3 {
		return nil, fmt.Errorf("hrp too short: %q", hrp)
	}

	net, amtStr := splitNetAndAmount(hrp[2:])

	inv := &Invoice{
		Net:       net,
		Timestamp: time.Now(),
		Expiry:    defaultExpiry,
	}

	if amtStr != "" {
		milliSat, err := parseAmount(amtStr)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", amtStr, err)
		}
		inv.MilliSat = &milliSat
	}

	body, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("convert bits: %w", err)
	}

	if err := decodeTaggedFields(body, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

func splitNetAndAmount(rest string) (net string, amount string) {
	i := 0
	for i < len(rest) && (rest[i] < '0' || rest[i] > '9') {
		i++
	}
	return rest[:i], rest[i:]
}

func formatAmount(milliSat uint64) string {
	// Prefer 'u' (micro-BTC, 100 satoshi) granularity when it divides
	// evenly; otherwise fall back to milli-satoshi-precise 'p' units.
	if milliSat%100_000 == 0 {
		return strconv.FormatUint(milliSat/100_000, 10) + "u"
	}
	return strconv.FormatUint(milliSat*10, 10) + "p"
}

func parseAmount(amtStr string) (uint64, error) {
	mult := 1.0
	digits := amtStr
	if n := len(amtStr); n > 0 {
		if m, ok := amountMultiplier[amtStr[n-1]]; ok {
			mult = m
			digits = amtStr[:n-1]
		}
	}

	val, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, err
	}

	// Amounts are denominated in BTC at the hrp level; convert to
	// milli-satoshis (1 BTC = 1e11 msat).
	return uint64(float64(val) * mult * 1e11), nil
}

func encodeUint(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

func encodeTLV(tag byte, value []byte) []byte {
	out := make([]byte, 0, len(value)+3)
	out = append(out, tag, byte(len(value)>>8), byte(len(value)))
	return append(out, value...)
}

func decodeTaggedFields(data []byte, inv *Invoice) error {
	i := 0
	found := false
	for i+3 <= len(data) {
		tag := data[i]
		length := (int(data[i+1]) << 8) | int(data[i+2])
		start := i + 3
		if start+length > len(data) {
			break
		}
		value := data[start : start+length]

		switch tag {
		case fieldPaymentHash:
			if length == 32 {
				copy(inv.PaymentHash[:], value)
				found = true
			}
		case fieldTimestamp:
			inv.Timestamp = time.Unix(int64(decodeUint(value)), 0)
		case fieldExpiry:
			inv.Expiry = time.Duration(decodeUint(value)) * time.Second
		}

		i = start + length
	}

	if !found {
		return fmt.Errorf("payment request missing payment hash field")
	}
	return nil
}

func decodeUint(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
