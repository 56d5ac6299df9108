package swaptypes

import "time"

// PriceInfo is the validated pricing snapshot attached to every quoted
// swap pricingInfo field.
type PriceInfo struct {
	IsValid bool

	// SwapPriceUSatPerToken is the quoted price, micro-sats per token base
	// unit.
	SwapPriceUSatPerToken uint64

	// RealPriceUSatPerToken is the oracle's current reference price at
	// quote-verification time, same units.
	RealPriceUSatPerToken uint64

	// RealPriceUsdPerBitcoin is the oracle's USD/BTC reference used to
	// derive RealPriceUSatPerToken when a swap also reports a USD value.
	RealPriceUsdPerBitcoin float64

	// DifferencePPM is the signed deviation of the quoted price from the
	// real price, in parts-per-million.
	DifferencePPM int64

	// SatsBaseFee and FeePPM are the LP's advertised fee schedule
	// components used to reconstruct swapFee from pricingInfo.
	SatsBaseFee uint64
	FeePPM      int64
}

// Swap is the shared envelope every concrete swap kind embeds. Concrete
// kinds (escrowswap.Swap, spvvault.Swap, trustedgas.Swap) compose this
// struct and add kind-specific fields, rather than inheriting from one
// monolithic base type.
type Swap struct {
	// Id is stable across restarts. For HTLC kinds id = claimHash ||
	// randomNonce; for UTXO-vault id = quoteId || randomNonce; for
	// Lightning gas swaps id = paymentHash.
	Id string

	Kind      Kind
	Direction Direction
	State     State

	// ChainIdentifier is an opaque identifier of the smart chain this
	// swap trades against (e.g. a chain id or network name), resolved by
	// the ChainInterfaceCapability in use.
	ChainIdentifier string

	CreatedAt time.Time

	// Expiry is the quote expiry, UNIX milliseconds.
	Expiry int64

	// Initiated is whether the user has performed a binding action yet.
	// A swap is only persisted once this is true.
	Initiated bool

	// Version is the schema version this record was serialized under.
	Version uint32

	PricingInfo PriceInfo

	// SwapFee and SwapFeeBtc are two representations (destination-token
	// and BTC) of the intermediary's swap fee.
	SwapFee    uint64
	SwapFeeBtc uint64

	// ExactIn records whether the quote was pinned on the input side.
	ExactIn bool

	// RandomNonce disambiguates identifiers when the same commitment is
	// quoted from multiple LPs.
	RandomNonce [16]byte

	// Url is the LP endpoint base this swap was quoted from.
	Url string
}

// IsTerminal reports whether the swap has reached an absorbing state.
func (s *Swap) IsTerminal() bool {
	return IsTerminal(s.State)
}

// IsQuoteExpired reports whether Expiry (UNIX ms) has passed relative to
// now.
func (s *Swap) IsQuoteExpired(now time.Time) bool {
	return s.Expiry < now.UnixMilli()
}
