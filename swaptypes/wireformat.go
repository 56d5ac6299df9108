package swaptypes

import (
	"strconv"
	"time"

	"github.com/atomiqlabs/swapengine/internal/wire"
)

// CurrentVersion is the schema version this build writes. Bump it and
// add the matching step to BaseUpgradeSteps whenever a canonical key is
// added or changes meaning.
const CurrentVersion uint32 = 1

// SerializeBase writes every canonical key owned by the shared Swap
// envelope into rec: id, type, direction, state, url, chainIdentifier,
// version, initiated, exactIn,
// createdAt, randomNonce, expiry, swapFee, swapFeeBtc, and the
// pricingInfo fields (_isValid, _differencePPM, _satsBaseFee, _feePPM,
// _realPriceUSatPerToken, _realPriceUsdPerBitcoin,
// _swapPriceUSatPerToken). Kind-specific fields are each concrete swap's
// own responsibility.
func (s *Swap) SerializeBase(rec wire.Record) {
	rec.SetString("id", s.Id)
	rec.SetString("type", s.Kind.String())
	rec.SetString("direction", s.Direction.String())
	rec.SetString("state", s.State.String())
	rec.SetString("url", s.Url)
	rec.SetString("chainIdentifier", s.ChainIdentifier)
	rec.SetString("version", strconv.FormatUint(uint64(CurrentVersion), 10))
	rec.SetBool("initiated", s.Initiated)
	rec.SetBool("exactIn", s.ExactIn)
	rec.SetInt("createdAt", s.CreatedAt.UnixMilli())
	rec.SetBytes("randomNonce", s.RandomNonce[:])
	rec.SetInt("expiry", s.Expiry)
	rec.SetBigInt("swapFee", s.SwapFee)
	rec.SetBigInt("swapFeeBtc", s.SwapFeeBtc)

	rec.SetBool("_isValid", s.PricingInfo.IsValid)
	rec.SetSignedBigInt("_differencePPM", s.PricingInfo.DifferencePPM)
	rec.SetBigInt("_satsBaseFee", s.PricingInfo.SatsBaseFee)
	rec.SetSignedBigInt("_feePPM", s.PricingInfo.FeePPM)
	rec.SetBigInt("_realPriceUSatPerToken", s.PricingInfo.RealPriceUSatPerToken)
	rec.SetFloat("_realPriceUsdPerBitcoin", s.PricingInfo.RealPriceUsdPerBitcoin)
	rec.SetBigInt("_swapPriceUSatPerToken", s.PricingInfo.SwapPriceUSatPerToken)
}

// DeserializeBase reads every key SerializeBase writes back into s,
// mapping type, direction and state back from their String forms; a name
// that no Kind or State carries leaves that field at its zero value.
func (s *Swap) DeserializeBase(r *wire.Reader) {
	s.Id = r.String("id")
	kind := r.String("type")
	for k := KindFromBTC; k <= KindTrustedFromLN; k++ {
		if k.String() == kind {
			s.Kind = k
		}
	}
	if r.String("direction") == DirectionToBTC.String() {
		s.Direction = DirectionToBTC
	}
	state := r.String("state")
	for st := StatePRCreated; st <= StateParseFailed; st++ {
		if st.String() == state {
			s.State = st
		}
	}
	s.Url = r.String("url")
	s.ChainIdentifier = r.String("chainIdentifier")
	if v := r.String("version"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			s.Version = uint32(n)
		}
	}
	s.Initiated = r.Bool("initiated")
	s.ExactIn = r.Bool("exactIn")
	s.CreatedAt = time.UnixMilli(r.Int("createdAt"))
	copy(s.RandomNonce[:], r.Bytes("randomNonce"))
	s.Expiry = r.Int("expiry")
	s.SwapFee = r.BigInt("swapFee")
	s.SwapFeeBtc = r.BigInt("swapFeeBtc")

	s.PricingInfo.IsValid = r.Bool("_isValid")
	s.PricingInfo.DifferencePPM = r.SignedBigInt("_differencePPM")
	s.PricingInfo.SatsBaseFee = r.BigInt("_satsBaseFee")
	s.PricingInfo.FeePPM = r.SignedBigInt("_feePPM")
	s.PricingInfo.RealPriceUSatPerToken = r.BigInt("_realPriceUSatPerToken")
	s.PricingInfo.RealPriceUsdPerBitcoin = r.Float("_realPriceUsdPerBitcoin")
	s.PricingInfo.SwapPriceUSatPerToken = r.BigInt("_swapPriceUSatPerToken")
}

// BaseUpgradeSteps is the shared-envelope half of every kind's Upgrade
// step table: defaults for canonical base keys a record written before
// they existed would otherwise be missing. Concrete kinds merge this
// with their own kind-specific steps before calling wire.Upgrade.
var BaseUpgradeSteps = map[uint32]wire.UpgradeFunc{}
