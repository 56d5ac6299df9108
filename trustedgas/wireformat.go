package trustedgas

import (
	"time"

	"github.com/atomiqlabs/swapengine/internal/wire"
	"github.com/atomiqlabs/swapengine/swaptypes"
)

// gasUpgradeSteps fills defaults for trusted-gas-specific keys absent
// from a record written under an older schema version. Currently empty:
// this kind's schema has not changed since CurrentVersion 1.
var gasUpgradeSteps = map[uint32]wire.UpgradeFunc{}

// Serialize produces the canonical persisted-record form of s: the
// shared envelope fields plus the gas-drop-specific quote and
// settlement state.
func (s *Swap) Serialize() wire.Record {
	rec := make(wire.Record, 16)
	s.SerializeBase(rec)

	rec.SetString("recipient", s.Recipient)
	rec.SetString("paymentRequest", s.PaymentRequest)
	rec.SetString("btcAddress", s.BtcAddress)
	rec.SetBigInt("amountSats", s.AmountSats)
	rec.SetBigInt("total", s.Total)
	rec.SetBigInt("swapFeeSats", s.SwapFeeSats)
	rec.SetString("outputTxId", s.OutputTxId)
	rec.SetInt("expiresAt", s.ExpiresAt.UnixMilli())

	return rec
}

// Deserialize reconstructs a Swap from a record Serialize produced
// (possibly under an older schema version, in which case it is first
// routed through wire.Upgrade, once, before the fields are re-read).
// Attach must still be called before any chain/LP-touching operation.
func Deserialize(rec wire.Record) (*Swap, error) {
	s, missing := decodeGas(rec)
	if missing {
		steps := mergeSteps(swaptypes.BaseUpgradeSteps, gasUpgradeSteps)
		upgraded := wire.Upgrade(rec, swaptypes.CurrentVersion, steps)
		s, _ = decodeGas(upgraded)
	}
	return s, nil
}

func decodeGas(rec wire.Record) (*Swap, bool) {
	s := &Swap{}
	r := wire.NewReader(rec)
	s.DeserializeBase(r)

	s.Recipient = r.String("recipient")
	s.PaymentRequest = r.String("paymentRequest")
	s.BtcAddress = r.String("btcAddress")
	s.AmountSats = r.BigInt("amountSats")
	s.Total = r.BigInt("total")
	s.SwapFeeSats = r.BigInt("swapFeeSats")
	s.OutputTxId = r.String("outputTxId")
	s.ExpiresAt = time.UnixMilli(r.Int("expiresAt"))

	return s, r.NeedsUpgrade()
}

func mergeSteps(sets ...map[uint32]wire.UpgradeFunc) map[uint32]wire.UpgradeFunc {
	out := make(map[uint32]wire.UpgradeFunc)
	for _, set := range sets {
		for k, v := range set {
			out[k] = v
		}
	}
	return out
}
