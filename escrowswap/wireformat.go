package escrowswap

import (
	"time"

	"github.com/atomiqlabs/swapengine/internal/wire"
	"github.com/atomiqlabs/swapengine/swaptypes"
)

// escrowUpgradeSteps fills defaults for escrow-specific keys absent from
// a record written under an older schema version. Currently empty: this
// kind's schema has not changed since CurrentVersion 1.
var escrowUpgradeSteps = map[uint32]wire.UpgradeFunc{}

// Serialize produces the canonical persisted-record form of s: the
// shared envelope fields plus escrowHash, initiator, and the rest of the
// HTLC-specific state. Data (the opaque, chain-specific SwapData
// capability) is a runtime capability Attach re-supplies, not state to
// persist.
func (s *Swap) Serialize() wire.Record {
	rec := make(wire.Record, 24)
	s.SerializeBase(rec)

	rec.SetBytes("escrowHash", s.EscrowHash[:])
	rec.SetString("initiator", s.Initiator)
	rec.SetString("btcAddress", s.BtcAddress)
	rec.SetInt("requiredConfirmations", int64(s.RequiredConfirmations))
	rec.SetInt("voutHint", int64(s.VoutHint))
	rec.SetString("commitTxId", s.CommitTxId)
	rec.SetString("claimTxId", s.ClaimTxId)
	rec.SetString("refundTxId", s.RefundTxId)
	rec.SetBytes("secret", s.Secret[:])
	rec.SetBool("hasSecret", s.HasSecret)
	rec.SetInt("broadcastTick", int64(s.BroadcastTick))
	rec.SetInt("expiresAt", s.ExpiresAt.UnixMilli())

	return rec
}

// Deserialize reconstructs a Swap from a record Serialize produced
// (possibly under an older schema version, in which case it is first
// routed through wire.Upgrade, once, before the fields are re-read).
// Attach must still be called before any chain-touching operation.
func Deserialize(rec wire.Record) (*Swap, error) {
	s, missing := decodeEscrow(rec)
	if missing {
		steps := mergeSteps(swaptypes.BaseUpgradeSteps, escrowUpgradeSteps)
		upgraded := wire.Upgrade(rec, swaptypes.CurrentVersion, steps)
		s, _ = decodeEscrow(upgraded)
	}
	return s, nil
}

func decodeEscrow(rec wire.Record) (*Swap, bool) {
	s := &Swap{}
	r := wire.NewReader(rec)
	s.DeserializeBase(r)

	s.EscrowHash = [32]byte(padTo32(r.Bytes("escrowHash")))
	s.Initiator = r.String("initiator")
	s.BtcAddress = r.String("btcAddress")
	s.RequiredConfirmations = uint32(r.Int("requiredConfirmations"))
	s.VoutHint = uint32(r.Int("voutHint"))
	s.CommitTxId = r.String("commitTxId")
	s.ClaimTxId = r.String("claimTxId")
	s.RefundTxId = r.String("refundTxId")
	s.Secret = [32]byte(padTo32(r.Bytes("secret")))
	s.HasSecret = r.Bool("hasSecret")
	s.BroadcastTick = uint8(r.Int("broadcastTick"))
	s.ExpiresAt = time.UnixMilli(r.Int("expiresAt"))

	return s, r.NeedsUpgrade()
}

func padTo32(b []byte) []byte {
	out := make([]byte, 32)
	copy(out, b)
	return out
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
