package escrowswap

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/atomiqlabs/swapengine/swaperr"
)

// maxInferredConfirmations bounds InferRequiredConfirmations' search
// range; the quote's own claimHash commitment must fall within it or the
// number of confirmations cannot be inferred at all.
const maxInferredConfirmations = 20

// ComputeClaimHash replays the contract's claimHash commitment
// H(lockingScript ∥ amount ∥ requiredConfirmations), the binding between
// a Bitcoin output and a smart-chain escrow every quote and every watch
// match is checked against.
func ComputeClaimHash(lockingScript []byte, amount uint64, requiredConfirmations uint32) [32]byte {
	h := sha256.New()
	h.Write(lockingScript)
	var amountBuf [8]byte
	binary.BigEndian.PutUint64(amountBuf[:], amount)
	h.Write(amountBuf[:])
	var confBuf [4]byte
	binary.BigEndian.PutUint32(confBuf[:], requiredConfirmations)
	h.Write(confBuf[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// InferRequiredConfirmations recovers the confirmation count a quote
// committed to but did not state explicitly, by replaying ComputeClaimHash
// for every candidate in [1, maxInferredConfirmations] until one matches
// claimHash. Returns swaperr.IntermediaryError if none do.
func InferRequiredConfirmations(lockingScript []byte, amount uint64, claimHash [32]byte) (uint32, error) {
	for confs := uint32(1); confs <= maxInferredConfirmations; confs++ {
		if ComputeClaimHash(lockingScript, amount, confs) == claimHash {
			return confs, nil
		}
	}
	return 0, &swaperr.IntermediaryError{Reason: "claim hash does not commit to any confirmation count in range"}
}

// QuoteParams is the subset of an LP's /frombtc (or /frombtc_ln,
// /tobtc, /tobtc_ln) quote response verifyReturnedData checks against
// the parsed SwapData before a swap is allowed to proceed to COMMIT.
type QuoteParams struct {
	LockingScript         []byte
	Amount                uint64
	RequiredConfirmations uint32
	ClaimHash             [32]byte
	ExtraData             []byte
	ExpectedExtraData     []byte
	RandomNonce           uint64
	ClaimerAddress        string
	OffererAddress        string
	LpAddress             string
	DepositToken          string
	ExpectedDepositToken  string
	FeePerBlock           uint64
	BlockDelta            uint64
	AddFee                uint64
	SafetyFactorPPM       int64
	Now                   int64
	MinSendWindowSeconds  int64
}

// computeExpectedBounty mirrors the contract's claimer-bounty formula:
// feePerBlock*blockDelta plus a flat addFee, inflated by a safety factor
// expressed in parts-per-million to absorb the LP's estimation error.
func computeExpectedBounty(feePerBlock, blockDelta, addFee uint64, safetyFactorPPM int64) uint64 {
	base := feePerBlock*blockDelta + addFee
	if safetyFactorPPM <= 0 {
		return base
	}
	return base + (base*uint64(safetyFactorPPM))/1_000_000
}

// VerifyReturnedData enforces every invariant a quote must satisfy
// before the escrow is allowed to advance past PR_CREATED: claimer
// bounty matches the computed bounty, claim hash commits to the locking
// script/amount/confirmations tuple, extra data matches what the
// contract expects for that tuple, sequence equals the supplied random
// nonce, the LP is the offerer and the caller the claimer, deposit token
// matches, no success action is attached, the swap type is CHAIN, and
// the remaining time until expiry is at least the minimum send window.
func VerifyReturnedData(data SwapDataLike, q QuoteParams) error {
	expectedBounty := computeExpectedBounty(q.FeePerBlock, q.BlockDelta, q.AddFee, q.SafetyFactorPPM)
	if data.GetClaimerBounty() < expectedBounty {
		return &swaperr.IntermediaryError{Reason: "claimer bounty below expected amount"}
	}

	expectedClaimHash := ComputeClaimHash(q.LockingScript, q.Amount, q.RequiredConfirmations)
	if data.GetClaimHash() != expectedClaimHash {
		return &swaperr.IntermediaryError{Reason: "claim hash does not match quoted parameters"}
	}

	if len(q.ExtraData) > 0 && string(q.ExtraData) != string(q.ExpectedExtraData) {
		return &swaperr.IntermediaryError{Reason: "extra data does not match expected contract value"}
	}

	if data.GetSequence() != q.RandomNonce {
		return &swaperr.IntermediaryError{Reason: "sequence does not match supplied random nonce"}
	}

	if data.GetOfferer() != q.LpAddress {
		return &swaperr.IntermediaryError{Reason: "LP is not the offerer"}
	}
	if data.GetClaimer() != q.ClaimerAddress {
		return &swaperr.IntermediaryError{Reason: "caller is not the claimer"}
	}
	if data.GetDepositToken() != q.ExpectedDepositToken {
		return &swaperr.IntermediaryError{Reason: "deposit token mismatch"}
	}
	if data.HasSuccessAction() {
		return &swaperr.IntermediaryError{Reason: "unexpected success action attached to quote"}
	}
	if data.GetType() != "CHAIN" {
		return &swaperr.IntermediaryError{Reason: "unexpected swap type"}
	}

	remaining := data.GetExpiry() - q.Now
	if remaining < q.MinSendWindowSeconds {
		return &swaperr.IntermediaryError{Reason: "expiry leaves too little time to send payment"}
	}

	return nil
}

// SwapDataLike is the subset of swaptypes.SwapData VerifyReturnedData
// reads, kept as its own interface so quote verification can be unit
// tested against a minimal fake without building a full SwapData.
type SwapDataLike interface {
	GetClaimerBounty() uint64
	GetClaimHash() [32]byte
	GetSequence() uint64
	GetOfferer() string
	GetClaimer() string
	GetDepositToken() string
	HasSuccessAction() bool
	GetType() string
	GetExpiry() int64
}
