package escrowswap

import (
	"context"

	"github.com/atomiqlabs/swapengine/swaperr"
)

// ClaimWitnessMessage is broadcast over the messenger gossip plane so a
// watchtower can settle the swap on the user's behalf without any
// smart-chain transaction from the user. The transport treats Data and
// Secret opaquely.
type ClaimWitnessMessage struct {
	Data   []byte
	Secret [32]byte
}

// Messenger is the gossip transport FROM_LN_AUTO publishes claim witness
// messages over (e.g. a Nostr relay), left as an external collaborator
// satisfying this interface.
type Messenger interface {
	Broadcast(ctx context.Context, msg ClaimWitnessMessage) error
}

// secretBroadcastPeriod is how many ticks pass between secret broadcasts
// while CLAIM_COMMITED: every third tick, matching the cadence the
// gossip plane is tolerant of without flooding.
const secretBroadcastPeriod = 3

// tickAutoBroadcast implements the FROM_LN_AUTO broadcast guard: only
// broadcasts when the secret is known and validates against the escrow's
// claim hash, and only on every secretBroadcastPeriod-th tick. Broadcast
// failures are logged and swallowed, matching Tick's general
// errors-logged-and-swallowed policy; the next tick retries.
func (s *Swap) tickAutoBroadcast(ctx context.Context) (bool, error) {
	s.BroadcastTick++
	if s.BroadcastTick < secretBroadcastPeriod {
		return true, nil
	}
	s.BroadcastTick = 0

	if !s.HasSecret || s.messenger == nil {
		return true, nil
	}

	if err := s.BroadcastSecret(ctx); err != nil {
		log.Warnf("secret broadcast failed for swap %s: %v", s.Id, err)
	}
	return true, nil
}

// BroadcastSecret validates Secret against the escrow's claim hash via
// the attached contract's HashHTLC and, if it matches, publishes a
// ClaimWitnessMessage over the attached messenger. An invalid secret
// fails validation without broadcasting anything.
func (s *Swap) BroadcastSecret(ctx context.Context) error {
	if !s.HasSecret {
		return &swaperr.InvalidStateError{Have: "no secret known", Want: "secret revealed"}
	}
	if s.deps.Contract.HashHTLC(s.Secret) != s.Data.GetClaimHash() {
		return &swaperr.IntermediaryError{Reason: "secret does not hash to escrow's claim hash"}
	}

	serialized, err := s.Data.Serialize()
	if err != nil {
		return err
	}

	return s.messenger.Broadcast(ctx, ClaimWitnessMessage{Data: serialized, Secret: s.Secret})
}
