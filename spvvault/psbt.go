package spvvault

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/wire"

	"github.com/atomiqlabs/swapengine/input"
	"github.com/atomiqlabs/swapengine/watchtower"
)

// localityBit marks every input's sequence as locktime-enabled (high bit
// set), the same flag bit BIP-68/RBF-style relative-locktime sequences
// use; here it is not a relative locktime at all but simply the marker
// bit the contract's parser uses to recognize a fee-share-encoded
// sequence field rather than an ordinary one.
const localityBit = uint32(0x80000000)

// minLocktime and maxLocktime bound the random salt chosen for each
// PSBT's nLockTime, to ensure txid uniqueness across otherwise-identical
// vault replays.
const (
	minLocktime = 500_000_000
	maxLocktime = 1_499_999_999
)

// BuildParams bundles everything BuildPsbt needs to assemble the
// unsigned vault-withdrawal transaction.
type BuildParams struct {
	VaultUtxoTxId [32]byte
	VaultUtxoVout uint32
	VaultScript   []byte
	VaultValue    int64

	// FundingInputs are the user-funded inputs starting at index 1.
	// There must be at least one.
	FundingInputs []FundingInput

	RecipientAddress string
	RawSwapAmount    uint64
	RawGasAmount     uint64

	BtcDestinationScript []byte
	BtcAmount            uint64

	CallerFeeShare    uint32
	FrontingFeeShare  uint32
	ExecutionFeeShare uint32
}

// FundingInput is one user-funded UTXO spent starting at PSBT input 1.
type FundingInput struct {
	TxId   [32]byte
	Vout   uint32
	Value  int64
	Script []byte
}

// EncodeSequence0 packs callerFeeShare and the high 10 bits of
// frontingFeeShare into input 0's nSequence:
//
//	nSequence0 = 0x80000000 | (callerFeeShare & 0xFFFFF) | ((frontingFeeShare & 0xFFC00) << 10)
func EncodeSequence0(callerFeeShare, frontingFeeShare uint32) uint32 {
	return localityBit | (callerFeeShare & 0xFFFFF) | ((frontingFeeShare & 0xFFC00) << 10)
}

// EncodeSequence1 packs executionFeeShare and the low 10 bits of
// frontingFeeShare into input 1's nSequence:
//
//	nSequence1 = 0x80000000 | (executionFeeShare & 0xFFFFF) | ((frontingFeeShare & 0x3FF) << 20)
func EncodeSequence1(executionFeeShare, frontingFeeShare uint32) uint32 {
	return localityBit | (executionFeeShare & 0xFFFFF) | ((frontingFeeShare & 0x3FF) << 20)
}

// DecodeFrontingFeeShare recovers frontingFeeShare from the two sequence
// fields it was split across, the inverse of EncodeSequence0/1.
func DecodeFrontingFeeShare(sequence0, sequence1 uint32) uint32 {
	high := (sequence0 >> 10) & 0xFFC00
	low := (sequence1 >> 20) & 0x3FF
	return high | low
}

// DecodeCallerFeeShare recovers callerFeeShare from input 0's sequence.
func DecodeCallerFeeShare(sequence0 uint32) uint32 {
	return sequence0 & 0xFFFFF
}

// DecodeExecutionFeeShare recovers executionFeeShare from input 1's
// sequence.
func DecodeExecutionFeeShare(sequence1 uint32) uint32 {
	return sequence1 & 0xFFFFF
}

// randomLocktime draws a salt in [minLocktime, maxLocktime] uniformly at
// random via crypto/rand, matching the CSPRNG policy the rest of the
// engine uses for nonces (see swapbase id generation).
func randomLocktime() (uint32, error) {
	span := big.NewInt(maxLocktime - minLocktime + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return 0, fmt.Errorf("generating locktime salt: %w", err)
	}
	return uint32(minLocktime + n.Int64()), nil
}

// EncodeOpReturnPayload builds the raw OP_RETURN payload (before the
// 0x6a framing input.BuildOpReturnScript adds): a length-prefixed
// recipient address followed by the two raw amounts, big-endian.
func EncodeOpReturnPayload(recipient string, rawSwapAmount, rawGasAmount uint64) ([]byte, error) {
	addr := []byte(recipient)
	if len(addr) > 255 {
		return nil, fmt.Errorf("recipient address too long to encode: %d bytes", len(addr))
	}
	buf := make([]byte, 0, 1+len(addr)+16)
	buf = append(buf, byte(len(addr)))
	buf = append(buf, addr...)
	var amt [8]byte
	binary.BigEndian.PutUint64(amt[:], rawSwapAmount)
	buf = append(buf, amt[:]...)
	binary.BigEndian.PutUint64(amt[:], rawGasAmount)
	buf = append(buf, amt[:]...)
	return buf, nil
}

// DecodeOpReturnPayload is the inverse of EncodeOpReturnPayload.
func DecodeOpReturnPayload(payload []byte) (recipient string, rawSwapAmount, rawGasAmount uint64, err error) {
	if len(payload) < 1 {
		return "", 0, 0, fmt.Errorf("op_return payload too short")
	}
	n := int(payload[0])
	if len(payload) != 1+n+16 {
		return "", 0, 0, fmt.Errorf("op_return payload length mismatch")
	}
	recipient = string(payload[1 : 1+n])
	rawSwapAmount = binary.BigEndian.Uint64(payload[1+n : 1+n+8])
	rawGasAmount = binary.BigEndian.Uint64(payload[1+n+8 : 1+n+16])
	return recipient, rawSwapAmount, rawGasAmount, nil
}

// BuildPsbt assembles the unsigned vault-withdrawal transaction: input 0
// is the vault UTXO with the fee-share-encoded sequence, input 1+ are
// the user's funding inputs (input 1 also fee-share encoded), output 0
// replays the vault, output 1 is the OP_RETURN carrying the recipient
// and raw amounts, output 2 pays the LP's BTC destination. Locktime is a
// random salt for txid uniqueness.
//
// wire.MsgTx here plays the role of a PSBT's unsigned transaction: the
// wallet capability signs it (and attaches the vault's witness/unlocking
// data for input 0) before this engine ever sees the result again as raw
// bytes via WalletSigner.SignPsbt.
func BuildPsbt(p BuildParams) (*wire.MsgTx, error) {
	if len(p.FundingInputs) == 0 {
		return nil, fmt.Errorf("spv vault psbt needs at least one funding input")
	}
	if err := watchtower.ValidateFeeShare(p.CallerFeeShare); err != nil {
		return nil, fmt.Errorf("caller fee share: %w", err)
	}
	if err := watchtower.ValidateFeeShare(p.FrontingFeeShare); err != nil {
		return nil, fmt.Errorf("fronting fee share: %w", err)
	}
	if err := watchtower.ValidateFeeShare(p.ExecutionFeeShare); err != nil {
		return nil, fmt.Errorf("execution fee share: %w", err)
	}

	locktime, err := randomLocktime()
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx()
	tx.LockTime = locktime

	vaultHash, err := chainhash.NewHash(reverseCopy(p.VaultUtxoTxId[:]))
	if err != nil {
		return nil, fmt.Errorf("vault utxo txid: %w", err)
	}
	vaultIn := &wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Hash: *vaultHash, Index: p.VaultUtxoVout},
		Sequence:         EncodeSequence0(p.CallerFeeShare, p.FrontingFeeShare),
		ValueIn:          p.VaultValue,
	}
	tx.AddTxIn(vaultIn)

	for i, fi := range p.FundingInputs {
		h, err := chainhash.NewHash(reverseCopy(fi.TxId[:]))
		if err != nil {
			return nil, fmt.Errorf("funding input %d txid: %w", i, err)
		}
		in := &wire.TxIn{
			PreviousOutPoint: wire.OutPoint{Hash: *h, Index: fi.Vout},
			ValueIn:          fi.Value,
		}
		if i == 0 {
			in.Sequence = EncodeSequence1(p.ExecutionFeeShare, p.FrontingFeeShare)
		} else {
			in.Sequence = wire.MaxTxInSequenceNum
		}
		tx.AddTxIn(in)
	}

	// Output 0: replay the vault at the same script and value.
	tx.AddTxOut(&wire.TxOut{Value: p.VaultValue, PkScript: p.VaultScript})

	// Output 1: OP_RETURN carrying the recipient and raw amounts.
	payload, err := EncodeOpReturnPayload(p.RecipientAddress, p.RawSwapAmount, p.RawGasAmount)
	if err != nil {
		return nil, err
	}
	opReturnScript, err := input.BuildOpReturnScript(payload)
	if err != nil {
		return nil, err
	}
	tx.AddTxOut(&wire.TxOut{Value: 0, PkScript: opReturnScript})

	// Output 2: pay the LP's BTC destination.
	tx.AddTxOut(&wire.TxOut{Value: int64(p.BtcAmount), PkScript: p.BtcDestinationScript})

	return tx, nil
}

// reverseCopy returns a reversed copy of b, used to convert this
// engine's big-endian-displayed txid byte arrays into the little-endian
// internal byte order chainhash.Hash expects.
func reverseCopy(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[i] = b[len(b)-1-i]
	}
	return out
}
