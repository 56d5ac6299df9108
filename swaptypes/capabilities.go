package swaptypes

import (
	"context"

	"github.com/atomiqlabs/swapengine/watchtower"
)

// SwapData is the capability set the core uses to treat an escrow's
// chain-specific commitment data opaquely. Each
// ContractCapability implementation returns a value satisfying this
// interface from its quote-verification and tx-building entry points.
type SwapData interface {
	GetClaimer() string
	GetOfferer() string
	GetAmount() uint64
	GetToken() string
	GetDepositToken() string
	GetSecurityDeposit() uint64
	GetClaimerBounty() uint64
	GetClaimHash() [32]byte
	GetEscrowHash() [32]byte
	GetExpiry() int64
	GetType() string
	GetSequence() uint64
	IsPayIn() bool
	IsPayOut() bool
	HasSuccessAction() bool
	Serialize() ([]byte, error)
}

// SpvWithdrawalData is parsed from a Bitcoin transaction by the contract
// helper's PSBT/tx parser as part of the submitPsbt validation pipeline.
type SpvWithdrawalData interface {
	IsRecipient(addr string) bool

	// RawAmounts returns the (swapTotal, gasTotal) pair exactly as
	// encoded in the OP_RETURN output, before multiplier scaling.
	RawAmounts() (swapTotal uint64, gasTotal uint64)

	CallerFeeRate() uint32
	FrontingFeeRate() uint32
	ExecutionFeeRate() uint32

	// GetSpentVaultUtxo returns the outpoint (txid:vout) the parsed tx's
	// input 0 spends.
	GetSpentVaultUtxo() (txid [32]byte, vout uint32)

	GetNewVaultBtcAmount() int64
	GetNewVaultScript() []byte

	// GetExecutionData returns any LP-execution payload carried by the
	// tx, or nil when none is present (the common case submitPsbt
	// enforces).
	GetExecutionData() []byte

	GetTxId() [32]byte

	// BtcTx returns the serialized Bitcoin transaction this data was
	// parsed from, for output-level checks (e.g. output 2's destination
	// and amount).
	BtcTx() []byte

	Serialize() ([]byte, error)
}

// SignerCapability abstracts over whatever keeps the user's smart-chain
// signing key, down to the single operation the swap engine needs:
// producing a signed, submittable transaction for a capability-specific
// intent.
type SignerCapability interface {
	// Address returns the signer's smart-chain address, used by
	// ContractCapability to verify that a commit transaction's signer
	// matches the swap's recorded initiator.
	Address() string

	// SignTransaction signs an opaque, capability-specific transaction
	// intent (produced by ContractCapability) and returns the signed,
	// broadcast-ready transaction bytes.
	SignTransaction(ctx context.Context, intent []byte) ([]byte, error)
}

// ChainInterfaceCapability abstracts the smart-chain RPC surface the
// engine needs beyond contract calls: broadcasting, confirmation
// tracking and event subscription, decoupling swap logic from any one
// chain backend's RPC shape.
type ChainInterfaceCapability interface {
	// SendTransaction broadcasts a signed transaction and returns its
	// id.
	SendTransaction(ctx context.Context, signedTx []byte) (string, error)

	// GetTransactionConfirmations returns how many confirmations txId
	// has reached, or 0 if unconfirmed or unknown.
	GetTransactionConfirmations(ctx context.Context, txId string) (uint32, error)

	// GetBlockHeight returns the current smart-chain tip height.
	GetBlockHeight(ctx context.Context) (uint64, error)
}

// ContractCapability is the escrow contract surface EscrowSwap drives:
// quote verification data, commit/claim/refund transaction assembly, and
// contract-state observation.
type ContractCapability interface {
	watchtower.SettlementObserver

	// VerifyInitSignature checks the LP's signature over the proposed
	// escrow parameters, returning the parsed SwapData on success.
	VerifyInitSignature(ctx context.Context, quote []byte, signature []byte) (SwapData, error)

	// BuildCommitTransaction assembles the user's escrow-init
	// transaction intent for SignerCapability to sign.
	BuildCommitTransaction(ctx context.Context, data SwapData) ([]byte, error)

	// BuildClaimTransactionWithSecret assembles a claim transaction
	// intent authorized by the HTLC secret pre-image.
	BuildClaimTransactionWithSecret(ctx context.Context, data SwapData, secret [32]byte) ([]byte, error)

	// BuildClaimTransactionWithTxData assembles a claim transaction
	// intent authorized by an SPV proof of the matching Bitcoin payment,
	// optionally bundling light-client sync transactions obtained from a
	// RelaySynchronizerCapability.
	BuildClaimTransactionWithTxData(ctx context.Context, data SwapData, proof BitcoinTxProof, confirmations uint32, vout uint32, sync RelaySynchronizerCapability) ([]byte, error)

	// BuildRefundTransaction assembles the LP's (or user's, depending on
	// expiry semantics) refund transaction intent.
	BuildRefundTransaction(ctx context.Context, data SwapData) ([]byte, error)

	// HashHTLC computes the contract's HTLC hash function H(secret),
	// used to validate a secret pre-image against a claim hash before
	// broadcasting it over the messenger gossip plane.
	HashHTLC(secret [32]byte) [32]byte
}

// BitcoinTxProof bundles the SPV materials a claim-with-tx-data
// transaction intent needs.
type BitcoinTxProof struct {
	BlockHash     [32]byte
	Confirmations uint32
	TxId          [32]byte
	RawTx         []byte
	Height        uint32
}

// SpvContractCapability is the UTXO-vault contract surface SpvVaultSwap
// drives: parsing a signed withdrawal transaction and checking vault
// UTXO liveness.
type SpvContractCapability interface {
	watchtower.SettlementObserver

	// ParseWithdrawalTransaction parses a signed Bitcoin transaction
	// against the vault's expected structure. A malformed or unparseable
	// tx is reported via err rather than a zero value.
	ParseWithdrawalTransaction(ctx context.Context, rawTx []byte) (SpvWithdrawalData, error)

	// IsVaultUtxoSpent reports whether the vault UTXO identified by
	// (txid, vout) has already been spent by a transaction other than
	// the one under consideration.
	IsVaultUtxoSpent(ctx context.Context, txid [32]byte, vout uint32) (bool, error)

	// SubmitWithdrawal posts a co-signed withdrawal transaction to the
	// contract for execution once its Bitcoin payment confirms.
	SubmitWithdrawal(ctx context.Context, rawTx []byte) error
}

// BitcoinRpcCapability is the Bitcoin-side read/write surface: UTXO
// lookup, transaction broadcast, and confirmation tracking — the
// handful of calls this engine needs.
type BitcoinRpcCapability interface {
	// ListUnspent returns UTXOs paying to addr.
	ListUnspent(ctx context.Context, addr string) ([]Utxo, error)

	// GetTransaction fetches a transaction's raw bytes and confirmation
	// count by id.
	GetTransaction(ctx context.Context, txid [32]byte) (raw []byte, confirmations uint32, err error)

	// BroadcastTransaction submits a raw Bitcoin transaction to the
	// network.
	BroadcastTransaction(ctx context.Context, rawTx []byte) error

	// GetFeeRate returns the current recommended fee rate, in
	// satoshis/vbyte, for the given confirmation target in blocks.
	GetFeeRate(ctx context.Context, confTarget uint32) (float64, error)
}

// Utxo is a spendable Bitcoin output as reported by BitcoinRpcCapability.
type Utxo struct {
	TxId   [32]byte
	Vout   uint32
	Value  int64
	Script []byte
}

// RelaySynchronizerCapability supplies light-client sync transactions
// proving a Bitcoin block's inclusion in the smart-chain's header relay,
// keeping that relay's view of Bitcoin caught up without a full node.
type RelaySynchronizerCapability interface {
	// SyncTransactions returns the transactions needed to bring the
	// on-chain header relay up to and including the block blockHash, or
	// nil if the relay is already caught up.
	SyncTransactions(ctx context.Context, blockHash [32]byte) ([][]byte, error)
}
