// Package attest sequences schema registration, lookups and the four ways of
// creating an attestation. Each call performs at most one chain write and
// never retries it.
package attest

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"olas.info/attest/pkg/crypto/signers/eip712"
	"olas.info/attest/pkg/eas"
)

type Registry interface {
	GetSchema(ctx context.Context, uid common.Hash) (*eas.SchemaRecord, error)
	Register(opts *bind.TransactOpts, schema string, resolver common.Address, revocable bool) (*types.Transaction, error)
	RegisteredUID(receipt *types.Receipt) (common.Hash, error)
}

type Attester interface {
	Address() common.Address
	GetAttestation(ctx context.Context, uid common.Hash) (*eas.Attestation, error)
	GetDomainSeparator(ctx context.Context) (common.Hash, error)
	GetAttestTypeHash(ctx context.Context) (common.Hash, error)
	Version(ctx context.Context) (string, error)
	GetNonce(ctx context.Context, account common.Address) (*big.Int, error)
	Attest(opts *bind.TransactOpts, req eas.AttestationRequest) (*types.Transaction, error)
	AttestByDelegation(opts *bind.TransactOpts, req eas.DelegatedAttestationRequest) (*types.Transaction, error)
	AttestedUID(receipt *types.Receipt) (common.Hash, error)
}

type Hub interface {
	HasProfile(ctx context.Context, account common.Address) (bool, error)
	Publish(opts *bind.TransactOpts, sig eas.Signature, req eas.PublishRequest) (*types.Transaction, error)
	PublishedUID(receipt *types.Receipt) (common.Hash, error)
}

type Miner interface {
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

type Signer interface {
	Address() common.Address
	SignTypedData(td apitypes.TypedData) (*eip712.Signature, error)
	TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error)
}

var (
	_ Registry = (*eas.SchemaRegistry)(nil)
	_ Attester = (*eas.EAS)(nil)
	_ Hub      = (*eas.OlasHub)(nil)
	_ Miner    = (*eas.Waiter)(nil)
	_ Signer   = (*eip712.EIP712Signer)(nil)
)
