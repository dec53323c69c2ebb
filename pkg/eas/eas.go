package eas

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"olas.info/attest/pkg/errors"
)

var ErrAttestationNotFound = errors.NotFound("attestation not found", nil)

// Attestation mirrors the EAS Attestation struct.
type Attestation struct {
	Uid            [32]byte       `json:"uid"`
	Schema         [32]byte       `json:"schema"`
	Time           uint64         `json:"time"`
	ExpirationTime uint64         `json:"expirationTime"`
	RevocationTime uint64         `json:"revocationTime"`
	RefUID         [32]byte       `json:"refUID"`
	Recipient      common.Address `json:"recipient"`
	Attester       common.Address `json:"attester"`
	Revocable      bool           `json:"revocable"`
	Data           []byte         `json:"data"`
}

type AttestationRequestData struct {
	Recipient      common.Address
	ExpirationTime uint64
	Revocable      bool
	RefUID         [32]byte
	Data           []byte
	Value          *big.Int
}

type AttestationRequest struct {
	Schema [32]byte
	Data   AttestationRequestData
}

// Signature is the contract's (v, r, s) struct.
type Signature struct {
	V uint8
	R [32]byte
	S [32]byte
}

type DelegatedAttestationRequest struct {
	Schema    [32]byte
	Data      AttestationRequestData
	Signature Signature
	Attester  common.Address
	Deadline  uint64
}

type EAS struct {
	address  common.Address
	contract *bind.BoundContract
}

func NewEAS(address common.Address, backend bind.ContractBackend) *EAS {
	return &EAS{
		address:  address,
		contract: bind.NewBoundContract(address, easABI, backend, backend, backend),
	}
}

func (e *EAS) Address() common.Address {
	return e.address
}

func (e *EAS) call(ctx context.Context, method string, args ...any) ([]any, error) {
	var out []any
	err := e.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...)
	if err != nil {
		return nil, errors.Chain(fmt.Sprintf("error calling %s", method), err)
	}
	if len(out) != 1 {
		return nil, errors.Chain(fmt.Sprintf("%s returned %d values", method, len(out)), nil)
	}
	return out, nil
}

func (e *EAS) GetAttestation(ctx context.Context, uid common.Hash) (*Attestation, error) {
	out, err := e.call(ctx, "getAttestation", uid)
	if err != nil {
		return nil, err
	}
	att := *abi.ConvertType(out[0], new(Attestation)).(*Attestation)
	if att.Uid == ([32]byte{}) {
		return nil, ErrAttestationNotFound
	}
	return &att, nil
}

func (e *EAS) bytes32(ctx context.Context, method string) (common.Hash, error) {
	out, err := e.call(ctx, method)
	if err != nil {
		return common.Hash{}, err
	}
	return common.Hash(*abi.ConvertType(out[0], new([32]byte)).(*[32]byte)), nil
}

func (e *EAS) GetDomainSeparator(ctx context.Context) (common.Hash, error) {
	return e.bytes32(ctx, "getDomainSeparator")
}

func (e *EAS) GetAttestTypeHash(ctx context.Context) (common.Hash, error) {
	return e.bytes32(ctx, "getAttestTypeHash")
}

func (e *EAS) Version(ctx context.Context) (string, error) {
	out, err := e.call(ctx, "version")
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

func (e *EAS) GetNonce(ctx context.Context, account common.Address) (*big.Int, error) {
	out, err := e.call(ctx, "getNonce", account)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (e *EAS) GetSchemaRegistry(ctx context.Context) (common.Address, error) {
	out, err := e.call(ctx, "getSchemaRegistry")
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (e *EAS) Attest(opts *bind.TransactOpts, req AttestationRequest) (*types.Transaction, error) {
	tx, err := e.contract.Transact(opts, "attest", req)
	if err != nil {
		return nil, errors.Chain("error sending attest transaction", err)
	}
	return tx, nil
}

func (e *EAS) AttestByDelegation(opts *bind.TransactOpts, req DelegatedAttestationRequest) (*types.Transaction, error) {
	tx, err := e.contract.Transact(opts, "attestByDelegation", req)
	if err != nil {
		return nil, errors.Chain("error sending attestByDelegation transaction", err)
	}
	return tx, nil
}

// AttestedUID pulls the new attestation UID out of the Attested event.
func (e *EAS) AttestedUID(receipt *types.Receipt) (common.Hash, error) {
	ev := easABI.Events["Attested"]
	for _, l := range receipt.Logs {
		if l.Address != e.address || len(l.Topics) == 0 || l.Topics[0] != ev.ID {
			continue
		}
		return firstBytes32(easABI, "Attested", l)
	}
	return common.Hash{}, errors.Chain(fmt.Sprintf("no Attested event in receipt for tx %s", receipt.TxHash.Hex()), nil)
}

// firstBytes32 decodes an event's non-indexed data and returns its leading
// bytes32 value.
func firstBytes32(contractABI abi.ABI, event string, l *types.Log) (common.Hash, error) {
	values, err := contractABI.Unpack(event, l.Data)
	if err != nil {
		return common.Hash{}, errors.Chain(fmt.Sprintf("error decoding %s event", event), err)
	}
	if len(values) == 0 {
		return common.Hash{}, errors.Chain(fmt.Sprintf("%s event has no data", event), nil)
	}
	uid, ok := values[0].([32]byte)
	if !ok {
		return common.Hash{}, errors.Chain(fmt.Sprintf("%s event: expected bytes32, got %T", event, values[0]), nil)
	}
	return common.Hash(uid), nil
}
