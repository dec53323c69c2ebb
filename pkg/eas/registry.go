package eas

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"olas.info/attest/pkg/errors"
)

var ErrSchemaNotFound = errors.NotFound("schema not found", nil)

// SchemaRecord mirrors the registry's struct of the same name.
type SchemaRecord struct {
	Uid       [32]byte       `json:"uid"`
	Resolver  common.Address `json:"resolver"`
	Revocable bool           `json:"revocable"`
	Schema    string         `json:"schema"`
}

func (r *SchemaRecord) UID() common.Hash {
	return common.Hash(r.Uid)
}

type SchemaRegistry struct {
	address  common.Address
	contract *bind.BoundContract
}

func NewSchemaRegistry(address common.Address, backend bind.ContractBackend) *SchemaRegistry {
	return &SchemaRegistry{
		address:  address,
		contract: bind.NewBoundContract(address, schemaRegistryABI, backend, backend, backend),
	}
}

func (r *SchemaRegistry) Address() common.Address {
	return r.address
}

// GetSchema returns ErrSchemaNotFound when the registry hands back its empty
// record.
func (r *SchemaRegistry) GetSchema(ctx context.Context, uid common.Hash) (*SchemaRecord, error) {
	var out []any
	err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getSchema", uid)
	if err != nil {
		return nil, errors.Chain("error calling getSchema", err)
	}
	if len(out) != 1 {
		return nil, errors.Chain(fmt.Sprintf("getSchema returned %d values", len(out)), nil)
	}
	rec := *abi.ConvertType(out[0], new(SchemaRecord)).(*SchemaRecord)
	if rec.Uid == ([32]byte{}) {
		return nil, ErrSchemaNotFound
	}
	return &rec, nil
}

func (r *SchemaRegistry) Register(opts *bind.TransactOpts, schema string, resolver common.Address, revocable bool) (*types.Transaction, error) {
	tx, err := r.contract.Transact(opts, "register", schema, resolver, revocable)
	if err != nil {
		return nil, errors.Chain("error sending register transaction", err)
	}
	return tx, nil
}

// registeredEventIDs covers the Registered event before and after the
// registry started emitting the full schema record. Both index the uid first.
var registeredEventIDs = []common.Hash{
	schemaRegistryABI.Events["Registered"].ID,
	crypto.Keccak256Hash([]byte("Registered(bytes32,address)")),
}

func isRegisteredEvent(topic common.Hash) bool {
	for _, id := range registeredEventIDs {
		if topic == id {
			return true
		}
	}
	return false
}

// RegisteredUID finds the schema UID in a register receipt.
func (r *SchemaRegistry) RegisteredUID(receipt *types.Receipt) (common.Hash, error) {
	for _, l := range receipt.Logs {
		if l.Address != r.address || len(l.Topics) < 2 || !isRegisteredEvent(l.Topics[0]) {
			continue
		}
		return l.Topics[1], nil
	}
	return common.Hash{}, errors.Chain(fmt.Sprintf("no Registered event in receipt for tx %s", receipt.TxHash.Hex()), nil)
}
