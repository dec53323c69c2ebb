package attest

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"olas.info/attest/pkg/errors"
	"olas.info/attest/pkg/log"
	"olas.info/attest/pkg/record"
	"olas.info/attest/pkg/schema"
)

type SchemaParams struct {
	Schema    string
	Resolver  string
	Revocable bool
}

type RegisterResult struct {
	UID           common.Hash
	AlreadyExists bool
	TxHash        common.Hash
}

type Registrar struct {
	Registry Registry
	Miner    Miner
	Signer   Signer
	ChainID  *big.Int
	Network  string
	// registered schemas; only written after a confirmed registration
	Log record.Log
}

// Register makes sure the schema exists in the registry. An existing schema
// is not an error and costs no transaction. The registry itself rejects
// duplicates, so a race between the lookup and the transaction surfaces as
// a reverted transaction rather than a second registration.
func (r *Registrar) Register(ctx context.Context, p SchemaParams) (*RegisterResult, error) {
	if _, err := schema.Parse(p.Schema); err != nil {
		return nil, err
	}
	uid, err := schema.ComputeUID(p.Schema, p.Resolver, p.Revocable)
	if err != nil {
		return nil, err
	}
	resolver := common.HexToAddress(p.Resolver)
	ctx = log.WithLogValues(ctx, "schemaUID", uid.Hex())

	_, err = r.Registry.GetSchema(ctx, uid)
	if err == nil {
		log.Log(ctx, "schema already exists", "schema", p.Schema)
		return &RegisterResult{UID: uid, AlreadyExists: true}, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}

	opts, err := r.Signer.TransactOpts(ctx, r.ChainID)
	if err != nil {
		return nil, err
	}
	log.Log(ctx, "registering schema", "schema", p.Schema, "resolver", resolver.Hex(), "revocable", p.Revocable)
	tx, err := r.Registry.Register(opts, p.Schema, resolver, p.Revocable)
	if err != nil {
		return nil, err
	}
	receipt, err := r.Miner.WaitMined(ctx, tx)
	if err != nil {
		return nil, err
	}
	confirmed, err := r.Registry.RegisteredUID(receipt)
	if err != nil {
		return nil, err
	}
	if confirmed != uid {
		return nil, errors.Chain(fmt.Sprintf("registry assigned UID %s but %s was computed locally", confirmed.Hex(), uid.Hex()), nil)
	}
	err = r.Log.Append(ctx, record.Record{
		Kind:      record.KindSchema,
		Network:   r.Network,
		Schema:    p.Schema,
		SchemaUID: uid,
		TxHash:    tx.Hash(),
		CreatedAt: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("schema %s registered but not recorded: %w", uid.Hex(), err)
	}
	log.Log(ctx, "schema registered", "tx", tx.Hash().Hex())
	return &RegisterResult{UID: uid, TxHash: tx.Hash()}, nil
}
