package eas

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"olas.info/attest/pkg/errors"
)

var (
	easAddr      = common.HexToAddress("0xC2679fBD37d54388Ce493F1DB75320D236e1815e")
	registryAddr = common.HexToAddress("0x0a7E2Ff54e76B8E6659aedc9103FB21c038050D0")
	hubAddr      = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

func transactOpts(t *testing.T) *bind.TransactOpts {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(11155111))
	require.NoError(t, err)
	opts.Context = context.Background()
	opts.GasLimit = 500000
	opts.GasPrice = big.NewInt(1)
	opts.Nonce = big.NewInt(0)
	return opts
}

func TestGetSchema(t *testing.T) {
	backend := newFakeBackend(schemaRegistryABI)
	registry := NewSchemaRegistry(registryAddr, backend)
	uid := common.HexToHash("0x01")
	backend.responses["getSchema"] = []any{SchemaRecord{Uid: uid, Resolver: common.Address{}, Revocable: true, Schema: "bool flag"}}

	rec, err := registry.GetSchema(context.Background(), uid)
	require.NoError(t, err)
	require.Equal(t, uid, rec.UID())
	require.Equal(t, "bool flag", rec.Schema)
	require.True(t, rec.Revocable)
}

func TestGetSchemaNotFound(t *testing.T) {
	backend := newFakeBackend(schemaRegistryABI)
	registry := NewSchemaRegistry(registryAddr, backend)
	backend.responses["getSchema"] = []any{SchemaRecord{}}

	_, err := registry.GetSchema(context.Background(), common.HexToHash("0x01"))
	require.ErrorIs(t, err, ErrSchemaNotFound)
	require.True(t, errors.IsNotFound(err))
}

func TestGetSchemaTransportError(t *testing.T) {
	backend := newFakeBackend(schemaRegistryABI)
	backend.callErr = fmt.Errorf("connection refused")
	registry := NewSchemaRegistry(registryAddr, backend)

	_, err := registry.GetSchema(context.Background(), common.HexToHash("0x01"))
	require.Error(t, err)
	require.Equal(t, errors.KindChain, errors.KindOf(err))
	require.False(t, errors.IsNotFound(err))
}

func TestGetAttestation(t *testing.T) {
	backend := newFakeBackend(easABI)
	e := NewEAS(easAddr, backend)
	uid := common.HexToHash("0xbd")
	backend.responses["getAttestation"] = []any{Attestation{
		Uid:       uid,
		Schema:    common.HexToHash("0x02"),
		Time:      1700000000,
		Recipient: common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		Attester:  common.HexToAddress("0x00000000000000000000000000000000000000bb"),
		Data:      []byte{1, 2, 3},
	}}

	att, err := e.GetAttestation(context.Background(), uid)
	require.NoError(t, err)
	require.Equal(t, [32]byte(uid), att.Uid)
	require.Equal(t, uint64(1700000000), att.Time)
	require.Equal(t, []byte{1, 2, 3}, att.Data)

	backend.responses["getAttestation"] = []any{Attestation{Data: []byte{}}}
	_, err = e.GetAttestation(context.Background(), uid)
	require.ErrorIs(t, err, ErrAttestationNotFound)
}

func TestEASViews(t *testing.T) {
	backend := newFakeBackend(easABI)
	e := NewEAS(easAddr, backend)
	sep := common.HexToHash("0x5e")
	th := common.HexToHash("0x7a")
	backend.responses["getDomainSeparator"] = []any{[32]byte(sep)}
	backend.responses["getAttestTypeHash"] = []any{[32]byte(th)}
	backend.responses["version"] = []any{"1.3.0"}
	backend.responses["getNonce"] = []any{big.NewInt(7)}
	backend.responses["getSchemaRegistry"] = []any{registryAddr}

	ctx := context.Background()
	got, err := e.GetDomainSeparator(ctx)
	require.NoError(t, err)
	require.Equal(t, sep, got)
	got, err = e.GetAttestTypeHash(ctx)
	require.NoError(t, err)
	require.Equal(t, th, got)
	v, err := e.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, "1.3.0", v)
	n, err := e.GetNonce(ctx, common.Address{})
	require.NoError(t, err)
	require.Equal(t, int64(7), n.Int64())
	reg, err := e.GetSchemaRegistry(ctx)
	require.NoError(t, err)
	require.Equal(t, registryAddr, reg)
}

func TestAttestTransaction(t *testing.T) {
	backend := newFakeBackend(easABI)
	e := NewEAS(easAddr, backend)
	req := AttestationRequest{
		Schema: common.HexToHash("0x02"),
		Data: AttestationRequestData{
			Recipient: common.HexToAddress("0x00000000000000000000000000000000000000aa"),
			Data:      []byte("payload"),
			Value:     big.NewInt(0),
		},
	}
	tx, err := e.Attest(transactOpts(t), req)
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)
	require.Equal(t, easAddr, *tx.To())

	method := easABI.Methods["attest"]
	require.Equal(t, method.ID, tx.Data()[:4])
	vals, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	decoded := *abi.ConvertType(vals[0], new(AttestationRequest)).(*AttestationRequest)
	require.Equal(t, req.Schema, decoded.Schema)
	require.Equal(t, req.Data.Recipient, decoded.Data.Recipient)
	require.Equal(t, []byte("payload"), decoded.Data.Data)
}

func TestAttestByDelegationTransaction(t *testing.T) {
	backend := newFakeBackend(easABI)
	e := NewEAS(easAddr, backend)
	req := DelegatedAttestationRequest{
		Schema:    common.HexToHash("0x02"),
		Data:      AttestationRequestData{Data: []byte{}, Value: big.NewInt(0)},
		Signature: Signature{V: 27, R: common.HexToHash("0x04"), S: common.HexToHash("0x05")},
		Attester:  common.HexToAddress("0x00000000000000000000000000000000000000bb"),
	}
	tx, err := e.AttestByDelegation(transactOpts(t), req)
	require.NoError(t, err)
	require.Equal(t, easABI.Methods["attestByDelegation"].ID, tx.Data()[:4])
}

func attestedLog(t *testing.T, address common.Address, uid common.Hash) *types.Log {
	ev := easABI.Events["Attested"]
	data, err := ev.Inputs.NonIndexed().Pack([32]byte(uid))
	require.NoError(t, err)
	return &types.Log{
		Address: address,
		Topics: []common.Hash{
			ev.ID,
			common.BytesToHash(common.HexToAddress("0xaa").Bytes()),
			common.BytesToHash(common.HexToAddress("0xbb").Bytes()),
			common.HexToHash("0x02"),
		},
		Data: data,
	}
}

func TestAttestedUID(t *testing.T) {
	e := NewEAS(easAddr, newFakeBackend(easABI))
	uid := crypto.Keccak256Hash([]byte("attestation"))
	receipt := &types.Receipt{Logs: []*types.Log{
		attestedLog(t, common.HexToAddress("0x01"), common.HexToHash("0xdead")),
		attestedLog(t, easAddr, uid),
	}}
	got, err := e.AttestedUID(receipt)
	require.NoError(t, err)
	require.Equal(t, uid, got)

	_, err = e.AttestedUID(&types.Receipt{})
	require.Equal(t, errors.KindChain, errors.KindOf(err))
}

func TestRegisterAndRegisteredUID(t *testing.T) {
	backend := newFakeBackend(schemaRegistryABI)
	registry := NewSchemaRegistry(registryAddr, backend)
	tx, err := registry.Register(transactOpts(t), "bool flag", common.Address{}, false)
	require.NoError(t, err)
	require.Equal(t, schemaRegistryABI.Methods["register"].ID, tx.Data()[:4])

	uid := common.HexToHash("0x1234")
	receipt := &types.Receipt{Logs: []*types.Log{
		{Address: registryAddr, Topics: []common.Hash{schemaRegistryABI.Events["Registered"].ID, uid}},
	}}
	got, err := registry.RegisteredUID(receipt)
	require.NoError(t, err)
	require.Equal(t, uid, got)

	_, err = registry.RegisteredUID(&types.Receipt{})
	require.Error(t, err)

	// older registries emit Registered(bytes32,address)
	legacy := &types.Receipt{Logs: []*types.Log{
		{Address: registryAddr, Topics: []common.Hash{crypto.Keccak256Hash([]byte("Registered(bytes32,address)")), uid}},
	}}
	got, err = registry.RegisteredUID(legacy)
	require.NoError(t, err)
	require.Equal(t, uid, got)
}

func TestRegisteredUIDSkipsOtherEvents(t *testing.T) {
	registry := NewSchemaRegistry(registryAddr, newFakeBackend(schemaRegistryABI))
	uid := common.HexToHash("0x1234")
	transfer := crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	receipt := &types.Receipt{Logs: []*types.Log{
		{Address: registryAddr, Topics: []common.Hash{transfer, common.HexToHash("0xdead")}},
		{Address: registryAddr, Topics: []common.Hash{schemaRegistryABI.Events["Registered"].ID, uid}},
	}}
	got, err := registry.RegisteredUID(receipt)
	require.NoError(t, err)
	require.Equal(t, uid, got)

	receipt.Logs = receipt.Logs[:1]
	_, err = registry.RegisteredUID(receipt)
	require.Equal(t, errors.KindChain, errors.KindOf(err))
}

func TestOlasHub(t *testing.T) {
	backend := newFakeBackend(olasHubABI)
	hub := NewOlasHub(hubAddr, backend)
	backend.responses["hasProfile"] = []any{true}
	ok, err := hub.HasProfile(context.Background(), common.Address{})
	require.NoError(t, err)
	require.True(t, ok)

	tx, err := hub.Publish(transactOpts(t), Signature{V: 28}, PublishRequest{
		Title:        "Why GM is new hello?",
		ContentURL:   "https://olas.info/1332",
		CitationUIDs: [][32]byte{common.HexToHash("0x01")},
	})
	require.NoError(t, err)
	require.Equal(t, olasHubABI.Methods["publish"].ID, tx.Data()[:4])

	ev := olasHubABI.Events["ArticlePublished"]
	uid := crypto.Keccak256Hash([]byte("article"))
	data, err := ev.Inputs.NonIndexed().Pack([32]byte(uid), "Why GM is new hello?")
	require.NoError(t, err)
	receipt := &types.Receipt{Logs: []*types.Log{{
		Address: hubAddr,
		Topics:  []common.Hash{ev.ID, common.BytesToHash(common.HexToAddress("0xaa").Bytes())},
		Data:    data,
	}}}
	got, err := hub.PublishedUID(receipt)
	require.NoError(t, err)
	require.Equal(t, uid, got)
}

func TestWaitMined(t *testing.T) {
	backend := newFakeBackend(easABI)
	w := &Waiter{Backend: backend}
	tx := types.NewTx(&types.LegacyTx{Nonce: 1})

	backend.receipt = &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(5)}
	receipt, err := w.WaitMined(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(5), receipt.BlockNumber)

	backend.receipt = &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(6)}
	_, err = w.WaitMined(context.Background(), tx)
	require.Equal(t, errors.KindChain, errors.KindOf(err))
}

func TestWaitMinedCancelled(t *testing.T) {
	w := &Waiter{Backend: newFakeBackend(easABI)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.WaitMined(ctx, types.NewTx(&types.LegacyTx{Nonce: 1}))
	require.Equal(t, errors.KindChain, errors.KindOf(err))
	require.ErrorIs(t, err, context.Canceled)
}
