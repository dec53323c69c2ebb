package attest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"olas.info/attest/pkg/eas"
	"olas.info/attest/pkg/record"
	"olas.info/attest/pkg/schema"
)

var (
	testChainID = big.NewInt(11155111)
	easAddress  = common.HexToAddress("0xC2679fBD37d54388Ce493F1DB75320D236e1815e")
)

// every fake transaction carries a distinct nonce so hashes differ
type txSource struct {
	mu    sync.Mutex
	nonce uint64
}

func (s *txSource) next(to common.Address, value *big.Int) *types.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonce++
	return types.NewTx(&types.LegacyTx{Nonce: s.nonce, To: &to, Value: value, GasPrice: big.NewInt(1), Gas: 21000})
}

type fakeRegistry struct {
	txs       *txSource
	schemas   map[common.Hash]*eas.SchemaRecord
	pending   map[common.Hash]common.Hash
	registers int
	// force RegisteredUID to report this instead
	wrongUID *common.Hash
	lookups  int
}

func newFakeRegistry(txs *txSource) *fakeRegistry {
	return &fakeRegistry{
		txs:     txs,
		schemas: map[common.Hash]*eas.SchemaRecord{},
		pending: map[common.Hash]common.Hash{},
	}
}

func (r *fakeRegistry) add(text string, revocable bool) common.Hash {
	uid := schema.UID(text, common.Address{}, revocable)
	r.schemas[uid] = &eas.SchemaRecord{Uid: uid, Revocable: revocable, Schema: text}
	return uid
}

func (r *fakeRegistry) GetSchema(ctx context.Context, uid common.Hash) (*eas.SchemaRecord, error) {
	r.lookups++
	rec, ok := r.schemas[uid]
	if !ok {
		return nil, eas.ErrSchemaNotFound
	}
	return rec, nil
}

func (r *fakeRegistry) Register(opts *bind.TransactOpts, text string, resolver common.Address, revocable bool) (*types.Transaction, error) {
	r.registers++
	uid := schema.UID(text, resolver, revocable)
	if _, ok := r.schemas[uid]; ok {
		return nil, fmt.Errorf("execution reverted: AlreadyExists")
	}
	r.schemas[uid] = &eas.SchemaRecord{Uid: uid, Resolver: resolver, Revocable: revocable, Schema: text}
	tx := r.txs.next(common.Address{}, nil)
	r.pending[tx.Hash()] = uid
	return tx, nil
}

func (r *fakeRegistry) RegisteredUID(receipt *types.Receipt) (common.Hash, error) {
	if r.wrongUID != nil {
		return *r.wrongUID, nil
	}
	return r.pending[receipt.TxHash], nil
}

type fakeEAS struct {
	txs          *txSource
	version      string
	nonce        *big.Int
	separator    common.Hash
	typeHash     common.Hash
	attestations map[common.Hash]*eas.Attestation
	uids         map[common.Hash]common.Hash

	attests    []eas.AttestationRequest
	delegated  []eas.DelegatedAttestationRequest
	lastOpts   *bind.TransactOpts
	getErr error
}

func newFakeEAS(txs *txSource) *fakeEAS {
	sep, err := eas.DomainSeparator(eas.Domain{
		Name:              eas.DomainName,
		Version:           "1.3.0",
		ChainID:           testChainID,
		VerifyingContract: easAddress,
	})
	if err != nil {
		panic(err)
	}
	th, err := eas.AttestTypeHash("1.3.0")
	if err != nil {
		panic(err)
	}
	return &fakeEAS{
		txs:          txs,
		version:      "1.3.0",
		nonce:        big.NewInt(0),
		separator:    sep,
		typeHash:     th,
		attestations: map[common.Hash]*eas.Attestation{},
		uids:         map[common.Hash]common.Hash{},
	}
}

func (e *fakeEAS) Address() common.Address {
	return easAddress
}

func (e *fakeEAS) GetAttestation(ctx context.Context, uid common.Hash) (*eas.Attestation, error) {
	if e.getErr != nil {
		return nil, e.getErr
	}
	att, ok := e.attestations[uid]
	if !ok {
		return nil, eas.ErrAttestationNotFound
	}
	return att, nil
}

func (e *fakeEAS) GetDomainSeparator(ctx context.Context) (common.Hash, error) {
	return e.separator, nil
}

func (e *fakeEAS) GetAttestTypeHash(ctx context.Context) (common.Hash, error) {
	return e.typeHash, nil
}

func (e *fakeEAS) Version(ctx context.Context) (string, error) {
	return e.version, nil
}

func (e *fakeEAS) GetNonce(ctx context.Context, account common.Address) (*big.Int, error) {
	return e.nonce, nil
}

func (e *fakeEAS) newUID(tx *types.Transaction) {
	e.uids[tx.Hash()] = common.BigToHash(new(big.Int).SetUint64(tx.Nonce() + 0xa000))
}

func (e *fakeEAS) Attest(opts *bind.TransactOpts, req eas.AttestationRequest) (*types.Transaction, error) {
	e.attests = append(e.attests, req)
	e.lastOpts = opts
	tx := e.txs.next(easAddress, opts.Value)
	e.newUID(tx)
	return tx, nil
}

func (e *fakeEAS) AttestByDelegation(opts *bind.TransactOpts, req eas.DelegatedAttestationRequest) (*types.Transaction, error) {
	e.delegated = append(e.delegated, req)
	e.lastOpts = opts
	tx := e.txs.next(easAddress, opts.Value)
	e.newUID(tx)
	return tx, nil
}

func (e *fakeEAS) AttestedUID(receipt *types.Receipt) (common.Hash, error) {
	uid, ok := e.uids[receipt.TxHash]
	if !ok {
		return common.Hash{}, fmt.Errorf("no Attested event")
	}
	return uid, nil
}

type fakeHub struct {
	txs       *txSource
	profiles  map[common.Address]bool
	published []eas.PublishRequest
	sigs      []eas.Signature
	uids      map[common.Hash]common.Hash
}

func newFakeHub(txs *txSource) *fakeHub {
	return &fakeHub{txs: txs, profiles: map[common.Address]bool{}, uids: map[common.Hash]common.Hash{}}
}

func (h *fakeHub) HasProfile(ctx context.Context, account common.Address) (bool, error) {
	return h.profiles[account], nil
}

func (h *fakeHub) Publish(opts *bind.TransactOpts, sig eas.Signature, req eas.PublishRequest) (*types.Transaction, error) {
	h.published = append(h.published, req)
	h.sigs = append(h.sigs, sig)
	tx := h.txs.next(common.HexToAddress("0xb0"), opts.Value)
	h.uids[tx.Hash()] = common.BigToHash(new(big.Int).SetUint64(tx.Nonce() + 0xb000))
	return tx, nil
}

func (h *fakeHub) PublishedUID(receipt *types.Receipt) (common.Hash, error) {
	return h.uids[receipt.TxHash], nil
}

type fakeMiner struct {
	reverted bool
	mined    int
}

func (m *fakeMiner) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mined++
	status := types.ReceiptStatusSuccessful
	if m.reverted {
		status = types.ReceiptStatusFailed
		return &types.Receipt{Status: status, TxHash: tx.Hash()}, fmt.Errorf("transaction %s reverted", tx.Hash().Hex())
	}
	return &types.Receipt{Status: status, TxHash: tx.Hash(), BlockNumber: big.NewInt(1)}, nil
}

type memLog struct {
	records []record.Record
}

func (l *memLog) Append(ctx context.Context, rec record.Record) error {
	l.records = append(l.records, rec)
	return nil
}
