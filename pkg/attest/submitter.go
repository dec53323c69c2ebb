package attest

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"olas.info/attest/pkg/crypto/signers/eip712"
	"olas.info/attest/pkg/eas"
	"olas.info/attest/pkg/errors"
	"olas.info/attest/pkg/log"
	"olas.info/attest/pkg/record"
	"olas.info/attest/pkg/schema"
)

// Request describes one attestation against an already registered schema.
type Request struct {
	SchemaUID      common.Hash
	Fields         []schema.Field
	Recipient      common.Address
	ExpirationTime uint64
	Revocable      bool
	RefUID         common.Hash
	// wei forwarded to the schema resolver
	Value *big.Int
	// delegated only; 0 means no deadline
	Deadline uint64
}

// ArticleRequest is a delegated attestation published through OlasHub.
type ArticleRequest struct {
	Request
	Title         string
	ContentURL    string
	MediaURL      string
	RoyaltyAmount *big.Int
	MarketType    uint8
	CitationUIDs  []common.Hash
}

type Result struct {
	SchemaUID      common.Hash
	AttestationUID common.Hash
	TxHash         common.Hash
	Offchain       *eas.OffchainAttestation
}

type Submitter struct {
	EAS      Attester
	Hub      Hub
	Registry Registry
	Miner    Miner
	// the attester
	Signer Signer
	// sends delegated transactions; the attester when nil
	Relayer     Signer
	ChainID     *big.Int
	Network     string
	Log         record.Log
	OffchainLog record.Log
	Now         func() time.Time
}

func (s *Submitter) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Submitter) relayer() Signer {
	if s.Relayer == nil {
		return s.Signer
	}
	return s.Relayer
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// prepare checks the schema is registered and encodes the fields against
// it. Nothing has been signed or sent when it returns an error.
func (s *Submitter) prepare(ctx context.Context, req Request) ([]byte, error) {
	rec, err := s.Registry.GetSchema(ctx, req.SchemaUID)
	if errors.IsNotFound(err) {
		return nil, errors.NotFound(fmt.Sprintf("schema %s does not exist", req.SchemaUID.Hex()), err)
	}
	if err != nil {
		return nil, err
	}
	if req.Revocable && !rec.Revocable {
		return nil, errors.Validation(fmt.Sprintf("schema %s is not revocable", req.SchemaUID.Hex()), nil)
	}
	def, err := schema.Parse(rec.Schema)
	if err != nil {
		return nil, err
	}
	payload, err := schema.BuildPayload(def, req.Fields)
	if err != nil {
		return nil, err
	}
	log.Debug(ctx, "encoded attestation data", "schema", rec.Schema, "bytes", len(payload))
	return payload, nil
}

func (s *Submitter) requestData(req Request, payload []byte) eas.AttestationRequestData {
	return eas.AttestationRequestData{
		Recipient:      req.Recipient,
		ExpirationTime: req.ExpirationTime,
		Revocable:      req.Revocable,
		RefUID:         req.RefUID,
		Data:           payload,
		Value:          valueOrZero(req.Value),
	}
}

func (s *Submitter) record(ctx context.Context, kind record.Kind, res *Result) error {
	err := s.Log.Append(ctx, record.Record{
		Kind:           kind,
		Network:        s.Network,
		SchemaUID:      res.SchemaUID,
		AttestationUID: res.AttestationUID,
		TxHash:         res.TxHash,
		CreatedAt:      s.now(),
	})
	if err != nil {
		return fmt.Errorf("attestation %s created but not recorded: %w", res.AttestationUID.Hex(), err)
	}
	return nil
}

// confirm waits for tx and pulls the attestation UID out of its receipt.
func (s *Submitter) confirm(ctx context.Context, tx *types.Transaction, uidOf func(*types.Receipt) (common.Hash, error)) (common.Hash, error) {
	receipt, err := s.Miner.WaitMined(ctx, tx)
	if err != nil {
		return common.Hash{}, err
	}
	return uidOf(receipt)
}

// Onchain submits the attestation directly from the signer's account.
func (s *Submitter) Onchain(ctx context.Context, req Request) (*Result, error) {
	ctx = log.WithLogValues(ctx, "mode", "onchain", "schemaUID", req.SchemaUID.Hex())
	payload, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	opts, err := s.Signer.TransactOpts(ctx, s.ChainID)
	if err != nil {
		return nil, err
	}
	opts.Value = valueOrZero(req.Value)
	log.Log(ctx, "creating onchain attestation", "recipient", req.Recipient.Hex())
	tx, err := s.EAS.Attest(opts, eas.AttestationRequest{
		Schema: req.SchemaUID,
		Data:   s.requestData(req, payload),
	})
	if err != nil {
		return nil, err
	}
	uid, err := s.confirm(ctx, tx, s.EAS.AttestedUID)
	if err != nil {
		return nil, err
	}
	res := &Result{SchemaUID: req.SchemaUID, AttestationUID: uid, TxHash: tx.Hash()}
	if err := s.record(ctx, record.KindOnchain, res); err != nil {
		return nil, err
	}
	log.Log(ctx, "onchain attestation created", "attestationUID", uid.Hex())
	return res, nil
}

// Offchain signs a version 1 off-chain attestation. Nothing is sent to the
// chain beyond the reads needed to build the domain.
func (s *Submitter) Offchain(ctx context.Context, req Request) (*Result, error) {
	ctx = log.WithLogValues(ctx, "mode", "offchain", "schemaUID", req.SchemaUID.Hex())
	payload, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	version, err := s.EAS.Version(ctx)
	if err != nil {
		return nil, err
	}
	domain := eas.Domain{
		Name:              eas.OffchainDomainName,
		Version:           version,
		ChainID:           s.ChainID,
		VerifyingContract: s.EAS.Address(),
	}
	msg := eas.OffchainMessage{
		Version:        eas.OffchainVersion,
		Schema:         req.SchemaUID,
		Recipient:      req.Recipient,
		Time:           uint64(s.now().Unix()),
		ExpirationTime: req.ExpirationTime,
		Revocable:      req.Revocable,
		RefUID:         req.RefUID,
		Data:           payload,
	}
	td := eas.OffchainAttestTypedData(domain, msg)
	sig, err := s.Signer.SignTypedData(td)
	if err != nil {
		return nil, err
	}
	if err := eip712.VerifyTypedData(td, sig, s.Signer.Address()); err != nil {
		return nil, err
	}
	att := eas.NewOffchainAttestation(domain, msg, sig)
	res := &Result{SchemaUID: req.SchemaUID, AttestationUID: att.UID, Offchain: att}
	err = s.OffchainLog.Append(ctx, record.Record{
		Kind:           record.KindOffchain,
		Network:        s.Network,
		SchemaUID:      req.SchemaUID,
		AttestationUID: att.UID,
		Signed:         att,
		CreatedAt:      s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("offchain attestation %s signed but not recorded: %w", att.UID.Hex(), err)
	}
	log.Log(ctx, "offchain attestation signed", "attestationUID", att.UID.Hex())
	return res, nil
}

// signDelegated produces the attester's signature over the EAS Attest type
// after checking that our typed data matches what the contract will hash.
func (s *Submitter) signDelegated(ctx context.Context, req Request, payload []byte) (*eip712.Signature, error) {
	attester := s.Signer.Address()
	version, err := s.EAS.Version(ctx)
	if err != nil {
		return nil, err
	}
	nonce, err := s.EAS.GetNonce(ctx, attester)
	if err != nil {
		return nil, err
	}
	remoteSeparator, err := s.EAS.GetDomainSeparator(ctx)
	if err != nil {
		return nil, err
	}
	remoteTypeHash, err := s.EAS.GetAttestTypeHash(ctx)
	if err != nil {
		return nil, err
	}
	log.Log(ctx, "EAS contract", "version", version, "domainSeparator", remoteSeparator.Hex(), "attestTypeHash", remoteTypeHash.Hex(), "nonce", nonce)

	domain := eas.Domain{
		Name:              eas.DomainName,
		Version:           version,
		ChainID:           s.ChainID,
		VerifyingContract: s.EAS.Address(),
	}
	localSeparator, err := eas.DomainSeparator(domain)
	if err != nil {
		return nil, err
	}
	if localSeparator != remoteSeparator {
		return nil, errors.Signature(fmt.Sprintf("domain separator mismatch: contract=%s local=%s", remoteSeparator.Hex(), localSeparator.Hex()), nil)
	}
	localTypeHash, err := eas.AttestTypeHash(version)
	if err != nil {
		return nil, errors.Signature("unsupported EAS version", err)
	}
	if localTypeHash != remoteTypeHash {
		return nil, errors.Signature(fmt.Sprintf("attest type hash mismatch: contract=%s local=%s", remoteTypeHash.Hex(), localTypeHash.Hex()), nil)
	}

	td, err := eas.DelegatedAttestTypedData(domain, eas.DelegatedRequest{
		Attester:       attester,
		Schema:         req.SchemaUID,
		Recipient:      req.Recipient,
		ExpirationTime: req.ExpirationTime,
		Revocable:      req.Revocable,
		RefUID:         req.RefUID,
		Data:           payload,
		Value:          req.Value,
		Nonce:          nonce,
		Deadline:       req.Deadline,
	})
	if err != nil {
		return nil, errors.Signature("error building delegated attestation", err)
	}
	sig, err := s.Signer.SignTypedData(td)
	if err != nil {
		return nil, err
	}
	if err := eip712.VerifyTypedData(td, sig, attester); err != nil {
		return nil, err
	}
	log.Log(ctx, "delegated attestation signed", "attester", attester.Hex(), "signature", sig.Hex())
	return sig, nil
}

func (s *Submitter) relayerOpts(ctx context.Context, value *big.Int) (*bind.TransactOpts, error) {
	opts, err := s.relayer().TransactOpts(ctx, s.ChainID)
	if err != nil {
		return nil, err
	}
	opts.Value = valueOrZero(value)
	return opts, nil
}

// Delegated has the signer sign the attestation and the relayer submit it
// through attestByDelegation.
func (s *Submitter) Delegated(ctx context.Context, req Request) (*Result, error) {
	ctx = log.WithLogValues(ctx, "mode", "delegated", "schemaUID", req.SchemaUID.Hex())
	payload, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	sig, err := s.signDelegated(ctx, req, payload)
	if err != nil {
		return nil, err
	}
	opts, err := s.relayerOpts(ctx, req.Value)
	if err != nil {
		return nil, err
	}
	log.Log(ctx, "sending delegated attestation", "relayer", opts.From.Hex())
	tx, err := s.EAS.AttestByDelegation(opts, eas.DelegatedAttestationRequest{
		Schema:    req.SchemaUID,
		Data:      s.requestData(req, payload),
		Signature: eas.ContractSignature(sig),
		Attester:  s.Signer.Address(),
		Deadline:  req.Deadline,
	})
	if err != nil {
		return nil, err
	}
	uid, err := s.confirm(ctx, tx, s.EAS.AttestedUID)
	if err != nil {
		return nil, err
	}
	res := &Result{SchemaUID: req.SchemaUID, AttestationUID: uid, TxHash: tx.Hash()}
	if err := s.record(ctx, record.KindDelegated, res); err != nil {
		return nil, err
	}
	log.Log(ctx, "delegated attestation created", "attestationUID", uid.Hex())
	return res, nil
}

// OlasHub publishes an article. The signer must already have an OlasHub
// profile; without one nothing is signed or sent.
func (s *Submitter) OlasHub(ctx context.Context, req ArticleRequest) (*Result, error) {
	ctx = log.WithLogValues(ctx, "mode", "olashub", "schemaUID", req.SchemaUID.Hex())
	if s.Hub == nil {
		return nil, errors.Validation("no OlasHub address configured for this network", nil)
	}
	attester := s.Signer.Address()
	ok, err := s.Hub.HasProfile(ctx, attester)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Precondition(fmt.Sprintf("%s has no OlasHub profile", attester.Hex()), nil)
	}
	payload, err := s.prepare(ctx, req.Request)
	if err != nil {
		return nil, err
	}
	sig, err := s.signDelegated(ctx, req.Request, payload)
	if err != nil {
		return nil, err
	}
	opts, err := s.relayerOpts(ctx, req.Value)
	if err != nil {
		return nil, err
	}
	citations := make([][32]byte, len(req.CitationUIDs))
	for i, c := range req.CitationUIDs {
		citations[i] = c
	}
	log.Log(ctx, "publishing article", "title", req.Title, "relayer", opts.From.Hex())
	tx, err := s.Hub.Publish(opts, eas.ContractSignature(sig), eas.PublishRequest{
		Recipient:     req.Recipient,
		Title:         req.Title,
		ContentURL:    req.ContentURL,
		MediaURL:      req.MediaURL,
		StakeAmount:   valueOrZero(req.Value),
		RoyaltyAmount: valueOrZero(req.RoyaltyAmount),
		MarketType:    req.MarketType,
		CitationUIDs:  citations,
	})
	if err != nil {
		return nil, err
	}
	uid, err := s.confirm(ctx, tx, s.Hub.PublishedUID)
	if err != nil {
		return nil, err
	}
	res := &Result{SchemaUID: req.SchemaUID, AttestationUID: uid, TxHash: tx.Hash()}
	if err := s.record(ctx, record.KindOlasHub, res); err != nil {
		return nil, err
	}
	log.Log(ctx, "article published", "attestationUID", uid.Hex())
	return res, nil
}
