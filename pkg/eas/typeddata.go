package eas

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"olas.info/attest/pkg/crypto/signers/eip712"
	"olas.info/attest/pkg/schema"
)

const (
	DomainName         = "EAS"
	OffchainDomainName = "EAS Attestation"
	OffchainVersion    = 1
	AttestPrimaryType  = "Attest"
)

var domainType = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

// Domain scopes a signature to one EAS deployment.
type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

func (d Domain) typed() apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              d.Name,
		Version:           d.Version,
		ChainId:           (*math.HexOrDecimal256)(bigOrZero(d.ChainID)),
		VerifyingContract: d.VerifyingContract.Hex(),
	}
}

// contract versions before 1.2 have no value/deadline, before 1.3 no attester
type attestLayout int

const (
	layoutLegacy attestLayout = iota
	layoutValueDeadline
	layoutAttester
)

func parseVersion(v string) (major, minor int, err error) {
	parts := strings.SplitN(strings.TrimPrefix(v, "v"), ".", 3)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("unrecognized EAS version %q", v)
	}
	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("unrecognized EAS version %q: %w", v, err)
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("unrecognized EAS version %q: %w", v, err)
	}
	return major, minor, nil
}

func layoutFor(version string) (attestLayout, error) {
	major, minor, err := parseVersion(version)
	if err != nil {
		return 0, err
	}
	switch {
	case major > 1 || (major == 1 && minor >= 3):
		return layoutAttester, nil
	case major == 1 && minor == 2:
		return layoutValueDeadline, nil
	}
	return layoutLegacy, nil
}

func attestFields(layout attestLayout) []apitypes.Type {
	fields := []apitypes.Type{}
	if layout == layoutAttester {
		fields = append(fields, apitypes.Type{Name: "attester", Type: "address"})
	}
	fields = append(fields,
		apitypes.Type{Name: "schema", Type: "bytes32"},
		apitypes.Type{Name: "recipient", Type: "address"},
		apitypes.Type{Name: "expirationTime", Type: "uint64"},
		apitypes.Type{Name: "revocable", Type: "bool"},
		apitypes.Type{Name: "refUID", Type: "bytes32"},
		apitypes.Type{Name: "data", Type: "bytes"},
	)
	if layout == layoutLegacy {
		return append(fields, apitypes.Type{Name: "nonce", Type: "uint256"})
	}
	return append(fields,
		apitypes.Type{Name: "value", Type: "uint256"},
		apitypes.Type{Name: "nonce", Type: "uint256"},
		apitypes.Type{Name: "deadline", Type: "uint64"},
	)
}

// DelegatedRequest is the message an attester signs so that someone else can
// submit the attestation for them.
type DelegatedRequest struct {
	Attester       common.Address
	Schema         common.Hash
	Recipient      common.Address
	ExpirationTime uint64
	Revocable      bool
	RefUID         common.Hash
	Data           []byte
	Value          *big.Int
	Nonce          *big.Int
	Deadline       uint64
}

func bigOrZero(b *big.Int) *big.Int {
	if b == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(b)
}

// DelegatedAttestTypedData builds the typed data EAS verifies in
// attestByDelegation. d.Version selects which Attest layout applies.
func DelegatedAttestTypedData(d Domain, req DelegatedRequest) (apitypes.TypedData, error) {
	layout, err := layoutFor(d.Version)
	if err != nil {
		return apitypes.TypedData{}, err
	}
	msg := apitypes.TypedDataMessage{
		"schema":         req.Schema.Hex(),
		"recipient":      req.Recipient.Hex(),
		"expirationTime": new(big.Int).SetUint64(req.ExpirationTime),
		"revocable":      req.Revocable,
		"refUID":         req.RefUID.Hex(),
		"data":           hexutil.Encode(req.Data),
		"nonce":          bigOrZero(req.Nonce),
	}
	if layout == layoutAttester {
		msg["attester"] = req.Attester.Hex()
	}
	if layout != layoutLegacy {
		msg["value"] = bigOrZero(req.Value)
		msg["deadline"] = new(big.Int).SetUint64(req.Deadline)
	}
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain":    domainType,
			AttestPrimaryType: attestFields(layout),
		},
		PrimaryType: AttestPrimaryType,
		Domain:      d.typed(),
		Message:     msg,
	}, nil
}

// AttestTypeHash is what getAttestTypeHash should return for a contract
// reporting version.
func AttestTypeHash(version string) (common.Hash, error) {
	layout, err := layoutFor(version)
	if err != nil {
		return common.Hash{}, err
	}
	td := apitypes.TypedData{Types: apitypes.Types{AttestPrimaryType: attestFields(layout)}}
	return common.BytesToHash(td.TypeHash(AttestPrimaryType)), nil
}

func DomainSeparator(d Domain) (common.Hash, error) {
	return eip712.DomainSeparator(apitypes.TypedData{
		Types:  apitypes.Types{"EIP712Domain": domainType},
		Domain: d.typed(),
	})
}

var offchainAttestFields = []apitypes.Type{
	{Name: "version", Type: "uint16"},
	{Name: "schema", Type: "bytes32"},
	{Name: "recipient", Type: "address"},
	{Name: "time", Type: "uint64"},
	{Name: "expirationTime", Type: "uint64"},
	{Name: "revocable", Type: "bool"},
	{Name: "refUID", Type: "bytes32"},
	{Name: "data", Type: "bytes"},
}

// OffchainMessage is an attestation that lives only as a signed object.
type OffchainMessage struct {
	Version        uint16         `json:"version"`
	Schema         common.Hash    `json:"schema"`
	Recipient      common.Address `json:"recipient"`
	Time           uint64         `json:"time"`
	ExpirationTime uint64         `json:"expirationTime"`
	Revocable      bool           `json:"revocable"`
	RefUID         common.Hash    `json:"refUID"`
	Data           hexutil.Bytes  `json:"data"`
	// carried along but not covered by the version 1 signature
	Nonce uint64 `json:"nonce"`
}

// OffchainAttestation is the signed object handed out and logged.
type OffchainAttestation struct {
	Version     uint16                   `json:"version"`
	UID         common.Hash              `json:"uid"`
	Domain      apitypes.TypedDataDomain `json:"domain"`
	PrimaryType string                   `json:"primaryType"`
	Types       apitypes.Types           `json:"types"`
	Message     OffchainMessage          `json:"message"`
	Signature   eip712.Signature         `json:"signature"`
}

func OffchainAttestTypedData(d Domain, msg OffchainMessage) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain":    domainType,
			AttestPrimaryType: offchainAttestFields,
		},
		PrimaryType: AttestPrimaryType,
		Domain:      d.typed(),
		Message: apitypes.TypedDataMessage{
			"version":        big.NewInt(int64(msg.Version)),
			"schema":         msg.Schema.Hex(),
			"recipient":      msg.Recipient.Hex(),
			"time":           new(big.Int).SetUint64(msg.Time),
			"expirationTime": new(big.Int).SetUint64(msg.ExpirationTime),
			"revocable":      msg.Revocable,
			"refUID":         msg.RefUID.Hex(),
			"data":           hexutil.Encode(msg.Data),
		},
	}
}

// OffchainUID identifies a version 1 off-chain attestation.
func OffchainUID(msg OffchainMessage) common.Hash {
	var p schema.Packed
	p.Uint16(msg.Version).
		Bytes32(msg.Schema).
		Address(msg.Recipient).
		Address(common.Address{}).
		Uint64(msg.Time).
		Uint64(msg.ExpirationTime).
		Bool(msg.Revocable).
		Bytes32(msg.RefUID).
		DynamicBytes(msg.Data).
		Uint32(0)
	return crypto.Keccak256Hash(p.Bytes())
}

// NewOffchainAttestation wraps a signed message in the shape the EAS SDK emits.
func NewOffchainAttestation(d Domain, msg OffchainMessage, sig *eip712.Signature) *OffchainAttestation {
	return &OffchainAttestation{
		Version:     msg.Version,
		UID:         OffchainUID(msg),
		Domain:      d.typed(),
		PrimaryType: AttestPrimaryType,
		Types:       apitypes.Types{AttestPrimaryType: offchainAttestFields},
		Message:     msg,
		Signature:   *sig,
	}
}

// ContractSignature converts to the struct the contracts take.
func ContractSignature(sig *eip712.Signature) Signature {
	return Signature{V: sig.V, R: sig.R, S: sig.S}
}
