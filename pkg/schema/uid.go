package schema

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"olas.info/attest/pkg/crypto/ethaddr"
	"olas.info/attest/pkg/errors"
)

var ZeroAddress = "0x0000000000000000000000000000000000000000"

// ComputeUID derives the schema UID the registry assigns:
// keccak256(abi.encodePacked(schema, resolver, revocable)).
func ComputeUID(schema string, resolver string, revocable bool) (common.Hash, error) {
	addr, err := ethaddr.Parse(resolver)
	if err != nil {
		return common.Hash{}, errors.Validation("invalid resolver address", err)
	}
	return UID(schema, addr, revocable), nil
}

// UID is ComputeUID for an already-validated resolver.
func UID(schema string, resolver common.Address, revocable bool) common.Hash {
	var p Packed
	p.Text(schema).Address(resolver).Bool(revocable)
	return crypto.Keccak256Hash(p.Bytes())
}

// Packed reproduces Solidity's abi.encodePacked for the scalar types we
// hash: no padding, no length prefixes.
type Packed struct {
	buf []byte
}

func (p *Packed) Text(s string) *Packed {
	p.buf = append(p.buf, []byte(s)...)
	return p
}

func (p *Packed) Bytes32(h common.Hash) *Packed {
	p.buf = append(p.buf, h.Bytes()...)
	return p
}

func (p *Packed) DynamicBytes(bs []byte) *Packed {
	p.buf = append(p.buf, bs...)
	return p
}

func (p *Packed) Address(a common.Address) *Packed {
	p.buf = append(p.buf, a.Bytes()...)
	return p
}

func (p *Packed) Bool(b bool) *Packed {
	if b {
		p.buf = append(p.buf, 1)
	} else {
		p.buf = append(p.buf, 0)
	}
	return p
}

func (p *Packed) Uint16(v uint16) *Packed {
	p.buf = binary.BigEndian.AppendUint16(p.buf, v)
	return p
}

func (p *Packed) Uint32(v uint32) *Packed {
	p.buf = binary.BigEndian.AppendUint32(p.buf, v)
	return p
}

func (p *Packed) Uint64(v uint64) *Packed {
	p.buf = binary.BigEndian.AppendUint64(p.buf, v)
	return p
}

func (p *Packed) Bytes() []byte {
	return p.buf
}
