package ethaddr

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var Zero = common.Address{}

type Pub interface {
	Address() common.Address
	String() string
	Equals(Pub) bool
}

type pub struct {
	addr common.Address
}

// Parse reads an account address the same way ethers' isAddress does:
// 0x-prefixed, 20 bytes, and if the string is mixed case the EIP-55 checksum
// must match.
func Parse(str string) (common.Address, error) {
	if !strings.HasPrefix(str, "0x") && !strings.HasPrefix(str, "0X") {
		return Zero, fmt.Errorf("invalid address %q: missing 0x prefix", str)
	}
	if !common.IsHexAddress(str) {
		return Zero, fmt.Errorf("invalid address %q: expected 20 hex-encoded bytes", str)
	}
	bs, err := hexutil.Decode("0x" + str[2:])
	if err != nil {
		return Zero, fmt.Errorf("invalid address %q: %w", str, err)
	}
	addr := common.BytesToAddress(bs)
	body := str[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) {
		if addr.Hex()[2:] != body {
			return Zero, fmt.Errorf("invalid address %q: bad EIP-55 checksum, expected %s", str, addr.Hex())
		}
	}
	return addr, nil
}

func FromPublicKey(key *ecdsa.PublicKey) (Pub, error) {
	addr := crypto.PubkeyToAddress(*key)
	return &pub{addr}, nil
}

func FromPoints(x, y *big.Int) (Pub, error) {
	key := ecdsa.PublicKey{Curve: secp256k1.S256(), X: x, Y: y}
	return FromPublicKey(&key)
}

// FromUncompressed takes the 65-byte 0x04||X||Y form returned by ecrecover.
func FromUncompressed(bs []byte) (Pub, error) {
	if len(bs) != 65 || bs[0] != 4 {
		return nil, fmt.Errorf("expected 65-byte uncompressed public key, got %d bytes", len(bs))
	}
	x := new(big.Int).SetBytes(bs[1:33])
	y := new(big.Int).SetBytes(bs[33:])
	return FromPoints(x, y)
}

func FromAddress(addr common.Address) Pub {
	return &pub{addr}
}

func (p *pub) Address() common.Address {
	return p.addr
}

// checksummed hex
func (p *pub) String() string {
	return p.addr.Hex()
}

func (p *pub) Equals(other Pub) bool {
	addr1 := p.Address()
	addr2 := other.Address()
	return addr1.Cmp(addr2) == 0
}
