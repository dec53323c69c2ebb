package signers

import (
	gocrypto "crypto"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func AddrFromSigner(signer gocrypto.Signer) (common.Address, error) {
	pub := signer.Public()
	ecpub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return common.Address{}, fmt.Errorf("keypair is not an ecdsa key")
	}
	return crypto.PubkeyToAddress(*ecpub), nil
}

func HexAddrFromSigner(signer gocrypto.Signer) (string, error) {
	addr, err := AddrFromSigner(signer)
	if err != nil {
		return "", err
	}
	return addr.Hex(), nil
}
