package eip712test

import (
	"context"
	"os"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"olas.info/attest/pkg/crypto/signers/eip712"
)

// package for setting up a test wallet

const Password = "olasolasolas"

// creates a keystore holding one fresh key, cleaned up after the function ends
func WithTestSigner(fn func(*eip712.EIP712Signer)) {
	dname, err := os.MkdirTemp("", "olas-keystore-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dname)
	key, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	ks := keystore.NewKeyStore(dname, keystore.LightScryptN, keystore.LightScryptP)
	acct, err := ks.ImportECDSA(key, Password)
	if err != nil {
		panic(err)
	}
	signer, err := eip712.MakeEIP712Signer(context.Background(), &eip712.EIP712SignerOptions{
		EthKeystorePassword: Password,
		EthKeystorePath:     dname,
		EthAccountAddr:      acct.Address.Hex(),
	})
	if err != nil {
		panic(err)
	}
	fn(signer)
}

// PrivateKeySigner skips the keystore entirely.
func PrivateKeySigner() *eip712.EIP712Signer {
	key, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	signer, err := eip712.MakeEIP712Signer(context.Background(), &eip712.EIP712SignerOptions{
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
	})
	if err != nil {
		panic(err)
	}
	return signer
}
