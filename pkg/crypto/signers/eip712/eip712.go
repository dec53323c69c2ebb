package eip712

import (
	"context"
	gocrypto "crypto"
	"crypto/ecdsa"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"olas.info/attest/pkg/crypto/ethaddr"
	"olas.info/attest/pkg/errors"
	"olas.info/attest/pkg/log"
)

// Signer implemented with EIP712. Backed by either a geth keystore or a raw
// private key.
type EIP712Signer struct {
	KeyStore *keystore.KeyStore
	Account  *accounts.Account
	Opts     *EIP712SignerOptions
	key      *ecdsa.PrivateKey
}

type EIP712SignerOptions struct {
	// hex, with or without 0x; takes precedence over the keystore
	PrivateKey          string
	EthKeystorePassword string
	EthKeystorePath     string
	EthAccountAddr      string
}

func MakeEIP712Signer(ctx context.Context, opts *EIP712SignerOptions) (*EIP712Signer, error) {
	signer := &EIP712Signer{
		Opts: opts,
	}
	if opts.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(opts.PrivateKey, "0x"))
		if err != nil {
			return nil, errors.Validation("invalid private key", err)
		}
		signer.key = key
		log.Debug(ctx, "using private key signer", "address", signer.Hex())
		return signer, nil
	}
	if opts.EthKeystorePath == "" {
		return nil, errors.Validation("no signing key configured; set --private-key or --eth-keystore-path", nil)
	}
	err := signer.InitKeystore(ctx)
	if err != nil {
		return nil, err
	}
	log.Log(ctx, "successfully initalized keystore", "keystorePath", opts.EthKeystorePath, "address", signer.Hex())
	return signer, nil
}

func (signer *EIP712Signer) InitKeystore(ctx context.Context) error {
	keyStore := keystore.NewKeyStore(signer.Opts.EthKeystorePath, keystore.StandardScryptN, keystore.StandardScryptP)

	var account *accounts.Account
	if signer.Opts.EthAccountAddr != "" {
		addr, err := ethaddr.Parse(signer.Opts.EthAccountAddr)
		if err != nil {
			return errors.Validation("invalid --eth-account-addr", err)
		}
		for _, a := range keyStore.Accounts() {
			if a.Address == addr {
				a := a
				account = &a
			}
		}
		if account == nil {
			return fmt.Errorf("keystore does not contain account %s", signer.Opts.EthAccountAddr)
		}
	} else {
		count := len(keyStore.Accounts())
		if count > 1 {
			return fmt.Errorf("keystore contains more than one account; specify which one to use with --eth-account-addr")
		}
		if count == 1 {
			account = &keyStore.Accounts()[0]
		}
		if count == 0 {
			acct, err := keyStore.NewAccount(signer.Opts.EthKeystorePassword)
			if err != nil {
				return fmt.Errorf("unable to generate new ethereum account: %w", err)
			}
			account = &acct
			log.Log(ctx, "generated new ethereum key", "addr", acct.Address.Hex())
		}
	}
	err := keyStore.Unlock(*account, signer.Opts.EthKeystorePassword)
	if err != nil {
		return fmt.Errorf("error unlocking keystore account %s: %w", account.Address.Hex(), err)
	}
	signer.Account = account
	signer.KeyStore = keyStore
	return nil
}

func (signer *EIP712Signer) Address() common.Address {
	if signer.key != nil {
		return crypto.PubkeyToAddress(signer.key.PublicKey)
	}
	return signer.Account.Address
}

// return account address as a checksummed hex string
func (signer *EIP712Signer) Hex() string {
	return signer.Address().Hex()
}

// TransactOpts signs transactions for chainID with the same key.
func (signer *EIP712Signer) TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	var opts *bind.TransactOpts
	var err error
	if signer.key != nil {
		opts, err = bind.NewKeyedTransactorWithChainID(signer.key, chainID)
	} else {
		opts, err = bind.NewKeyStoreTransactorWithChainID(signer.KeyStore, *signer.Account, chainID)
	}
	if err != nil {
		return nil, fmt.Errorf("error creating transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

// Signature is an Ethereum [R || S || V] signature with V in {27, 28}.
type Signature struct {
	V uint8       `json:"v"`
	R common.Hash `json:"r"`
	S common.Hash `json:"s"`
}

func SignatureFromBytes(sig []byte) (*Signature, error) {
	if len(sig) != 65 {
		return nil, errors.Signature(fmt.Sprintf("expected 65-byte signature, got %d bytes", len(sig)), nil)
	}
	v := sig[64]
	if v == 0 || v == 1 {
		v += 27
	}
	return &Signature{
		V: v,
		R: common.BytesToHash(sig[:32]),
		S: common.BytesToHash(sig[32:64]),
	}, nil
}

func (s *Signature) Bytes() []byte {
	bs := make([]byte, 0, 65)
	bs = append(bs, s.R.Bytes()...)
	bs = append(bs, s.S.Bytes()...)
	return append(bs, s.V)
}

func (s *Signature) Hex() string {
	return hexutil.Encode(s.Bytes())
}

// DomainSeparator is hashStruct(EIP712Domain) for td's domain.
func DomainSeparator(td apitypes.TypedData) (common.Hash, error) {
	sep, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return common.Hash{}, fmt.Errorf("error hashing EIP712Domain: %w", err)
	}
	return common.BytesToHash(sep), nil
}

// TypedDataDigest is keccak256(0x1901 || domainSeparator || hashStruct(message)).
func TypedDataDigest(td apitypes.TypedData) (common.Hash, error) {
	domainSeparator, err := DomainSeparator(td)
	if err != nil {
		return common.Hash{}, err
	}
	typedDataHash, err := td.HashStruct(td.PrimaryType, td.Message)
	if err != nil {
		return common.Hash{}, fmt.Errorf("error hashing %s: %w", td.PrimaryType, err)
	}
	rawData := []byte(fmt.Sprintf("\x19\x01%s%s", string(domainSeparator.Bytes()), string(typedDataHash)))
	return crypto.Keccak256Hash(rawData), nil
}

func (signer *EIP712Signer) SignTypedData(td apitypes.TypedData) (*Signature, error) {
	digest, err := TypedDataDigest(td)
	if err != nil {
		return nil, errors.Validation("error building typed data", err)
	}
	sig, err := signer.EthSign(digest.Bytes())
	if err != nil {
		return nil, err
	}
	return SignatureFromBytes(sig)
}

// RecoverTypedData returns the address that produced sig over td.
func RecoverTypedData(td apitypes.TypedData, sig *Signature) (common.Address, error) {
	if sig.V != 27 && sig.V != 28 {
		return common.Address{}, errors.Signature(fmt.Sprintf("invalid signature v value %d", sig.V), nil)
	}
	digest, err := TypedDataDigest(td)
	if err != nil {
		return common.Address{}, errors.Validation("error building typed data", err)
	}
	raw := sig.Bytes()
	raw[64] -= 27
	uncompressed, err := crypto.Ecrecover(digest.Bytes(), raw)
	if err != nil {
		return common.Address{}, errors.Signature("error recovering signer", err)
	}
	pub, err := ethaddr.FromUncompressed(uncompressed)
	if err != nil {
		return common.Address{}, errors.Signature("error recovering signer", err)
	}
	return pub.Address(), nil
}

// VerifyTypedData fails unless sig over td was produced by expected.
func VerifyTypedData(td apitypes.TypedData, sig *Signature, expected common.Address) error {
	recovered, err := RecoverTypedData(td, sig)
	if err != nil {
		return err
	}
	actual, want := ethaddr.FromAddress(recovered), ethaddr.FromAddress(expected)
	if !actual.Equals(want) {
		return errors.Signature(fmt.Sprintf("signature does not match signer specified=%s actual=%s", want, actual), nil)
	}
	return nil
}

func (signer *EIP712Signer) Sign(rand io.Reader, digest []byte, opts gocrypto.SignerOpts) (signature []byte, err error) {
	sig, err := signer.EthSign(digest)
	if err != nil {
		return nil, err
	}

	// strip off the ethereum-style recovery bit for use elesewhere in the world
	return sig[:64], nil
}

// sign with an ethereum-style recovery bit
func (signer *EIP712Signer) EthSign(digest []byte) (signature []byte, err error) {
	var sig []byte
	if signer.key != nil {
		sig, err = crypto.Sign(digest, signer.key)
	} else {
		sig, err = signer.KeyStore.SignHash(*signer.Account, digest)
	}
	if err != nil {
		return nil, errors.Signature("error signing hash", err)
	}
	// sig is in the [R || S || V] format where V is 0 or 1
	// Convert the V param to 27 or 28
	v := sig[64]
	if v == byte(0) || v == byte(1) {
		v += 27
	}
	sig = append(sig[:64], v)
	return sig, nil
}

func (signer *EIP712Signer) Public() gocrypto.PublicKey {
	key, err := signer.public()
	if err != nil {
		panic(err)
	}
	return key
}

// public helper that returns an error instead of panic
func (signer *EIP712Signer) public() (gocrypto.PublicKey, error) {
	if signer.key != nil {
		return &signer.key.PublicKey, nil
	}
	nullhash := make([]byte, 32)
	sig, err := signer.EthSign(nullhash)
	if err != nil {
		return nil, fmt.Errorf("error getting public key from signer.Sign: %w", err)
	}
	sig[64] -= 27
	rpk, err := crypto.SigToPub(nullhash, sig)
	if err != nil {
		return nil, fmt.Errorf("error getting public key from crypto.SigToPub: %w", err)
	}
	return rpk, nil
}
