package eip712

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/require"

	"olas.info/attest/pkg/errors"
)

// the example from the EIP-712 document
func mailTypedData() apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Person": {
				{Name: "name", Type: "string"},
				{Name: "wallet", Type: "address"},
			},
			"Mail": {
				{Name: "from", Type: "Person"},
				{Name: "to", Type: "Person"},
				{Name: "contents", Type: "string"},
			},
		},
		PrimaryType: "Mail",
		Domain: apitypes.TypedDataDomain{
			Name:              "Ether Mail",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(1),
			VerifyingContract: "0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC",
		},
		Message: apitypes.TypedDataMessage{
			"from": map[string]any{
				"name":   "Cow",
				"wallet": "0xCD2a3d9F938E13CD947Ec05AbC7FE734Df8DD826",
			},
			"to": map[string]any{
				"name":   "Bob",
				"wallet": "0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB",
			},
			"contents": "Hello, Bob!",
		},
	}
}

func cowSigner(t *testing.T) *EIP712Signer {
	key := crypto.Keccak256([]byte("cow"))
	signer, err := MakeEIP712Signer(context.Background(), &EIP712SignerOptions{
		PrivateKey: hexutil.Encode(key),
	})
	require.NoError(t, err)
	return signer
}

func TestTypedDataDigest(t *testing.T) {
	td := mailTypedData()
	sep, err := DomainSeparator(td)
	require.NoError(t, err)
	require.Equal(t, "0xf2cee375fa42b42143804025fc449deafd50cc031ca257e0b194a650a912090f", sep.Hex())
	digest, err := TypedDataDigest(td)
	require.NoError(t, err)
	require.Equal(t, "0xbe609aee343fb3c4b28e1df9e632fca64fcfaede20f02e86244efddf30957bd2", digest.Hex())
}

func TestPrivateKeySigner(t *testing.T) {
	signer := cowSigner(t)
	require.Equal(t, "0xCD2a3d9F938E13CD947Ec05AbC7FE734Df8DD826", signer.Hex())

	_, err := MakeEIP712Signer(context.Background(), &EIP712SignerOptions{PrivateKey: "0x1234"})
	require.Equal(t, errors.KindValidation, errors.KindOf(err))

	_, err = MakeEIP712Signer(context.Background(), &EIP712SignerOptions{})
	require.Equal(t, errors.KindValidation, errors.KindOf(err))
}

func TestSignAndVerify(t *testing.T) {
	signer := cowSigner(t)
	td := mailTypedData()
	sig, err := signer.SignTypedData(td)
	require.NoError(t, err)
	require.Contains(t, []uint8{27, 28}, sig.V)
	require.NoError(t, VerifyTypedData(td, sig, signer.Address()))
	recovered, err := RecoverTypedData(td, sig)
	require.NoError(t, err)
	require.Equal(t, signer.Address(), recovered)
	err = VerifyTypedData(td, sig, common.HexToAddress("0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB"))
	require.Equal(t, errors.KindSignature, errors.KindOf(err))

	roundTrip, err := SignatureFromBytes(sig.Bytes())
	require.NoError(t, err)
	require.Equal(t, sig, roundTrip)
	require.Len(t, hexutil.MustDecode(sig.Hex()), 65)
}

func TestVerifyRejectsTampering(t *testing.T) {
	signer := cowSigner(t)
	td := mailTypedData()
	sig, err := signer.SignTypedData(td)
	require.NoError(t, err)

	flip := func(h common.Hash) common.Hash {
		h[31] ^= 0x01
		return h
	}
	tests := []struct {
		name string
		sig  Signature
	}{
		{"r", Signature{V: sig.V, R: flip(sig.R), S: sig.S}},
		{"s", Signature{V: sig.V, R: sig.R, S: flip(sig.S)}},
		{"v flipped", Signature{V: 55 - sig.V, R: sig.R, S: sig.S}},
		{"v malformed", Signature{V: 3, R: sig.R, S: sig.S}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyTypedData(td, &tt.sig, signer.Address())
			require.Error(t, err)
			require.Equal(t, errors.KindSignature, errors.KindOf(err))
		})
	}

	t.Run("message", func(t *testing.T) {
		other := mailTypedData()
		other.Message["contents"] = "Hello, Alice!"
		err := VerifyTypedData(other, sig, signer.Address())
		require.Equal(t, errors.KindSignature, errors.KindOf(err))
	})

	t.Run("domain", func(t *testing.T) {
		other := mailTypedData()
		other.Domain.ChainId = math.NewHexOrDecimal256(5)
		err := VerifyTypedData(other, sig, signer.Address())
		require.Equal(t, errors.KindSignature, errors.KindOf(err))
	})
}

func TestSignatureFromBytes(t *testing.T) {
	_, err := SignatureFromBytes(make([]byte, 64))
	require.Error(t, err)
	raw := make([]byte, 65)
	raw[64] = 1
	sig, err := SignatureFromBytes(raw)
	require.NoError(t, err)
	require.Equal(t, uint8(28), sig.V)
}

func TestTransactOpts(t *testing.T) {
	signer := cowSigner(t)
	opts, err := signer.TransactOpts(context.Background(), big.NewInt(11155111))
	require.NoError(t, err)
	require.Equal(t, signer.Address(), opts.From)
}

func TestPublic(t *testing.T) {
	signer := cowSigner(t)
	addr := crypto.PubkeyToAddress(*signer.Public().(*ecdsa.PublicKey))
	require.Equal(t, signer.Address(), addr)
}
