package eas

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"olas.info/attest/pkg/errors"
)

// PublishRequest is everything OlasHub.publish takes besides the signature.
type PublishRequest struct {
	Recipient     common.Address
	Title         string
	ContentURL    string
	MediaURL      string
	StakeAmount   *big.Int
	RoyaltyAmount *big.Int
	MarketType    uint8
	CitationUIDs  [][32]byte
}

// OlasHub routes delegated attestations through the Olas publishing contract.
type OlasHub struct {
	address  common.Address
	contract *bind.BoundContract
}

func NewOlasHub(address common.Address, backend bind.ContractBackend) *OlasHub {
	return &OlasHub{
		address:  address,
		contract: bind.NewBoundContract(address, olasHubABI, backend, backend, backend),
	}
}

func (h *OlasHub) Address() common.Address {
	return h.address
}

func (h *OlasHub) HasProfile(ctx context.Context, account common.Address) (bool, error) {
	var out []any
	err := h.contract.Call(&bind.CallOpts{Context: ctx}, &out, "hasProfile", account)
	if err != nil {
		return false, errors.Chain("error calling hasProfile", err)
	}
	if len(out) != 1 {
		return false, errors.Chain(fmt.Sprintf("hasProfile returned %d values", len(out)), nil)
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (h *OlasHub) Publish(opts *bind.TransactOpts, sig Signature, req PublishRequest) (*types.Transaction, error) {
	stake := req.StakeAmount
	if stake == nil {
		stake = new(big.Int)
	}
	royalty := req.RoyaltyAmount
	if royalty == nil {
		royalty = new(big.Int)
	}
	citations := req.CitationUIDs
	if citations == nil {
		citations = [][32]byte{}
	}
	tx, err := h.contract.Transact(opts, "publish",
		sig, req.Recipient, req.Title, req.ContentURL, req.MediaURL,
		stake, royalty, req.MarketType, citations)
	if err != nil {
		return nil, errors.Chain("error sending publish transaction", err)
	}
	return tx, nil
}

// PublishedUID is the first argument of ArticlePublished.
func (h *OlasHub) PublishedUID(receipt *types.Receipt) (common.Hash, error) {
	ev := olasHubABI.Events["ArticlePublished"]
	for _, l := range receipt.Logs {
		if l.Address != h.address || len(l.Topics) == 0 || l.Topics[0] != ev.ID {
			continue
		}
		return firstBytes32(olasHubABI, "ArticlePublished", l)
	}
	return common.Hash{}, errors.Chain(fmt.Sprintf("no ArticlePublished event in receipt for tx %s", receipt.TxHash.Hex()), nil)
}
