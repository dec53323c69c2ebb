package eas

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"

	"olas.info/attest/pkg/errors"
	"olas.info/attest/pkg/log"
)

// Waiter blocks until transactions are mined.
type Waiter struct {
	Backend bind.DeployBackend
}

// WaitMined returns the receipt once tx is included, or a chain error if it
// reverted. Cancelling ctx stops the wait, not the transaction.
func (w *Waiter) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	log.Log(ctx, "waiting for transaction", "tx", tx.Hash().Hex())
	receipt, err := bind.WaitMined(ctx, w.Backend, tx)
	if err != nil {
		return nil, errors.Chain(fmt.Sprintf("error waiting for transaction %s", tx.Hash().Hex()), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, errors.Chain(fmt.Sprintf("transaction %s reverted in block %s", tx.Hash().Hex(), receipt.BlockNumber), nil)
	}
	log.Log(ctx, "transaction mined", "tx", tx.Hash().Hex(), "block", receipt.BlockNumber, "gasUsed", receipt.GasUsed)
	return receipt, nil
}
