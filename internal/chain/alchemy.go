package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// assetTransfersParams is the request object for alchemy_getAssetTransfers
type assetTransfersParams struct {
	FromBlock        string   `json:"fromBlock"`
	ToBlock          string   `json:"toBlock"`
	Category         []string `json:"category"`
	ExcludeZeroValue bool     `json:"excludeZeroValue"`
}

// assetTransfer is one entry of the alchemy_getAssetTransfers response
type assetTransfer struct {
	Hash        string  `json:"hash"`
	From        string  `json:"from"`
	To          string  `json:"to"`
	Category    string  `json:"category"`
	Asset       *string `json:"asset"`
	RawContract struct {
		Value   string  `json:"value"`
		Address *string `json:"address"`
	} `json:"rawContract"`
}

// assetTransfersResult is the alchemy_getAssetTransfers response payload
type assetTransfersResult struct {
	Transfers []assetTransfer `json:"transfers"`
}

// AlchemyDetector resolves transfers through the provider's transfer index.
// Only works against Alchemy endpoints.
type AlchemyDetector struct {
	backend Backend
	caller  RPCCaller
	network Network
}

// NewAlchemyDetector builds a provider backed detector
func NewAlchemyDetector(backend Backend, caller RPCCaller, network Network) *AlchemyDetector {
	return &AlchemyDetector{backend: backend, caller: caller, network: network}
}

// AnalyzeTransaction returns the ETH and USDC transfers the transaction
// executed, looked up via alchemy_getAssetTransfers for its block.
func (d *AlchemyDetector) AnalyzeTransaction(ctx context.Context, hash common.Hash) (*TransferResult, error) {
	_, pending, err := d.backend.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrNotMined
	}
	receipt, err := d.backend.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, ErrNotMined
		}
		return nil, err
	}

	block := hexutil.EncodeBig(receipt.BlockNumber)
	var res assetTransfersResult
	err = d.caller.CallContext(ctx, &res, "alchemy_getAssetTransfers", assetTransfersParams{
		FromBlock:        block,
		ToBlock:          block,
		Category:         []string{"external", "internal", "erc20"},
		ExcludeZeroValue: true,
	})
	if err != nil {
		return nil, fmt.Errorf("alchemy_getAssetTransfers: %w", err)
	}

	want := strings.ToLower(hash.Hex())
	usdc := strings.ToLower(d.network.USDC.Hex())
	result := &TransferResult{Hash: want}
	for _, tr := range res.Transfers {
		if strings.ToLower(tr.Hash) != want || tr.Asset == nil {
			continue
		}
		token := *tr.Asset
		if token != TokenETH && token != TokenUSDC {
			continue
		}
		if token == TokenUSDC {
			if tr.RawContract.Address == nil || strings.ToLower(*tr.RawContract.Address) != usdc {
				continue
			}
		}
		amount, ok := new(big.Int).SetString(strings.TrimPrefix(tr.RawContract.Value, "0x"), 16)
		if !ok {
			continue
		}
		result.Transfers = append(result.Transfers, Transfer{
			FromAddress: strings.ToLower(tr.From),
			ToAddress:   strings.ToLower(tr.To),
			Amount:      amount,
			Token:       token,
		})
	}
	return result, nil
}
