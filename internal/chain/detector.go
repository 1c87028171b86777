package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrNotMined reports a transaction that exists but has no receipt yet
var ErrNotMined = errors.New("transaction not mined yet")

// transferEventSignature is keccak256 of the ERC-20 Transfer event
var transferEventSignature = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// Transfer is one asset movement executed by a transaction
type Transfer struct {
	FromAddress string   // Sender, lowercase hex
	ToAddress   string   // Recipient, lowercase hex
	Amount      *big.Int // Amount in base units
	Token       string   // ETH or USDC
}

// TransferResult collects the transfers a single transaction executed
type TransferResult struct {
	Hash      string     // Transaction hash, lowercase hex
	Transfers []Transfer // ETH and USDC transfers found
}

// Detector resolves the asset transfers a transaction executed
type Detector interface {
	AnalyzeTransaction(ctx context.Context, hash common.Hash) (*TransferResult, error)
}

// LogDetector extracts transfers from transaction data and receipt logs.
// It works against any JSON-RPC node.
type LogDetector struct {
	backend Backend
	network Network
}

// NewLogDetector builds a receipt log based detector
func NewLogDetector(backend Backend, network Network) *LogDetector {
	return &LogDetector{backend: backend, network: network}
}

// AnalyzeTransaction returns the ETH and USDC transfers the transaction
// executed. Reverted transactions yield an empty result.
func (d *LogDetector) AnalyzeTransaction(ctx context.Context, hash common.Hash) (*TransferResult, error) {
	tx, pending, err := d.backend.TransactionByHash(ctx, hash)
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

	result := &TransferResult{Hash: strings.ToLower(hash.Hex())}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return result, nil
	}

	// Native transfer carried by the transaction itself
	if to := tx.To(); to != nil && tx.Value().Sign() > 0 {
		from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
		if err != nil {
			return nil, err
		}
		result.Transfers = append(result.Transfers, Transfer{
			FromAddress: strings.ToLower(from.Hex()),
			ToAddress:   strings.ToLower(to.Hex()),
			Amount:      new(big.Int).Set(tx.Value()),
			Token:       TokenETH,
		})
	}

	// Transfer events emitted by the network's USDC contract
	for _, lg := range receipt.Logs {
		if lg.Address != d.network.USDC {
			continue
		}
		if len(lg.Topics) < 3 || lg.Topics[0] != transferEventSignature {
			continue
		}
		result.Transfers = append(result.Transfers, Transfer{
			FromAddress: strings.ToLower(common.BytesToAddress(lg.Topics[1].Bytes()).Hex()),
			ToAddress:   strings.ToLower(common.BytesToAddress(lg.Topics[2].Bytes()).Hex()),
			Amount:      new(big.Int).SetBytes(lg.Data),
			Token:       TokenUSDC,
		})
	}
	return result, nil
}
