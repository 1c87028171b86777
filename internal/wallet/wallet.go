package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"blockchain_api/internal/chain"
	"blockchain_api/internal/domain"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gas limits for a plain value transfer and an ERC-20 transfer call
const (
	GasLimitETH  = 21000
	GasLimitUSDC = 65000
)

// gasPriceMargin is the multiplier applied over the node's suggestion
var gasPriceMargin = decimal.NewFromFloat(1.2)

const erc20TransferJSON = `[{"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}]`

var erc20ABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(erc20TransferJSON))
	if err != nil {
		panic(err)
	}
	return parsed
}()

var (
	// ErrUnsupportedToken reports a token outside ETH and USDC
	ErrUnsupportedToken = errors.New("unsupported token")
	// ErrProviderUnavailable reports an unreachable JSON-RPC node
	ErrProviderUnavailable = errors.New("web3 provider unavailable")
)

// Wallet signs and submits transfers from one derived account
type Wallet struct {
	keypair *Keypair
	backend chain.Backend
	network chain.Network
}

// New binds a wallet to a derived keypair
func New(keypair *Keypair, backend chain.Backend, network chain.Network) *Wallet {
	return &Wallet{keypair: keypair, backend: backend, network: network}
}

// Address returns the wallet's lowercase hex address
func (w *Wallet) Address() string {
	return w.keypair.Address
}

// GasPrice returns the node's suggested gas price with the margin applied
func (w *Wallet) GasPrice(ctx context.Context) (*big.Int, error) {
	suggested, err := w.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return decimal.NewFromBigInt(suggested, 0).Mul(gasPriceMargin).BigInt(), nil
}

// Transfer signs and submits a transfer of the given token and returns
// an unsaved transaction record with status pending. The caller is
// responsible for persisting the record.
func (w *Wallet) Transfer(ctx context.Context, token, to string, amount *big.Int) (*domain.Transaction, error) {
	switch token {
	case chain.TokenETH:
		return w.transferETH(ctx, to, amount)
	case chain.TokenUSDC:
		return w.transferUSDC(ctx, to, amount)
	default:
		return nil, ErrUnsupportedToken
	}
}

func (w *Wallet) transferETH(ctx context.Context, to string, amount *big.Int) (*domain.Transaction, error) {
	nonce, gasPrice, err := w.prepare(ctx)
	if err != nil {
		return nil, err
	}
	toAddr := common.HexToAddress(to)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &toAddr,
		Value:    amount,
		Gas:      GasLimitETH,
		GasPrice: gasPrice,
	})
	return w.submit(ctx, tx, chain.TokenETH, to, amount)
}

func (w *Wallet) transferUSDC(ctx context.Context, to string, amount *big.Int) (*domain.Transaction, error) {
	nonce, gasPrice, err := w.prepare(ctx)
	if err != nil {
		return nil, err
	}
	data, err := erc20ABI.Pack("transfer", common.HexToAddress(to), amount)
	if err != nil {
		return nil, err
	}
	contract := w.network.USDC
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &contract,
		Value:    big.NewInt(0),
		Gas:      GasLimitUSDC,
		GasPrice: gasPrice,
		Data:     data,
	})
	return w.submit(ctx, tx, chain.TokenUSDC, to, amount)
}

// prepare fetches the account nonce and the gas price with margin
func (w *Wallet) prepare(ctx context.Context) (uint64, *big.Int, error) {
	nonce, err := w.backend.PendingNonceAt(ctx, common.HexToAddress(w.keypair.Address))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	gasPrice, err := w.GasPrice(ctx)
	if err != nil {
		return 0, nil, err
	}
	return nonce, gasPrice, nil
}

func (w *Wallet) submit(ctx context.Context, tx *types.Transaction, token, to string, amount *big.Int) (*domain.Transaction, error) {
	signer := types.LatestSignerForChainID(new(big.Int).SetUint64(w.network.ChainID))
	signed, err := types.SignTx(tx, signer, w.keypair.PrivateKey)
	if err != nil {
		return nil, err
	}
	if err := w.backend.SendTransaction(ctx, signed); err != nil {
		return nil, err
	}
	return w.record(signed, token, to, amount), nil
}

// record builds the pending transaction row for a submitted transfer.
// Gas used holds the gas limit until the receipt reports the real value.
func (w *Wallet) record(signed *types.Transaction, token, to string, amount *big.Int) *domain.Transaction {
	gasLimit := signed.Gas()
	gasPrice := signed.GasPrice().String()
	fee := new(big.Int).Mul(signed.GasPrice(), new(big.Int).SetUint64(gasLimit)).String()
	return &domain.Transaction{
		ID:          uuid.NewString(),
		Hash:        strings.ToLower(signed.Hash().Hex()),
		FromAddress: w.keypair.Address,
		ToAddress:   strings.ToLower(to),
		Amount:      amount.String(),
		ChainID:     w.network.ChainID,
		Token:       token,
		Status:      domain.StatusPending,
		GasUsed:     &gasLimit,
		GasPrice:    &gasPrice,
		Fee:         &fee,
	}
}
