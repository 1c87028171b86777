package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile time check that the fake satisfies the caller interface
var _ RPCCaller = (*fakeCaller)(nil)

// fakeCaller stubs the raw JSON-RPC calls the Alchemy detector makes
type fakeCaller struct {
	CallContextFunc func(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

func (f *fakeCaller) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	if f.CallContextFunc != nil {
		return f.CallContextFunc(ctx, result, method, args...)
	}
	return nil
}

// transfersPayload mirrors an alchemy_getAssetTransfers response for the
// given transaction hash. It mixes matching entries with entries the
// detector must skip.
func transfersPayload(hash string) string {
	return fmt.Sprintf(`{"transfers": [
		{"hash": "%[1]s", "from": "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "to": "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", "category": "external", "asset": "ETH", "rawContract": {"value": "0xde0b6b3a7640000", "address": null}},
		{"hash": "%[1]s", "from": "0xcccccccccccccccccccccccccccccccccccccccc", "to": "0xdddddddddddddddddddddddddddddddddddddddd", "category": "erc20", "asset": "USDC", "rawContract": {"value": "0xf4240", "address": "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"}},
		{"hash": "0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "from": "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "to": "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", "category": "external", "asset": "ETH", "rawContract": {"value": "0x1", "address": null}},
		{"hash": "%[1]s", "from": "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "to": "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", "category": "internal", "asset": null, "rawContract": {"value": "0x1", "address": null}},
		{"hash": "%[1]s", "from": "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "to": "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", "category": "erc20", "asset": "DAI", "rawContract": {"value": "0x1", "address": "0x6b175474e89094c44da98b954eedeac495271d0f"}},
		{"hash": "%[1]s", "from": "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "to": "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", "category": "erc20", "asset": "USDC", "rawContract": {"value": "0x1", "address": "0x9999999999999999999999999999999999999999"}},
		{"hash": "%[1]s", "from": "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "to": "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", "category": "erc20", "asset": "USDC", "rawContract": {"value": "0x1", "address": null}},
		{"hash": "%[1]s", "from": "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "to": "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", "category": "external", "asset": "ETH", "rawContract": {"value": "0xzz", "address": null}}
	]}`, hash)
}

func TestAlchemyDetectorAnalyze(t *testing.T) {
	network := testNetwork(t)
	hash := common.HexToHash("0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060")
	receipt := &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(5_417_326)}
	backend := backendFor(types.NewTx(&types.LegacyTx{}), receipt)

	var gotMethod string
	var gotParams assetTransfersParams
	caller := &fakeCaller{
		CallContextFunc: func(ctx context.Context, result interface{}, method string, args ...interface{}) error {
			gotMethod = method
			require.Len(t, args, 1)
			params, ok := args[0].(assetTransfersParams)
			require.True(t, ok)
			gotParams = params
			return json.Unmarshal([]byte(transfersPayload(hash.Hex())), result)
		},
	}
	d := NewAlchemyDetector(backend, caller, network)

	res, err := d.AnalyzeTransaction(context.Background(), hash)
	require.NoError(t, err)

	assert.Equal(t, "alchemy_getAssetTransfers", gotMethod)
	assert.Equal(t, "0x52a96e", gotParams.FromBlock)
	assert.Equal(t, "0x52a96e", gotParams.ToBlock)
	assert.Equal(t, []string{"external", "internal", "erc20"}, gotParams.Category)
	assert.True(t, gotParams.ExcludeZeroValue)

	assert.Equal(t, strings.ToLower(hash.Hex()), res.Hash)
	require.Len(t, res.Transfers, 2)

	eth := res.Transfers[0]
	assert.Equal(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", eth.FromAddress)
	assert.Equal(t, "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", eth.ToAddress)
	assert.Equal(t, big.NewInt(1_000_000_000_000_000_000), eth.Amount)
	assert.Equal(t, TokenETH, eth.Token)

	usdc := res.Transfers[1]
	assert.Equal(t, "0xcccccccccccccccccccccccccccccccccccccccc", usdc.FromAddress)
	assert.Equal(t, "0xdddddddddddddddddddddddddddddddddddddddd", usdc.ToAddress)
	assert.Equal(t, big.NewInt(1_000_000), usdc.Amount)
	assert.Equal(t, TokenUSDC, usdc.Token)
}

func TestAlchemyDetectorIgnoresReceiptStatus(t *testing.T) {
	network := testNetwork(t)
	hash := common.HexToHash("0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060")
	receipt := &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(5_417_326)}
	backend := backendFor(types.NewTx(&types.LegacyTx{}), receipt)

	caller := &fakeCaller{
		CallContextFunc: func(ctx context.Context, result interface{}, method string, args ...interface{}) error {
			return json.Unmarshal([]byte(transfersPayload(hash.Hex())), result)
		},
	}
	d := NewAlchemyDetector(backend, caller, network)

	res, err := d.AnalyzeTransaction(context.Background(), hash)
	require.NoError(t, err)
	assert.Len(t, res.Transfers, 2)
}

func TestAlchemyDetectorErrors(t *testing.T) {
	network := testNetwork(t)
	hash := common.HexToHash("0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060")
	tx := types.NewTx(&types.LegacyTx{})

	t.Run("Error - Still pending", func(t *testing.T) {
		backend := &fakeBackend{
			TransactionByHashFunc: func(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
				return tx, true, nil
			},
		}
		d := NewAlchemyDetector(backend, &fakeCaller{}, network)
		res, err := d.AnalyzeTransaction(context.Background(), hash)
		assert.ErrorIs(t, err, ErrNotMined)
		assert.Nil(t, res)
	})

	t.Run("Error - No receipt yet", func(t *testing.T) {
		backend := backendFor(tx, nil)
		backend.TransactionReceiptFunc = func(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
			return nil, ethereum.NotFound
		}
		d := NewAlchemyDetector(backend, &fakeCaller{}, network)
		res, err := d.AnalyzeTransaction(context.Background(), hash)
		assert.ErrorIs(t, err, ErrNotMined)
		assert.Nil(t, res)
	})

	t.Run("Error - RPC call fails", func(t *testing.T) {
		rpcErr := errors.New("rate limited")
		receipt := &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(1)}
		backend := backendFor(tx, receipt)
		caller := &fakeCaller{
			CallContextFunc: func(ctx context.Context, result interface{}, method string, args ...interface{}) error {
				return rpcErr
			},
		}
		d := NewAlchemyDetector(backend, caller, network)
		res, err := d.AnalyzeTransaction(context.Background(), hash)
		assert.ErrorIs(t, err, rpcErr)
		assert.ErrorContains(t, err, "alchemy_getAssetTransfers")
		assert.Nil(t, res)
	})
}
