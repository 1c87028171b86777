package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Token symbols the service tracks
const (
	TokenETH  = "ETH"  // Native asset, 18 decimals
	TokenUSDC = "USDC" // ERC-20, 6 decimals
)

// Network describes an Ethereum network the service can run against
type Network struct {
	Name    string         // Network name: mainnet or sepolia
	ChainID uint64         // EIP-155 chain ID
	USDC    common.Address // USDC token contract on this network
}

// networks is the registry of supported networks
var networks = map[string]Network{
	"mainnet": {
		Name:    "mainnet",
		ChainID: 1,
		USDC:    common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
	},
	"sepolia": {
		Name:    "sepolia",
		ChainID: 11155111,
		USDC:    common.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"),
	},
}

// LookupNetwork resolves a network by name
func LookupNetwork(name string) (Network, error) {
	n, ok := networks[name]
	if !ok {
		return Network{}, fmt.Errorf("unsupported network: %s", name)
	}
	return n, nil
}

// AlchemyURL returns the Alchemy JSON-RPC endpoint for the network
func (n Network) AlchemyURL(apiKey string) string {
	return fmt.Sprintf("https://eth-%s.g.alchemy.com/v2/%s", n.Name, apiKey)
}

// ValidToken reports whether the token symbol is supported
func ValidToken(token string) bool {
	return token == TokenETH || token == TokenUSDC
}
