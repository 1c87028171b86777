package wallet

import (
	"crypto/ecdsa"
	"errors"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/crypto"
	bip39 "github.com/tyler-smith/go-bip39"
)

// ErrInvalidMnemonic reports a mnemonic that fails BIP39 validation
var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// Keypair is a derived signing key and its Ethereum address
type Keypair struct {
	PrivateKey *ecdsa.PrivateKey // secp256k1 signing key
	Address    string            // Lowercase hex address
}

// ValidateMnemonic checks a BIP39 mnemonic phrase
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// DeriveKeypair derives the account at BIP44 path m/44'/60'/0'/0/index
// from the mnemonic. The same mnemonic and index always yield the same
// keypair.
func DeriveKeypair(mnemonic string, index uint32) (*Keypair, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed := bip39.NewSeed(mnemonic, "")
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, err
	}
	for _, step := range []uint32{
		hdkeychain.HardenedKeyStart + 44, // purpose
		hdkeychain.HardenedKeyStart + 60, // coin type (ETH)
		hdkeychain.HardenedKeyStart + 0,  // account
		0,                                // external chain
		index,                            // address index
	} {
		if key, err = key.Derive(step); err != nil {
			return nil, err
		}
	}
	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, err
	}
	// go-ethereum's cgo-free signer only accepts keys carrying its own curve
	// instance, so rebuild the key from its raw bytes via the crypto package.
	pk, err := crypto.ToECDSA(priv.Serialize())
	if err != nil {
		return nil, err
	}
	return &Keypair{
		PrivateKey: pk,
		Address:    strings.ToLower(crypto.PubkeyToAddress(pk.PublicKey).Hex()),
	}, nil
}
