package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"blockchain_api/internal/chain"
	"blockchain_api/internal/domain"

	"gorm.io/gorm"
)

// parseBig reads a stored decimal string. Empty strings count as zero.
func parseBig(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("malformed amount: %q", s)
	}
	return n, nil
}

// Credit adds amount to the stored balance of (address, chain, token),
// creating the row when it does not exist. Must run inside the caller's
// database transaction. A negative amount debits.
func Credit(tx *gorm.DB, address string, chainID uint64, token string, amount *big.Int) error {
	var bal domain.Balance
	err := tx.Where("address = ? AND chain_id = ? AND token = ?", address, chainID, token).First(&bal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		bal = domain.Balance{
			Address: address,
			ChainID: chainID,
			Token:   token,
			Balance: amount.String(),
		}
		return tx.Create(&bal).Error
	}
	if err != nil {
		return err
	}
	stored, err := parseBig(bal.Balance)
	if err != nil {
		return err
	}
	bal.Balance = new(big.Int).Add(stored, amount).String()
	return tx.Save(&bal).Error
}

// Available returns the balance usable for a new withdrawal: the stored
// balance minus the obligations of this address's still pending
// transactions. Fees of pending ERC-20 transfers weigh on the ETH
// balance because gas is always paid in the native asset.
func Available(tx *gorm.DB, address string, chainID uint64, token string) (*big.Int, error) {
	avail := big.NewInt(0)
	var bal domain.Balance
	err := tx.Where("address = ? AND chain_id = ? AND token = ?", address, chainID, token).First(&bal).Error
	if err == nil {
		if avail, err = parseBig(bal.Balance); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var pending []domain.Transaction
	if err := tx.Where("from_address = ? AND chain_id = ? AND status = ?",
		address, chainID, domain.StatusPending).Find(&pending).Error; err != nil {
		return nil, err
	}
	for _, p := range pending {
		amount, err := parseBig(p.Amount)
		if err != nil {
			return nil, err
		}
		fee := big.NewInt(0)
		if p.Fee != nil {
			if fee, err = parseBig(*p.Fee); err != nil {
				return nil, err
			}
		}
		switch {
		case token == chain.TokenETH && p.Token == chain.TokenETH:
			avail.Sub(avail, amount)
			avail.Sub(avail, fee)
		case token == chain.TokenETH:
			// Pending token transfer still owes its gas in ETH
			avail.Sub(avail, fee)
		case p.Token == token:
			avail.Sub(avail, amount)
		}
	}
	return avail, nil
}

// DebitConfirmed applies the definitive debits for a confirmed
// withdrawal: amount plus fee off the ETH balance for native
// transfers, amount off the token balance and fee off the ETH balance
// for ERC-20 transfers.
func DebitConfirmed(tx *gorm.DB, t *domain.Transaction, fee *big.Int) error {
	amount, err := parseBig(t.Amount)
	if err != nil {
		return err
	}
	if t.Token == chain.TokenETH {
		return debit(tx, t.FromAddress, t.ChainID, chain.TokenETH, new(big.Int).Add(amount, fee))
	}
	if err := debit(tx, t.FromAddress, t.ChainID, t.Token, amount); err != nil {
		return err
	}
	return debit(tx, t.FromAddress, t.ChainID, chain.TokenETH, fee)
}

func debit(tx *gorm.DB, address string, chainID uint64, token string, amount *big.Int) error {
	return Credit(tx, address, chainID, token, new(big.Int).Neg(amount))
}
