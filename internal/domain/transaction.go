package domain

import "time"

// Transaction status values
const (
	StatusPending   = "pending"   // Submitted, receipt not yet seen
	StatusConfirmed = "confirmed" // Mined with a successful receipt
	StatusFailed    = "failed"    // Mined but reverted
)

// Transaction Model
type Transaction struct {
	ID          string    `gorm:"primaryKey;size:36"`               // UUID primary key
	Hash        string    `gorm:"size:66;not null;index"`           // On-chain transaction hash (lowercase hex)
	FromAddress string    `gorm:"size:42;index"`                    // Sender address (lowercase hex)
	ToAddress   string    `gorm:"size:42;index"`                    // Recipient address (lowercase hex)
	Amount      string    `gorm:"not null"`                         // Amount in base units, stored as a decimal string
	ChainID     uint64    `gorm:"not null"`                         // Chain the transaction belongs to
	Token       string    `gorm:"size:16;not null"`                 // Token symbol: ETH or USDC
	Status      string    `gorm:"size:16;not null;default:pending"` // pending, confirmed or failed
	GasUsed     *uint64   // Gas consumed (nil until the receipt is seen)
	GasPrice    *string   // Gas price in wei as a decimal string
	Fee         *string   // Total fee in wei as a decimal string
	CreatedAt   time.Time `gorm:"autoCreateTime"` // Timestamp of creation
}
