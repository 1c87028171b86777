package domain

import "time"

// ProcessedTransaction Model
type ProcessedTransaction struct {
	Hash      string    `gorm:"primaryKey;size:66"` // On-chain transaction hash (lowercase hex)
	ChainID   uint64    `gorm:"primaryKey"`         // Chain the hash was processed on
	CreatedAt time.Time `gorm:"autoCreateTime"`     // Timestamp of processing
}
