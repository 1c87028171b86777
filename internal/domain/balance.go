package domain

import "time"

// Balance Model
type Balance struct {
	Address   string    `gorm:"primaryKey;size:42"`   // Tracked address holding the funds
	ChainID   uint64    `gorm:"primaryKey"`           // Chain the balance was observed on
	Token     string    `gorm:"primaryKey;size:16"`   // Token symbol: ETH or USDC
	Balance   string    `gorm:"not null;default:'0'"` // Amount in base units (wei for ETH), stored as a decimal string
	UpdatedAt time.Time `gorm:"autoUpdateTime"`       // Timestamp of last update
}
