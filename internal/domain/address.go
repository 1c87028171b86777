package domain

import "time"

// Address Model
type Address struct {
	Address   string    `gorm:"primaryKey;size:42"`   // Lowercase hex address (primary key)
	Index     uint32    `gorm:"uniqueIndex;not null"` // BIP44 address index the key was derived at
	CreatedAt time.Time `gorm:"autoCreateTime"`       // Timestamp of creation
}
