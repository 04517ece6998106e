package models

import "time"

// Deposit is an L1 to L2 transfer keyed by its L1 transaction hash.
// Amount is the raw uint256 in decimal notation.
type Deposit struct {
	ID            uint      `json:"-" bson:"-" gorm:"primaryKey"`
	Hash          string    `json:"hash" bson:"hash" gorm:"uniqueIndex;size:66;not null"`
	Amount        string    `json:"amount" bson:"amount" gorm:"type:varchar(78);not null"`
	TokenAddress  string    `json:"token_address" bson:"token_address" gorm:"size:42;not null"`
	TokenDecimals uint8     `json:"token_decimals" bson:"token_decimals" gorm:"not null"`
	TokenSymbol   string    `json:"token_symbol" bson:"token_symbol" gorm:"not null"`
	Address       string    `json:"address" bson:"address" gorm:"index;size:42;not null"`
	Status        string    `json:"status" bson:"status" gorm:"not null"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}
