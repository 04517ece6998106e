package models

import "time"

// Withdrawal is an L2 to L1 transfer keyed by its L2 transaction hash.
// Status is the indexer's coarse status, RecentStatus the stage last observed
// by the status watcher.
type Withdrawal struct {
	ID            uint      `json:"-" bson:"-" gorm:"primaryKey"`
	Hash          string    `json:"hash" bson:"hash" gorm:"uniqueIndex;size:66;not null"`
	L1Hash        *string   `json:"l1_hash" bson:"l1_hash,omitempty" gorm:"size:66"`
	Amount        string    `json:"amount" bson:"amount" gorm:"type:varchar(78);not null"`
	TokenAddress  string    `json:"token_address" bson:"token_address" gorm:"size:42;not null"`
	TokenDecimals uint8     `json:"token_decimals" bson:"token_decimals" gorm:"not null"`
	TokenSymbol   string    `json:"token_symbol" bson:"token_symbol" gorm:"not null"`
	Address       string    `json:"address" bson:"address" gorm:"index;size:42;not null"`
	Status        string    `json:"status" bson:"status" gorm:"index;not null"`
	RecentStatus  *string   `json:"recent_status" bson:"recent_status,omitempty"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}
