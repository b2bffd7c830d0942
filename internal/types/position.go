package types

import "time"

// Position is a ledger entry. Owned is tracked explicitly and is not implied by Quantity.
type Position struct {
	Symbol       string    `yaml:"symbol" json:"symbol" validate:"required"`
	Quantity     float64   `yaml:"quantity" json:"quantity" validate:"gte=0"`
	Price        float64   `yaml:"price" json:"price" validate:"gte=0"`
	PurchaseDate time.Time `yaml:"purchase_date" json:"purchase_date"`
	AssetType    AssetType `yaml:"asset_type" json:"asset_type"`
	Owned        bool      `yaml:"owned" json:"owned"`
}
