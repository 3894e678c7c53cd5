package models

import "strings"

// Category is an entry in a wallet's category catalog. Defaults have no
// WalletID and are visible to every wallet; the rest belong to one wallet.
// NameKey is the case-folded name that duplicate checks compare.
type Category struct {
	Base
	WalletID    *string         `gorm:"uniqueIndex:uq_categories_wallet_name" json:"wallet_id,omitempty"`
	Name        string          `gorm:"not null" json:"name"`
	NameKey     string          `gorm:"not null;uniqueIndex:uq_categories_wallet_name" json:"-"`
	Type        TransactionType `gorm:"not null" json:"type"`
	Description string          `json:"description"`
	Icon        string          `json:"icon"`
}

// IsDefault reports whether c is a shared default category.
func (c Category) IsDefault() bool { return c.WalletID == nil }

// CategoryKey folds a category name for case-insensitive comparison.
func CategoryKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
