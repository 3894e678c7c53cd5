package models

// WalletKind distinguishes single-user wallets from shared ones.
type WalletKind string

const (
	WalletKindPersonal WalletKind = "personal"
	WalletKindShared   WalletKind = "shared"
)

// MemberRole is a user's role inside a wallet.
type MemberRole string

const (
	MemberRoleOwner  MemberRole = "owner"
	MemberRoleMember MemberRole = "member"
)

// Wallet groups transactions, budgets and recurring rules shared by its members.
type Wallet struct {
	Base
	Name    string     `gorm:"not null" json:"name"`
	Kind    WalletKind `gorm:"not null;default:personal" json:"kind"`
	OwnerID string     `gorm:"not null;index" json:"owner_id"`
}

// WalletMember links an externally authenticated user to a wallet.
type WalletMember struct {
	Base
	WalletID string     `gorm:"not null;uniqueIndex:uq_wallet_members_wallet_user" json:"wallet_id"`
	UserID   string     `gorm:"not null;uniqueIndex:uq_wallet_members_wallet_user;index" json:"user_id"`
	Role     MemberRole `gorm:"not null" json:"role"`
}
