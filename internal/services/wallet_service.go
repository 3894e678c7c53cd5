package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "walletwise/internal/errors"
	"walletwise/internal/models"
	"walletwise/internal/pagination"
)

// walletService handles wallets and their membership.
type walletService struct {
	db *gorm.DB
}

// NewWalletService creates a new WalletServicer.
func NewWalletService(db *gorm.DB) WalletServicer {
	return &walletService{db: db}
}

// CreateWallet creates a wallet and makes ownerID its owner.
func (s *walletService) CreateWallet(ownerID, name string, kind models.WalletKind) (*models.Wallet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "wallet name is required")
	}
	if kind == "" {
		kind = models.WalletKindPersonal
	}
	if kind != models.WalletKindPersonal && kind != models.WalletKindShared {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "wallet kind must be personal or shared")
	}

	wallet := &models.Wallet{Name: name, Kind: kind, OwnerID: ownerID}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(wallet).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		owner := &models.WalletMember{WalletID: wallet.ID, UserID: ownerID, Role: models.MemberRoleOwner}
		if err := tx.Create(owner).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// GetUserWallets lists the wallets userID belongs to.
func (s *walletService) GetUserWallets(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Wallet], error) {
	base := s.db.Model(&models.Wallet{}).
		Where("id IN (?)", s.db.Model(&models.WalletMember{}).Select("wallet_id").Where("user_id = ?", userID))

	result, err := pagination.Fetch[models.Wallet](base, page, "created_at ASC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetWalletByID returns the wallet if userID is a member.
func (s *walletService) GetWalletByID(userID, walletID string) (*models.Wallet, error) {
	if err := s.RequireMember(userID, walletID); err != nil {
		return nil, err
	}
	var wallet models.Wallet
	if err := s.db.Where("id = ?", walletID).First(&wallet).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &wallet, nil
}

// AddMember lets the wallet owner invite another user.
func (s *walletService) AddMember(inviterID, walletID, userID string) (*models.WalletMember, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "user_id is required")
	}

	var wallet models.Wallet
	if err := s.db.Where("id = ?", walletID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrWalletNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if wallet.OwnerID != inviterID {
		return nil, apperrors.ErrNotWalletOwner
	}

	var existing int64
	if err := s.db.Model(&models.WalletMember{}).Where("wallet_id = ? AND user_id = ?", walletID, userID).Count(&existing).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if existing > 0 {
		return nil, apperrors.ErrAlreadyWalletMember
	}

	member := &models.WalletMember{WalletID: walletID, UserID: userID, Role: models.MemberRoleMember}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(member).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if wallet.Kind != models.WalletKindShared {
			if err := tx.Model(&wallet).Update("kind", models.WalletKindShared).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// GetMembers lists the members of a wallet userID belongs to.
func (s *walletService) GetMembers(userID, walletID string) ([]models.WalletMember, error) {
	if err := s.RequireMember(userID, walletID); err != nil {
		return nil, err
	}
	var members []models.WalletMember
	if err := s.db.Where("wallet_id = ?", walletID).Order("created_at ASC").Find(&members).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return members, nil
}

// RequireMember fails unless userID belongs to walletID.
func (s *walletService) RequireMember(userID, walletID string) error {
	return requireMember(s.db, userID, walletID)
}

func requireMember(db *gorm.DB, userID, walletID string) error {
	var count int64
	if err := db.Model(&models.Wallet{}).Where("id = ?", walletID).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return apperrors.ErrWalletNotFound
	}
	if err := db.Model(&models.WalletMember{}).Where("wallet_id = ? AND user_id = ?", walletID, userID).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return apperrors.ErrNotWalletMember
	}
	return nil
}
