package services

import (
	"encoding/json"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"walletwise/internal/logger"
	"walletwise/internal/models"
)

// Audit actions recorded by the handlers.
const (
	AuditCreateWallet        = "CREATE_WALLET"
	AuditAddWalletMember     = "ADD_WALLET_MEMBER"
	AuditCreateTransaction   = "CREATE_TRANSACTION"
	AuditUpdateTransaction   = "UPDATE_TRANSACTION"
	AuditDeleteTransaction   = "DELETE_TRANSACTION"
	AuditSetBudget           = "SET_BUDGET"
	AuditDeleteBudget        = "DELETE_BUDGET"
	AuditCreateRecurringRule = "CREATE_RECURRING_RULE"
	AuditUpdateRecurringRule = "UPDATE_RECURRING_RULE"
	AuditDeleteRecurringRule = "DELETE_RECURRING_RULE"
	AuditCreateCategory      = "CREATE_CATEGORY"
	AuditUpdateCategory      = "UPDATE_CATEGORY"
	AuditDeleteCategory      = "DELETE_CATEGORY"
)

type auditService struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewAuditService creates an AuditServicer writing to the audit_logs table.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db, log: logger.Named("audit")}
}

// Log records one wallet mutation. Failures are logged and dropped.
func (s *auditService) Log(userID, walletID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{}) {
	entry := &models.AuditLog{
		UserID:       userID,
		WalletID:     walletID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      s.encodeChanges(action, changes),
	}

	if err := s.db.Create(entry).Error; err != nil {
		s.log.Errorw("failed to create audit log entry",
			"error", err,
			"user_id", userID,
			"wallet_id", walletID,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
	}
}

func (s *auditService) encodeChanges(action string, changes map[string]interface{}) string {
	if len(changes) == 0 {
		return ""
	}
	data, err := json.Marshal(changes)
	if err != nil {
		s.log.Warnw("failed to marshal audit changes", "error", err, "action", action)
		return "{}"
	}
	return string(data)
}
