package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the outcome of a guarded transition
type AuditAction string

const (
	AuditActionPublishAllowed  AuditAction = "publish_allowed"
	AuditActionPublishDenied   AuditAction = "publish_denied"
	AuditActionPublishBypassed AuditAction = "publish_bypassed"
)

// AuditActions lists every recorded action
func AuditActions() []AuditAction {
	return []AuditAction{AuditActionPublishAllowed, AuditActionPublishDenied, AuditActionPublishBypassed}
}

// IsValid reports whether the action is one the guard records
func (a AuditAction) IsValid() bool {
	switch a {
	case AuditActionPublishAllowed, AuditActionPublishDenied, AuditActionPublishBypassed:
		return true
	}
	return false
}

// AuditLog represents an audit trail entry for one guard evaluation
type AuditLog struct {
	ID         uuid.UUID   `json:"id" db:"id"`
	ItemID     uuid.UUID   `json:"item_id" db:"item_id"`
	PostType   string      `json:"post_type" db:"post_type"`
	Action     AuditAction `json:"action" db:"action"`
	Reason     string      `json:"reason" db:"reason"`
	OldStatus  PostStatus  `json:"old_status" db:"old_status"`
	NewStatus  PostStatus  `json:"new_status" db:"new_status"`
	RevertedTo *PostStatus `json:"reverted_to,omitempty" db:"reverted_to"`
	RequestID  string      `json:"request_id" db:"request_id"`
	IPAddress  string      `json:"ip_address" db:"ip_address"`
	UserAgent  string      `json:"user_agent" db:"user_agent"`
	Timestamp  time.Time   `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "guard_audit_logs"
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(item *ContentItem, action AuditAction, oldStatus, newStatus PostStatus) *AuditLog {
	return &AuditLog{
		ID:        uuid.New(),
		ItemID:    item.ID,
		PostType:  item.PostType,
		Action:    action,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Timestamp: time.Now().UTC(),
	}
}

// WithReason sets the decision reason
func (a *AuditLog) WithReason(reason string) *AuditLog {
	a.Reason = reason
	return a
}

// WithRevert records the status the item was reverted to
func (a *AuditLog) WithRevert(status PostStatus) *AuditLog {
	a.RevertedTo = &status
	return a
}

// WithRequestInfo sets request metadata
func (a *AuditLog) WithRequestInfo(requestID, ipAddress, userAgent string) *AuditLog {
	a.RequestID = requestID
	a.IPAddress = ipAddress
	a.UserAgent = userAgent
	return a
}
