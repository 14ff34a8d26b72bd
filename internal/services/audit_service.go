package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gem-backend/internal/apperrors"
	"gem-backend/internal/logger"
	"gem-backend/internal/models"
	"gem-backend/internal/timeutil"
)

type clientInfoKey struct{}

type clientInfo struct {
	ip        string
	userAgent string
}

// WithClientInfo records the caller's address and user agent for audit rows.
func WithClientInfo(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, clientInfo{ip: ip, userAgent: userAgent})
}

// AuditService writes the audit trail. Write failures are logged and never
// fail the audited operation.
type AuditService struct {
	store AuditStore
	now   timeutil.Clock
}

func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store, now: timeutil.Now}
}

func (s *AuditService) Record(ctx context.Context, actor models.Actor, action string,
	entityType models.EntityType, entityID uuid.UUID, meta models.AuditMeta) {
	if s == nil || s.store == nil {
		return
	}
	entry := &models.AuditLog{
		ID:          uuid.New(),
		OwnerID:     actor.OwnerID,
		Action:      action,
		EntityType:  string(entityType),
		EntityID:    entityID,
		PerformedBy: actor.UserID,
		CreatedAt:   s.now(),
	}
	if raw, err := json.Marshal(meta); err == nil {
		entry.Meta = raw
	}
	if info, ok := ctx.Value(clientInfoKey{}).(clientInfo); ok {
		entry.IPAddress = info.ip
		entry.UserAgent = info.userAgent
	}

	if err := s.store.Create(ctx, entry); err != nil {
		logger.FromContext(ctx).Warn("audit log write failed",
			zap.String("action", action),
			zap.String("entity_id", entityID.String()),
			zap.Error(err))
	}
}

// List returns the tenant's audit trail. Admin only.
func (s *AuditService) List(ctx context.Context, actor models.Actor, page models.Page) (models.PagedResult[*models.AuditLog], error) {
	if !actor.IsAdmin() {
		return models.PagedResult[*models.AuditLog]{}, apperrors.New(apperrors.KindForbidden, "admin access required")
	}
	logs, total, err := s.store.List(ctx, actor.OwnerID, page)
	if err != nil {
		return models.PagedResult[*models.AuditLog]{}, err
	}
	return models.NewPagedResult(logs, total, page), nil
}
