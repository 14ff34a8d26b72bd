package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"gem-backend/internal/models"
)

type AuditLogRepository struct {
	DB *pgxpool.Pool
}

func NewAuditLogRepository(db *pgxpool.Pool) *AuditLogRepository {
	return &AuditLogRepository{DB: db}
}

func (r *AuditLogRepository) Create(ctx context.Context, l *models.AuditLog) error {
	var meta []byte
	if len(l.Meta) > 0 {
		meta = l.Meta
	}
	_, err := r.DB.Exec(ctx,
		`INSERT INTO audit_logs(id, owner_id, action, entity_type, entity_id, performed_by, meta, ip_address, user_agent, created_at)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		l.ID, l.OwnerID, l.Action, l.EntityType, l.EntityID, l.PerformedBy, meta, l.IPAddress, l.UserAgent, l.CreatedAt)
	return translate(err, "audit log")
}

// List returns a page of a tenant's audit trail, newest first.
func (r *AuditLogRepository) List(ctx context.Context, ownerID uuid.UUID, page models.Page) ([]*models.AuditLog, int, error) {
	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs WHERE owner_id=$1`, ownerID).Scan(&total); err != nil {
		return nil, 0, translate(err, "audit log")
	}

	p := page.Normalize()
	rows, err := r.DB.Query(ctx,
		`SELECT id, owner_id, action, entity_type, entity_id, performed_by, meta, ip_address, user_agent, created_at
		 FROM audit_logs WHERE owner_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		ownerID, p.Limit, page.Offset())
	if err != nil {
		return nil, 0, translate(err, "audit log")
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		var (
			l    models.AuditLog
			meta []byte
		)
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.Action, &l.EntityType, &l.EntityID, &l.PerformedBy,
			&meta, &l.IPAddress, &l.UserAgent, &l.CreatedAt); err != nil {
			return nil, 0, translate(err, "audit log")
		}
		l.Meta = meta
		logs = append(logs, &l)
	}
	return logs, total, translate(rows.Err(), "audit log")
}
