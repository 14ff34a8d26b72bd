package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gem-backend/internal/apperrors"
	"gem-backend/internal/logger"
	"gem-backend/internal/metrics"
	"gem-backend/internal/models"
	"gem-backend/internal/timeutil"
)

const defaultRetention = 30 * 24 * time.Hour

// RecycleBinService owns the soft-delete lifecycle:
// active -> soft deleted -> restored or purged.
type RecycleBinService struct {
	store       RecycleBinStore
	items       InventoryStore
	categories  CategoryStore
	cache       ItemCache
	events      EventPublisher
	audit       *AuditService
	archiver    Archiver
	retention   time.Duration
	batchSize   int
	maxAttempts int
	now         timeutil.Clock
	log         *zap.Logger
}

type RecycleBinConfig struct {
	Retention         time.Duration
	PurgeBatchSize    int
	MaxCommitAttempts int
}

func NewRecycleBinService(store RecycleBinStore, items InventoryStore, categories CategoryStore,
	cache ItemCache, events EventPublisher, audit *AuditService, archiver Archiver, cfg RecycleBinConfig) *RecycleBinService {
	if cache == nil {
		cache = noopCache{}
	}
	if events == nil {
		events = noopPublisher{}
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
	if cfg.PurgeBatchSize <= 0 {
		cfg.PurgeBatchSize = 100
	}
	if cfg.MaxCommitAttempts < 1 {
		cfg.MaxCommitAttempts = 3
	}
	return &RecycleBinService{
		store:       store,
		items:       items,
		categories:  categories,
		cache:       cache,
		events:      events,
		audit:       audit,
		archiver:    archiver,
		retention:   cfg.Retention,
		batchSize:   cfg.PurgeBatchSize,
		maxAttempts: cfg.MaxCommitAttempts,
		now:         timeutil.Now,
		log:         logger.Log.Named("recycle_bin"),
	}
}

// DeleteItem moves an item to the recycle bin. Items with active sales may
// be deleted; the snapshot is taken before the deleted flags are set.
func (s *RecycleBinService) DeleteItem(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.RecycleBinEntry, error) {
	for attempt := 1; ; attempt++ {
		item, err := s.items.Get(ctx, actor.OwnerID, id)
		if err != nil {
			return nil, err
		}
		if item.IsDeleted {
			return nil, apperrors.ItemDeleted()
		}
		snapshot, err := json.Marshal(item)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to snapshot inventory item")
		}

		now := s.now()
		entry := s.newEntry(actor, models.EntityInventory, item.ID, snapshot, now)
		expected := item.Version
		item.MarkDeleted(actor.UserID, now)

		err = s.store.SoftDeleteInventory(ctx, item, expected, entry)
		if err == nil {
			s.cache.InvalidateItem(ctx, actor.OwnerID, item.ID)
			metrics.RecycleBinOpsTotal.WithLabelValues("delete", string(models.EntityInventory)).Inc()
			s.audit.Record(ctx, actor, models.AuditDeleteInventory, models.EntityInventory, item.ID,
				models.AuditMeta{Before: json.RawMessage(snapshot)})
			s.events.Publish(models.Event{Type: models.EventInventoryDeleted, OwnerID: actor.OwnerID, EntityID: item.ID, At: now})
			return entry, nil
		}
		if !apperrors.Is(err, apperrors.KindConcurrentModification) {
			return nil, err
		}
		metrics.CommitConflictsTotal.WithLabelValues("delete").Inc()
		if attempt >= s.maxAttempts {
			return nil, err
		}
	}
}

// DeleteCategory moves a category to the recycle bin unless an active item
// still references it.
func (s *RecycleBinService) DeleteCategory(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.RecycleBinEntry, error) {
	c, err := s.categories.Get(ctx, actor.OwnerID, id)
	if err != nil {
		return nil, err
	}
	if c.IsDeleted {
		return nil, apperrors.Conflict("category is already in the recycle bin")
	}
	snapshot, err := json.Marshal(c)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to snapshot category")
	}

	now := s.now()
	entry := s.newEntry(actor, models.EntityCategory, c.ID, snapshot, now)
	c.MarkDeleted(actor.UserID, now)
	if err := s.store.SoftDeleteCategory(ctx, c, entry); err != nil {
		return nil, err
	}

	metrics.RecycleBinOpsTotal.WithLabelValues("delete", string(models.EntityCategory)).Inc()
	s.audit.Record(ctx, actor, models.AuditDeleteCategory, models.EntityCategory, c.ID,
		models.AuditMeta{Before: json.RawMessage(snapshot)})
	s.events.Publish(models.Event{Type: models.EventCategoryDeleted, OwnerID: actor.OwnerID, EntityID: c.ID, At: now})
	return entry, nil
}

func (s *RecycleBinService) List(ctx context.Context, actor models.Actor, f models.RecycleBinFilter) (models.PagedResult[*models.RecycleBinEntry], error) {
	if f.EntityType != "" && !f.EntityType.Valid() {
		return models.PagedResult[*models.RecycleBinEntry]{}, apperrors.Validation("entity type must be inventory or category")
	}
	entries, total, err := s.store.List(ctx, actor.OwnerID, f)
	if err != nil {
		return models.PagedResult[*models.RecycleBinEntry]{}, err
	}
	return models.NewPagedResult(entries, total, f.Page), nil
}

// Restore brings entries back one by one. A failing entry does not stop the
// rest; outcomes are reported per id.
func (s *RecycleBinService) Restore(ctx context.Context, actor models.Actor, ids []uuid.UUID) (*models.RecycleBinResult, error) {
	if len(ids) == 0 {
		return nil, apperrors.Validation("at least one id is required")
	}
	result := &models.RecycleBinResult{Succeeded: []uuid.UUID{}}
	for _, id := range ids {
		if err := s.restoreOne(ctx, actor, id); err != nil {
			result.Failed = append(result.Failed, failure(id, err))
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	return result, nil
}

func (s *RecycleBinService) restoreOne(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	entry, err := s.store.Get(ctx, actor.OwnerID, id)
	if err != nil {
		return err
	}

	switch entry.EntityType {
	case models.EntityInventory:
		snapshot, err := entry.InventorySnapshot()
		if err != nil {
			return apperrors.Wrap(err, "corrupt inventory snapshot")
		}
		if err := s.store.RestoreInventory(ctx, entry, snapshot); err != nil {
			return err
		}
		s.cache.InvalidateItem(ctx, actor.OwnerID, entry.EntityID)
		s.events.Publish(models.Event{Type: models.EventInventoryRestored, OwnerID: actor.OwnerID, EntityID: entry.EntityID, At: s.now()})
	case models.EntityCategory:
		snapshot, err := entry.CategorySnapshot()
		if err != nil {
			return apperrors.Wrap(err, "corrupt category snapshot")
		}
		if err := s.store.RestoreCategory(ctx, entry, snapshot); err != nil {
			return err
		}
		s.events.Publish(models.Event{Type: models.EventCategoryRestored, OwnerID: actor.OwnerID, EntityID: entry.EntityID, At: s.now()})
	default:
		return apperrors.Validation("unknown entity type").WithDetail("entity_type", entry.EntityType)
	}

	metrics.RecycleBinOpsTotal.WithLabelValues("restore", string(entry.EntityType)).Inc()
	s.audit.Record(ctx, actor, models.AuditRestore, entry.EntityType, entry.EntityID,
		models.AuditMeta{After: entry.EntityData})
	return nil
}

// Purge removes entries permanently. Admin only.
func (s *RecycleBinService) Purge(ctx context.Context, actor models.Actor, ids []uuid.UUID) (*models.RecycleBinResult, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.New(apperrors.KindForbidden, "only admins can purge the recycle bin")
	}
	if len(ids) == 0 {
		return nil, apperrors.Validation("at least one id is required")
	}
	result := &models.RecycleBinResult{Succeeded: []uuid.UUID{}}
	for _, id := range ids {
		entry, err := s.store.Get(ctx, actor.OwnerID, id)
		if err == nil {
			err = s.purgeEntry(ctx, entry)
		}
		if err != nil {
			result.Failed = append(result.Failed, failure(id, err))
			continue
		}
		s.audit.Record(ctx, actor, models.AuditPurge, entry.EntityType, entry.EntityID, models.AuditMeta{})
		result.Succeeded = append(result.Succeeded, id)
	}
	return result, nil
}

// Empty purges every entry of the tenant. Admin only.
func (s *RecycleBinService) Empty(ctx context.Context, actor models.Actor) (*models.RecycleBinResult, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.New(apperrors.KindForbidden, "only admins can empty the recycle bin")
	}
	entries, err := s.store.ListAll(ctx, actor.OwnerID)
	if err != nil {
		return nil, err
	}
	result := &models.RecycleBinResult{Succeeded: []uuid.UUID{}}
	for _, entry := range entries {
		if err := s.purgeEntry(ctx, entry); err != nil {
			result.Failed = append(result.Failed, failure(entry.ID, err))
			continue
		}
		s.audit.Record(ctx, actor, models.AuditPurge, entry.EntityType, entry.EntityID, models.AuditMeta{Note: "empty"})
		result.Succeeded = append(result.Succeeded, entry.ID)
	}
	return result, nil
}

// PurgeExpired purges entries whose retention has elapsed, across tenants.
// Entries that cannot be archived are skipped and retried on the next run.
func (s *RecycleBinService) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	purged := 0
	skipped := make(map[uuid.UUID]bool)
	for {
		limit := s.batchSize + len(skipped)
		entries, err := s.store.ListExpired(ctx, now, limit)
		if err != nil {
			return purged, err
		}
		fresh := false
		for _, entry := range entries {
			if skipped[entry.ID] {
				continue
			}
			fresh = true
			if err := s.purgeEntry(ctx, entry); err != nil {
				s.log.Warn("expired entry not purged",
					zap.String("entry_id", entry.ID.String()),
					zap.Error(err))
				skipped[entry.ID] = true
				continue
			}
			purged++
		}
		if !fresh || len(entries) < limit {
			return purged, nil
		}
	}
}

// StartPurger runs PurgeExpired every interval until ctx is done.
func (s *RecycleBinService) StartPurger(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.PurgeExpired(ctx, s.now())
				if err != nil {
					s.log.Error("recycle bin purge failed", zap.Error(err))
					continue
				}
				if n > 0 {
					s.log.Info("purged expired recycle bin entries", zap.Int("count", n))
				}
			}
		}
	}()
}

func (s *RecycleBinService) purgeEntry(ctx context.Context, entry *models.RecycleBinEntry) error {
	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, entry); err != nil {
			return apperrors.Wrap(err, "failed to archive snapshot before purge")
		}
	}
	if err := s.store.Purge(ctx, entry); err != nil {
		return err
	}
	if entry.EntityType == models.EntityInventory {
		s.cache.InvalidateItem(ctx, entry.OwnerID, entry.EntityID)
	}
	metrics.RecycleBinOpsTotal.WithLabelValues("purge", string(entry.EntityType)).Inc()
	s.events.Publish(models.Event{Type: models.EventRecycleBinPurged, OwnerID: entry.OwnerID, EntityID: entry.EntityID, At: s.now()})
	return nil
}

func (s *RecycleBinService) newEntry(actor models.Actor, t models.EntityType, entityID uuid.UUID, snapshot []byte, now time.Time) *models.RecycleBinEntry {
	return &models.RecycleBinEntry{
		ID:         uuid.New(),
		OwnerID:    actor.OwnerID,
		EntityType: t,
		EntityID:   entityID,
		EntityData: snapshot,
		DeletedBy:  actor.UserID,
		DeletedAt:  now,
		ExpiresAt:  now.Add(s.retention),
	}
}

func failure(id uuid.UUID, err error) models.RecycleBinFailure {
	pub := apperrors.Public(err)
	return models.RecycleBinFailure{ID: id, Kind: string(pub.Kind), Message: pub.Message}
}
