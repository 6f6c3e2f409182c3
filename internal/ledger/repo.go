package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paypadi/wallet-backend/internal/repo"
	"github.com/paypadi/wallet-backend/pkg/db/models"
	"github.com/paypadi/wallet-backend/pkg/enums"
	"github.com/paypadi/wallet-backend/pkg/pagination"
)

// ListFilter narrows journal listings.
type ListFilter struct {
	Category  *enums.EntryCategory
	Status    *enums.EntryStatus
	Direction *enums.EntryDirection
	From      *time.Time
	To        *time.Time
}

// ListQuery bundles filters with pagination for journal reads.
type ListQuery struct {
	AccountID  uuid.UUID
	Filter     ListFilter
	Pagination pagination.Params
}

// Repository manages persistence for the ledger journal.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.LedgerEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.LedgerEntry, error)
	FindByCorrelationID(ctx context.Context, correlationID uuid.UUID) ([]models.LedgerEntry, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.EntryStatus, failureReason *string) (bool, error)
	List(ctx context.Context, query ListQuery) ([]models.LedgerEntry, string, error)
	ListExpiredPending(ctx context.Context, category enums.EntryCategory, cutoff time.Time, limit int) ([]models.LedgerEntry, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return r.base.DB(ctx).Create(entry).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.base.DB(ctx).
		Where("id = ?", id).
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) FindByIdempotencyKey(ctx context.Context, key string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.base.DB(ctx).
		Where("idempotency_key = ?", key).
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) FindByCorrelationID(ctx context.Context, correlationID uuid.UUID) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := r.base.DB(ctx).
		Where("correlation_id = ?", correlationID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// TransitionStatus flips an entry from one status to another as a single
// conditional update. It reports false when the entry was not in the expected
// status, which keeps concurrent finalizers from double-applying.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.EntryStatus, failureReason *string) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now(),
	}
	if failureReason != nil {
		updates["failure_reason"] = *failureReason
	}
	res := r.base.DB(ctx).
		Model(&models.LedgerEntry{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.LedgerEntry, string, error) {
	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}
	limit := pagination.NormalizeLimit(query.Pagination.Limit)

	qb := r.base.DB(ctx).
		Model(&models.LedgerEntry{}).
		Where("account_id = ?", query.AccountID)

	if query.Filter.Category != nil {
		qb = qb.Where("category = ?", *query.Filter.Category)
	}
	if query.Filter.Status != nil {
		qb = qb.Where("status = ?", *query.Filter.Status)
	}
	if query.Filter.Direction != nil {
		qb = qb.Where("direction = ?", *query.Filter.Direction)
	}
	if query.Filter.From != nil {
		qb = qb.Where("created_at >= ?", *query.Filter.From)
	}
	if query.Filter.To != nil {
		qb = qb.Where("created_at <= ?", *query.Filter.To)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var entries []models.LedgerEntry
	if err := qb.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1).
		Find(&entries).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		nextCursor = pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	return entries, nextCursor, nil
}

func (r *repository) ListExpiredPending(ctx context.Context, category enums.EntryCategory, cutoff time.Time, limit int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := r.base.DB(ctx).
		Where("category = ? AND status = ? AND created_at < ?", category, enums.EntryStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
