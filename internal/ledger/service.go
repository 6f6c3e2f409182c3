package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/paypadi/wallet-backend/pkg/db"
	"github.com/paypadi/wallet-backend/pkg/db/models"
	"github.com/paypadi/wallet-backend/pkg/enums"
	pkgerrors "github.com/paypadi/wallet-backend/pkg/errors"
)

// Service owns the journal's append-only discipline: entries are written
// once, deduplicated on the idempotency key, and only move through the
// allowed status transitions.
type Service struct {
	repo Repository
}

// NewService builds a ledger service.
func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &Service{repo: repo}, nil
}

// Repo exposes the underlying repository for transactional composition.
func (s *Service) Repo() Repository {
	return s.repo
}

// Append writes a journal entry inside the caller's transaction. When the
// entry's idempotency key already exists, the stored entry is returned with
// created=false and nothing is written. This is the single dedupe point for
// retried client requests and re-delivered provider events.
func (s *Service) Append(ctx context.Context, tx *gorm.DB, entry *models.LedgerEntry) (*models.LedgerEntry, bool, error) {
	if entry == nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "entry required")
	}
	if entry.AccountID == uuid.Nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "entry account id required")
	}
	if entry.AmountMinor <= 0 {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "entry amount must be positive")
	}
	if !entry.Direction.IsValid() {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "invalid entry direction")
	}
	if !entry.Category.IsValid() {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "invalid entry category")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	repo := s.repo.WithTx(tx)
	if err := repo.Create(ctx, entry); err != nil {
		if entry.IdempotencyKey != nil && dbpkg.IsUniqueViolation(err, "") {
			existing, findErr := repo.FindByIdempotencyKey(ctx, *entry.IdempotencyKey)
			if findErr != nil {
				return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load duplicate entry")
			}
			return existing, false, nil
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append journal entry")
	}
	return entry, true, nil
}

// Transition moves an entry to a new status, enforcing the journal's state
// machine: pending entries complete or fail, completed entries may only be
// reversed, terminal entries never change again.
func (s *Service) Transition(ctx context.Context, tx *gorm.DB, entryID uuid.UUID, to enums.EntryStatus, failureReason *string) (*models.LedgerEntry, error) {
	repo := s.repo.WithTx(tx)
	entry, err := repo.FindByID(ctx, entryID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger entry")
	}

	if !transitionAllowed(entry.Status, to) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("cannot move entry from %s to %s", entry.Status, to))
	}

	moved, err := repo.TransitionStatus(ctx, entryID, entry.Status, to, failureReason)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition ledger entry")
	}
	if !moved {
		// A concurrent finalizer won the conditional update.
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "entry status changed concurrently")
	}

	entry.Status = to
	if failureReason != nil {
		entry.FailureReason = failureReason
	}
	return entry, nil
}

// GetEntry loads a single journal entry.
func (s *Service) GetEntry(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger entry")
	}
	return entry, nil
}

// FindByIdempotencyKey looks up the entry recorded for a client reference.
func (s *Service) FindByIdempotencyKey(ctx context.Context, key string) (*models.LedgerEntry, error) {
	entry, err := s.repo.FindByIdempotencyKey(ctx, key)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger entry")
	}
	return entry, nil
}

// List returns a newest-first page of the account's journal.
func (s *Service) List(ctx context.Context, query ListQuery) ([]models.LedgerEntry, string, error) {
	if query.AccountID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	entries, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}
	return entries, next, nil
}

func transitionAllowed(from, to enums.EntryStatus) bool {
	switch from {
	case enums.EntryStatusPending:
		return to == enums.EntryStatusCompleted || to == enums.EntryStatusFailed
	case enums.EntryStatusCompleted:
		return to == enums.EntryStatusReversed
	default:
		return false
	}
}
