package repository

import (
	"context"
	"database/sql"
	"time"

	"meetsync-api/core/database"
	"meetsync-api/core/logger"
	"meetsync-api/modules/proposal/entity"

	"github.com/google/uuid"
)

// ProposalRepository owns proposed_times rows and the event-level cache
// columns (proposals_stale, proposals_generated_at).
type ProposalRepository struct {
	DB database.Database
}

func NewProposalRepository(db database.Database) *ProposalRepository {
	return &ProposalRepository{DB: db}
}

type ProposalRepositoryInterface interface {
	GetProposalsByEventID(ctx context.Context, eventID uuid.UUID) ([]entity.ProposedTime, error)
	ReplaceProposals(ctx context.Context, eventID uuid.UUID, proposals []entity.ProposedTime, generatedAt time.Time) error
	MarkStale(ctx context.Context, eventID uuid.UUID) error
	GetCacheMeta(ctx context.Context, eventID uuid.UUID) (stale bool, generatedAt *time.Time, err error)
	ListStaleEventIDs(ctx context.Context, max int) ([]uuid.UUID, error)
}

func (r *ProposalRepository) GetProposalsByEventID(ctx context.Context, eventID uuid.UUID) ([]entity.ProposedTime, error) {
	query := `
		SELECT id, event_id, start_utc, end_utc, conflicts, reasoning, rank, created_at
		FROM proposed_times
		WHERE event_id = $1
		ORDER BY rank
	`

	var proposals []entity.ProposedTime
	err := r.DB.SelectContext(ctx, &proposals, query, eventID)
	if err != nil {
		logger.Error("ProposalRepository:GetProposalsByEventID", err)
		return nil, err
	}

	return proposals, nil
}

// ReplaceProposals swaps every stored row for the event in one transaction
// and clears the stale flag. Partial updates are never performed so ranks
// stay consistent.
func (r *ProposalRepository) ReplaceProposals(ctx context.Context, eventID uuid.UUID, proposals []entity.ProposedTime, generatedAt time.Time) error {
	tx, err := r.DB.SQLx().BeginTxx(ctx, nil)
	if err != nil {
		logger.Error("ProposalRepository:ReplaceProposals:Begin", err)
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM proposed_times WHERE event_id = $1`, eventID); err != nil {
		logger.Error("ProposalRepository:ReplaceProposals:Delete", err)
		return err
	}

	insert := `
		INSERT INTO proposed_times (event_id, start_utc, end_utc, conflicts, reasoning, rank)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, p := range proposals {
		if _, err := tx.ExecContext(ctx, insert,
			eventID, p.StartUTC, p.EndUTC, p.Conflicts, p.Reasoning, p.Rank); err != nil {
			logger.Error("ProposalRepository:ReplaceProposals:Insert", err)
			return err
		}
	}

	clearStale := `
		UPDATE events
		SET proposals_stale = false, proposals_generated_at = $2, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, clearStale, eventID, generatedAt); err != nil {
		logger.Error("ProposalRepository:ReplaceProposals:ClearStale", err)
		return err
	}

	if err := tx.Commit(); err != nil {
		logger.Error("ProposalRepository:ReplaceProposals:Commit", err)
		return err
	}

	return nil
}

// MarkStale sets the event flag without touching stored rows.
func (r *ProposalRepository) MarkStale(ctx context.Context, eventID uuid.UUID) error {
	query := `UPDATE events SET proposals_stale = true, updated_at = NOW() WHERE id = $1`
	err := r.DB.ExecContext(ctx, query, eventID)
	if err != nil {
		logger.Error("ProposalRepository:MarkStale", err)
		return err
	}
	return nil
}

func (r *ProposalRepository) GetCacheMeta(ctx context.Context, eventID uuid.UUID) (bool, *time.Time, error) {
	query := `SELECT proposals_stale, proposals_generated_at FROM events WHERE id = $1`

	var row struct {
		Stale       bool       `db:"proposals_stale"`
		GeneratedAt *time.Time `db:"proposals_generated_at"`
	}
	err := r.DB.GetContext(ctx, &row, query, eventID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil, sql.ErrNoRows
		}
		logger.Error("ProposalRepository:GetCacheMeta", err)
		return false, nil, err
	}

	return row.Stale, row.GeneratedAt, nil
}

// ListStaleEventIDs selects stale events in non-terminal status, oldest
// generation first, for the batch regenerator.
func (r *ProposalRepository) ListStaleEventIDs(ctx context.Context, max int) ([]uuid.UUID, error) {
	query := `
		SELECT id
		FROM events
		WHERE proposals_stale = true AND status = 'pending'
		ORDER BY proposals_generated_at NULLS FIRST
		LIMIT $1
	`

	var ids []uuid.UUID
	err := r.DB.SelectContext(ctx, &ids, query, max)
	if err != nil {
		logger.Error("ProposalRepository:ListStaleEventIDs", err)
		return nil, err
	}

	return ids, nil
}
