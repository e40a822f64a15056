package repository

import (
	"context"

	"meetsync-api/core/database"
	"meetsync-api/core/logger"
	"meetsync-api/modules/availability/entity"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// AvailabilityRepository handles busy_slots and preferred_slots tables.
type AvailabilityRepository struct {
	DB database.Database
}

func NewAvailabilityRepository(db database.Database) *AvailabilityRepository {
	return &AvailabilityRepository{DB: db}
}

type AvailabilityRepositoryInterface interface {
	ListBusySlots(ctx context.Context, userIDs []uuid.UUID) ([]entity.BusySlot, error)
	ReplaceBusySlotsForUser(ctx context.Context, userID uuid.UUID, slots []entity.BusySlot) error

	ListPreferredSlots(ctx context.Context, eventID uuid.UUID) ([]entity.PreferredSlot, error)
	UpsertPreferredSlot(ctx context.Context, slot *entity.PreferredSlot) error
	DeletePreferredSlot(ctx context.Context, userID, eventID uuid.UUID, slotID uuid.UUID) error
}

func (r *AvailabilityRepository) ListBusySlots(ctx context.Context, userIDs []uuid.UUID) ([]entity.BusySlot, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, user_id, start_utc, end_utc
		FROM busy_slots
		WHERE user_id = ANY($1)
		ORDER BY start_utc
	`

	var slots []entity.BusySlot
	err := r.DB.SelectContext(ctx, &slots, query, pq.Array(userIDs))
	if err != nil {
		logger.Error("AvailabilityRepository:ListBusySlots", err)
		return nil, err
	}

	return slots, nil
}

// ReplaceBusySlotsForUser swaps a user's busy rows in one transaction, the
// resync semantics calendar providers expect.
func (r *AvailabilityRepository) ReplaceBusySlotsForUser(ctx context.Context, userID uuid.UUID, slots []entity.BusySlot) error {
	tx, err := r.DB.SQLx().BeginTxx(ctx, nil)
	if err != nil {
		logger.Error("AvailabilityRepository:ReplaceBusySlotsForUser:Begin", err)
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM busy_slots WHERE user_id = $1`, userID); err != nil {
		logger.Error("AvailabilityRepository:ReplaceBusySlotsForUser:Delete", err)
		return err
	}

	insert := `INSERT INTO busy_slots (user_id, start_utc, end_utc) VALUES ($1, $2, $3)`
	for _, s := range slots {
		if _, err := tx.ExecContext(ctx, insert, userID, s.StartUTC, s.EndUTC); err != nil {
			logger.Error("AvailabilityRepository:ReplaceBusySlotsForUser:Insert", err)
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Error("AvailabilityRepository:ReplaceBusySlotsForUser:Commit", err)
		return err
	}

	return nil
}

func (r *AvailabilityRepository) ListPreferredSlots(ctx context.Context, eventID uuid.UUID) ([]entity.PreferredSlot, error) {
	query := `
		SELECT id, user_id, event_id, start_utc, end_utc
		FROM preferred_slots
		WHERE event_id = $1
		ORDER BY start_utc
	`

	var slots []entity.PreferredSlot
	err := r.DB.SelectContext(ctx, &slots, query, eventID)
	if err != nil {
		logger.Error("AvailabilityRepository:ListPreferredSlots", err)
		return nil, err
	}

	return slots, nil
}

func (r *AvailabilityRepository) UpsertPreferredSlot(ctx context.Context, slot *entity.PreferredSlot) error {
	query := `
		INSERT INTO preferred_slots (user_id, event_id, start_utc, end_utc)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, event_id, start_utc) DO UPDATE SET end_utc = $4
	`

	err := r.DB.ExecContext(ctx, query, slot.UserID, slot.EventID, slot.StartUTC, slot.EndUTC)
	if err != nil {
		logger.Error("AvailabilityRepository:UpsertPreferredSlot", err)
		return err
	}

	return nil
}

func (r *AvailabilityRepository) DeletePreferredSlot(ctx context.Context, userID, eventID uuid.UUID, slotID uuid.UUID) error {
	query := `DELETE FROM preferred_slots WHERE id = $1 AND user_id = $2 AND event_id = $3`
	err := r.DB.ExecContext(ctx, query, slotID, userID, eventID)
	if err != nil {
		logger.Error("AvailabilityRepository:DeletePreferredSlot", err)
		return err
	}
	return nil
}
