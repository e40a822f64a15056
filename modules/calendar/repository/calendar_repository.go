package repository

import (
	"context"
	"database/sql"

	"meetsync-api/core/database"
	"meetsync-api/core/logger"
	"meetsync-api/modules/calendar/entity"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type CalendarRepository interface {
	CreateConnection(ctx context.Context, conn *entity.CalendarConnection) (*entity.CalendarConnection, error)
	GetConnectionByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*entity.CalendarConnection, error)
	GetConnectionsByUserID(ctx context.Context, userID uuid.UUID) ([]entity.CalendarConnection, error)
	GetConnectionsByUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]entity.CalendarConnection, error)
	UpdateConnection(ctx context.Context, conn *entity.CalendarConnection) error
	DeleteConnection(ctx context.Context, userID uuid.UUID, provider string) error
}

type calendarRepository struct {
	db database.Database
}

func NewCalendarRepository(db database.Database) CalendarRepository {
	return &calendarRepository{db: db}
}

func (r *calendarRepository) CreateConnection(ctx context.Context, conn *entity.CalendarConnection) (*entity.CalendarConnection, error) {
	query := `
		INSERT INTO calendar_connections (user_id, provider, access_token, refresh_token, token_expires_at, calendar_email, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(
		ctx, query,
		conn.UserID, conn.Provider, conn.AccessToken, conn.RefreshToken,
		conn.TokenExpiresAt, conn.CalendarEmail, conn.IsActive,
	).Scan(&conn.ID, &conn.CreatedAt, &conn.UpdatedAt)
	if err != nil {
		logger.Error("CalendarRepository:CreateConnection", err)
		return nil, err
	}
	return conn, nil
}

func (r *calendarRepository) GetConnectionByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*entity.CalendarConnection, error) {
	query := `
		SELECT * FROM calendar_connections
		WHERE user_id = $1 AND provider = $2 AND is_active = true
	`
	var conn entity.CalendarConnection
	err := r.db.GetContext(ctx, &conn, query, userID, provider)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("CalendarRepository:GetConnectionByUserAndProvider", err)
		return nil, err
	}
	return &conn, nil
}

func (r *calendarRepository) GetConnectionsByUserID(ctx context.Context, userID uuid.UUID) ([]entity.CalendarConnection, error) {
	query := `
		SELECT * FROM calendar_connections
		WHERE user_id = $1 AND is_active = true
		ORDER BY provider
	`
	var connections []entity.CalendarConnection
	err := r.db.SelectContext(ctx, &connections, query, userID)
	if err != nil {
		logger.Error("CalendarRepository:GetConnectionsByUserID", err)
		return nil, err
	}
	return connections, nil
}

func (r *calendarRepository) GetConnectionsByUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]entity.CalendarConnection, error) {
	query := `
		SELECT * FROM calendar_connections
		WHERE user_id = ANY($1) AND is_active = true
	`
	var connections []entity.CalendarConnection
	err := r.db.SelectContext(ctx, &connections, query, pq.Array(userIDs))
	if err != nil {
		logger.Error("CalendarRepository:GetConnectionsByUserIDs", err)
		return nil, err
	}
	return connections, nil
}

func (r *calendarRepository) UpdateConnection(ctx context.Context, conn *entity.CalendarConnection) error {
	query := `
		UPDATE calendar_connections
		SET access_token = $3, refresh_token = $4, token_expires_at = $5, calendar_email = $6, is_active = $7, updated_at = NOW()
		WHERE user_id = $1 AND provider = $2
	`
	err := r.db.ExecContext(ctx, query,
		conn.UserID, conn.Provider, conn.AccessToken, conn.RefreshToken,
		conn.TokenExpiresAt, conn.CalendarEmail, conn.IsActive,
	)
	if err != nil {
		logger.Error("CalendarRepository:UpdateConnection", err)
		return err
	}
	return nil
}

func (r *calendarRepository) DeleteConnection(ctx context.Context, userID uuid.UUID, provider string) error {
	query := `UPDATE calendar_connections SET is_active = false, updated_at = NOW() WHERE user_id = $1 AND provider = $2`
	err := r.db.ExecContext(ctx, query, userID, provider)
	if err != nil {
		logger.Error("CalendarRepository:DeleteConnection", err)
		return err
	}
	return nil
}
