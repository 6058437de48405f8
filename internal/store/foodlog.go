package store

import (
	"context"
	"database/sql"

	"github.com/snapcal/apiserver/types"
)

// FoodLogRepository handles persistence for food log entries. Entries are
// append-only; there is no update or delete.
type FoodLogRepository struct {
	db *sql.DB
}

func NewFoodLogRepository(db *sql.DB) *FoodLogRepository {
	return &FoodLogRepository{db: db}
}

func (r *FoodLogRepository) Create(ctx context.Context, log types.FoodLog) (types.FoodLog, error) {
	const query = `
		INSERT INTO food_logs (id, user_id, created_at, food_name, calories, protein, carbs, fat, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING seq`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		log.ID,
		log.UserID,
		log.CreatedAt,
		log.FoodName,
		log.Calories,
		log.Protein,
		log.Carbs,
		log.Fat,
		log.ImageURL,
	).Scan(&log.Seq); err != nil {
		return types.FoodLog{}, err
	}
	return log, nil
}

// ListByUser returns the user's entries newest first. Timestamp ties are
// broken by insertion order. A user with no entries gets an empty slice.
func (r *FoodLogRepository) ListByUser(ctx context.Context, userID string) ([]types.FoodLog, error) {
	const query = `
		SELECT id, seq, user_id, created_at, food_name, calories, protein, carbs, fat, image_url
		FROM food_logs
		WHERE user_id = $1
		ORDER BY created_at DESC, seq DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]types.FoodLog, 0)
	for rows.Next() {
		var log types.FoodLog
		if err := rows.Scan(
			&log.ID,
			&log.Seq,
			&log.UserID,
			&log.CreatedAt,
			&log.FoodName,
			&log.Calories,
			&log.Protein,
			&log.Carbs,
			&log.Fat,
			&log.ImageURL,
		); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}
