package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/pricewatch/internal/model"
)

// PostgresReadingRepo はPostgreSQLを使用した価格履歴リポジトリ。
type PostgresReadingRepo struct {
	db *sql.DB
}

// NewPostgresReadingRepo はPostgresReadingRepoを生成する。
func NewPostgresReadingRepo(db *sql.DB) *PostgresReadingRepo {
	return &PostgresReadingRepo{db: db}
}

// Append は価格履歴を1件追記する。
func (r *PostgresReadingRepo) Append(ctx context.Context, reading *model.PriceReading) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO price_readings (id, item_id, price, currency, raw_text, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		reading.ID, reading.ItemID, int64(reading.Price),
		nullString(reading.Currency), nullString(reading.RawText),
		reading.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("価格履歴の追記に失敗しました: %w", err)
	}
	return nil
}

// ListByItemID は監視対象の価格履歴をcreated_at降順で返す。
// cursorがゼロ値の場合は先頭から取得する。
func (r *PostgresReadingRepo) ListByItemID(ctx context.Context, itemID string, cursor time.Time, limit int) ([]*model.PriceReading, error) {
	if limit <= 0 {
		limit = 50
	}
	if cursor.IsZero() {
		cursor = time.Now().Add(time.Hour)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, item_id, price, currency, raw_text, created_at
		 FROM price_readings
		 WHERE item_id = $1 AND created_at < $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		itemID, cursor, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("価格履歴の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var readings []*model.PriceReading
	for rows.Next() {
		reading := &model.PriceReading{}
		var price int64
		var currency, rawText sql.NullString

		if err := rows.Scan(
			&reading.ID, &reading.ItemID, &price,
			&currency, &rawText, &reading.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("価格履歴の読み取りに失敗しました: %w", err)
		}

		reading.Price = model.Money(price)
		reading.Currency = nullStringValue(currency)
		reading.RawText = nullStringValue(rawText)

		readings = append(readings, reading)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("価格履歴の走査に失敗しました: %w", err)
	}

	return readings, nil
}

// compile-time interface check
var _ ReadingRepository = (*PostgresReadingRepo)(nil)
