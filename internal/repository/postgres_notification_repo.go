package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/pricewatch/internal/model"
)

// PostgresNotificationRepo はPostgreSQLを使用した通知イベントリポジトリ。
type PostgresNotificationRepo struct {
	db *sql.DB
}

// NewPostgresNotificationRepo はPostgresNotificationRepoを生成する。
func NewPostgresNotificationRepo(db *sql.DB) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{db: db}
}

// scanNotificationEvent は1行を*model.NotificationEventに読み取る。
func scanNotificationEvent(scan func(dest ...any) error) (*model.NotificationEvent, error) {
	event := &model.NotificationEvent{}
	var oldPrice, newPrice, pctChange sql.NullInt64
	var errorMessage sql.NullString

	if err := scan(
		&event.ID, &event.ItemID, &event.UserID, &event.Type,
		&oldPrice, &newPrice, &pctChange, &errorMessage, &event.CreatedAt,
	); err != nil {
		return nil, err
	}

	if oldPrice.Valid {
		p := model.Money(oldPrice.Int64)
		event.OldPrice = &p
	}
	if newPrice.Valid {
		p := model.Money(newPrice.Int64)
		event.NewPrice = &p
	}
	if pctChange.Valid {
		p := model.Percent(pctChange.Int64)
		event.PctChange = &p
	}
	event.ErrorMessage = nullStringValue(errorMessage)

	return event, nil
}

// nullPercent は*model.Percentをsql.NullInt64に変換する。
func nullPercent(p *model.Percent) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

// Append は通知イベントを1件追記する。
func (r *PostgresNotificationRepo) Append(ctx context.Context, event *model.NotificationEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notification_events (id, item_id, user_id, type, old_price,
		                                  new_price, pct_change, error_message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		event.ID, event.ItemID, event.UserID, event.Type,
		nullMoney(event.OldPrice), nullMoney(event.NewPrice),
		nullPercent(event.PctChange), nullString(event.ErrorMessage),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("通知イベントの追記に失敗しました: %w", err)
	}
	return nil
}

// LatestByItemAndType は監視対象・種別ごとの最新イベントを返す。
// 見つからない場合はnilを返す。
func (r *PostgresNotificationRepo) LatestByItemAndType(ctx context.Context, itemID string, eventType model.NotificationType) (*model.NotificationEvent, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, item_id, user_id, type, old_price, new_price,
		        pct_change, error_message, created_at
		 FROM notification_events
		 WHERE item_id = $1 AND type = $2
		 ORDER BY created_at DESC
		 LIMIT 1`,
		itemID, eventType,
	)

	event, err := scanNotificationEvent(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("最新通知イベントの取得に失敗しました: %w", err)
	}
	return event, nil
}

// ListByUserID はユーザーの通知履歴をcreated_at降順で返す。
func (r *PostgresNotificationRepo) ListByUserID(ctx context.Context, userID string, cursor time.Time, limit int) ([]*model.NotificationEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	if cursor.IsZero() {
		cursor = time.Now().Add(time.Hour)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, item_id, user_id, type, old_price, new_price,
		        pct_change, error_message, created_at
		 FROM notification_events
		 WHERE user_id = $1 AND created_at < $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		userID, cursor, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("通知履歴の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var events []*model.NotificationEvent
	for rows.Next() {
		event, err := scanNotificationEvent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("通知履歴の読み取りに失敗しました: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("通知履歴の走査に失敗しました: %w", err)
	}

	return events, nil
}

// compile-time interface check
var _ NotificationRepository = (*PostgresNotificationRepo)(nil)
