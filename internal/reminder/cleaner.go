package reminder

import (
	"context"
	"fmt"
	"time"

	reminderdb "github.com/nao1215/remind/internal/reminder/db"
)

// sentReminderRetention は送信済みリマインダーを保持する期間。
// トリガー時刻からこの期間が経過した送信済みリマインダーは削除対象になる。
const sentReminderRetention = 30 * 24 * time.Hour

// Cleaner は保持期間を過ぎた送信済みリマインダーを削除する。
// pendingのリマインダーは期限がどれだけ古くても削除しない。
type Cleaner struct {
	// queries はリマインダーストアへのクエリ実行オブジェクト。
	queries *reminderdb.Queries
}

// NewCleaner は新しいクリーナーを生成する。
func NewCleaner(queries *reminderdb.Queries) *Cleaner {
	return &Cleaner{queries: queries}
}

// Clean は保持期間を過ぎた送信済みリマインダーを削除し、削除件数を返す。
func (c *Cleaner) Clean(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-sentReminderRetention).UnixMilli()

	deleted, err := c.queries.DeleteExpiredSentReminders(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("期限切れリマインダーの削除に失敗: %w", err)
	}
	return deleted, nil
}
