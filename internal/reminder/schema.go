package reminder

import (
	"database/sql"
	"fmt"
)

// スキーマ定義。db/reminder/schema.sql と同期すること。
const schema = `
CREATE TABLE IF NOT EXISTS reminders (
    -- リマインダーの所有者のユーザーID
    user_id TEXT NOT NULL,
    -- 所有者内で一意なリマインダーID（UUID）
    reminder_id TEXT NOT NULL,
    -- リマインダーのタイトル
    title TEXT NOT NULL,
    -- リマインダーの説明
    description TEXT NOT NULL DEFAULT '',
    -- 通知を発火する時刻（エポックミリ秒）
    trigger_at INTEGER NOT NULL,
    -- 配信状態。pending から sent へ一方向にのみ遷移する
    status TEXT NOT NULL DEFAULT 'pending',
    -- 時刻インデックスを走査する際のスコープ。既定は全所有者横断の 'all'
    scan_scope TEXT NOT NULL DEFAULT 'all',
    -- 通知チャネルのJSON配列（例: ["email","sms"]）
    notification_channels TEXT NOT NULL DEFAULT '["email"]',
    -- 呼び出し元が付与する不透明なメタデータ（JSON）
    metadata TEXT NOT NULL DEFAULT '{}',
    -- 作成日時
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    -- 更新日時
    updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY (user_id, reminder_id)
);

-- 所有者ごとの一覧をトリガー時刻の降順で返すためのインデックス。
CREATE INDEX IF NOT EXISTS idx_reminders_user_trigger
    ON reminders(user_id, trigger_at DESC, reminder_id DESC);

-- スコープ内の期限到来リマインダーを時刻順に走査するためのインデックス。
CREATE INDEX IF NOT EXISTS idx_reminders_due
    ON reminders(scan_scope, status, trigger_at, reminder_id);
`

// initSchema はSQLiteデータベースにスキーマを適用する。
func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}
	return nil
}
