// Package reminder はリマインダーサービスの内部実装を提供する。
//
// リマインダーのCRUD APIに加えて、期限が到来したリマインダーを走査して
// 通知を発行し送信済みへ遷移させるディスパッチャと、送信済みリマインダーを
// 保持期間経過後に削除するクリーナーを含む。状態はすべてSQLiteに置き、
// プロセスは実行間で状態を持たない。
package reminder
