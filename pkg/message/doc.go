// Package message はサービス間で受け渡す通知メッセージの型を提供する。
//
// リマインダーサービスが発行し、通知サービスが購読する。
// メッセージはデフォルト本文とチャネル別本文を持ち、購読側は
// ルーティング属性に列挙されたチャネルごとに本文を解決して配信する。
package message
