// Package notifier は通知サービスの内部実装を提供する。
//
// リマインダーサービスが発行したマルチチャネルメッセージを受け取り、
// ルーティング属性に列挙されたチャネルごとに本文を解決して配信する。
// 配信した通知はアプリ内インボックスとして保存し、一覧取得と既読管理を行う。
package notifier
