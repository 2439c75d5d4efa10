// Package httpclient はサービス間のHTTP通信を行うクライアントを提供する。
//
// リマインダーサービスから通知サービスへのメッセージ発行など、
// サービス間の通信パターンを統一する。発行側はステータスコードの
// 成否のみを見る（配信確認は返らない）。
package httpclient
