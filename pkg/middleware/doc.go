// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// JWT認証トークンの検証とユーザーIDの伝播、パニックリカバリ、
// CORS設定など、リマインダー関連サービスで共通して使用するミドルウェアを含む。
package middleware
