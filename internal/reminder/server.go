package reminder

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	reminderdb "github.com/nao1215/remind/internal/reminder/db"
	"github.com/nao1215/remind/pkg/message"
	"github.com/nao1215/remind/pkg/middleware"
	_ "modernc.org/sqlite"
)

// defaultListLimit は一覧取得の既定ページサイズ。
const defaultListLimit = 10

// maxListLimit は一覧取得で許可する最大ページサイズ。
const maxListLimit = 100

// Server はリマインダーサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// queries はsqlcが生成したクエリ実行オブジェクト。
	queries *reminderdb.Queries
	// db はSQLiteデータベース接続。
	db *sql.DB
	// dispatcher は期限到来リマインダーのディスパッチャ。
	dispatcher *Dispatcher
	// cleaner は送信済みリマインダーのクリーナー。
	cleaner *Cleaner
	// scanScope は作成時に各リマインダーへ付与する走査スコープ。
	scanScope string
}

// NewServer は新しいリマインダーサーバーを生成する。
// SQLiteデータベースの初期化とスキーマ作成を行う。
func NewServer(port string) (*Server, error) {
	dbPath := getEnvOr("REMINDER_DB_PATH", "/data/reminder.db?_journal_mode=WAL&_busy_timeout=5000")
	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := initSchema(sqlDB); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	notifierURL := getEnvOr("NOTIFIER_URL", "http://localhost:8086")
	scanScope := getEnvOr("DISPATCH_SCAN_SCOPE", "all")

	pageSize, err := strconv.ParseInt(getEnvOr("DISPATCH_PAGE_SIZE", "100"), 10, 64)
	if err != nil || pageSize < 1 {
		return nil, fmt.Errorf("DISPATCH_PAGE_SIZEが不正です: %q", os.Getenv("DISPATCH_PAGE_SIZE"))
	}
	isolateFailures := getEnvOr("DISPATCH_ISOLATE_FAILURES", "false") == "true"

	queries := reminderdb.New(sqlDB)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router:     router,
		port:       port,
		queries:    queries,
		db:         sqlDB,
		dispatcher: NewDispatcher(queries, NewHTTPPublisher(notifierURL), scanScope, pageSize, isolateFailures),
		cleaner:    NewCleaner(queries),
		scanScope:  scanScope,
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// Dispatcher はサーバーが保持するディスパッチャを返す。
// エントリポイントが定期実行ループを起動するために使用する。
func (s *Server) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "dev-secret-key"
	}

	api := s.router.Group("/api/v1")
	api.Use(middleware.JWTAuth(jwtSecret))
	{
		reminders := api.Group("/reminders")
		{
			// リマインダー作成
			reminders.POST("", s.handleCreate())
			// リマインダー一覧取得（ページング付き）
			reminders.GET("", s.handleList())
			// リマインダーの部分更新
			reminders.PATCH("/:id", s.handleEdit())
			// リマインダー削除
			reminders.DELETE("/:id", s.handleDelete())
		}
	}

	// スケジューラから呼び出される内部API。ユーザー認証は通らない
	internal := s.router.Group("/internal")
	{
		// 期限到来リマインダーのディスパッチを1回実行
		internal.POST("/dispatch", s.handleDispatch())
		// 保持期間を過ぎた送信済みリマインダーの削除
		internal.POST("/cleanup", s.handleCleanup())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "reminder"})
	})
}

// createReminderRequest はリマインダー作成リクエストのJSON構造。
type createReminderRequest struct {
	// Title はリマインダーのタイトル。
	Title string `json:"title" binding:"required"`
	// Description はリマインダーの説明。
	Description string `json:"description"`
	// TriggerAt は通知を発火する時刻（エポックミリ秒）。
	TriggerAt int64 `json:"trigger_at" binding:"required"`
	// NotificationChannels は通知チャネルの集合。省略時はemailのみ。
	NotificationChannels []message.Channel `json:"notification_channels"`
	// Metadata は呼び出し元が付与する不透明なメタデータ。
	Metadata map[string]any `json:"metadata"`
}

// editReminderRequest はリマインダー部分更新リクエストのJSON構造。
// 更新可能なのはタイトル・説明・トリガー時刻のみ。statusと所有者は変更できない。
type editReminderRequest struct {
	// Title はリマインダーのタイトル。
	Title *string `json:"title"`
	// Description はリマインダーの説明。
	Description *string `json:"description"`
	// TriggerAt は通知を発火する時刻（エポックミリ秒）。
	TriggerAt *int64 `json:"trigger_at"`
}

// reminderResponse はリマインダーのJSONレスポンス構造。
type reminderResponse struct {
	// UserID はリマインダーの所有者のユーザーID。
	UserID string `json:"user_id"`
	// ReminderID はリマインダーの一意識別子。
	ReminderID string `json:"reminder_id"`
	// Title はリマインダーのタイトル。
	Title string `json:"title"`
	// Description はリマインダーの説明。
	Description string `json:"description"`
	// TriggerAt は通知を発火する時刻（エポックミリ秒）。
	TriggerAt int64 `json:"trigger_at"`
	// Status は配信状態（pending または sent）。
	Status string `json:"status"`
	// NotificationChannels は通知チャネルの集合。
	NotificationChannels []message.Channel `json:"notification_channels"`
	// Metadata は呼び出し元が付与した不透明なメタデータ。
	Metadata map[string]any `json:"metadata"`
	// CreatedAt は作成日時（RFC3339形式）。
	CreatedAt string `json:"created_at"`
	// UpdatedAt は更新日時（RFC3339形式）。
	UpdatedAt string `json:"updated_at"`
}

// listRemindersResponse はリマインダー一覧のJSONレスポンス構造。
type listRemindersResponse struct {
	// Items はページ内のリマインダー。
	Items []reminderResponse `json:"items"`
	// NextToken は次ページ取得用の不透明なカーソル。最終ページでは省略される。
	NextToken string `json:"next_token,omitempty"`
}

// toReminderResponse はDB行をJSONレスポンスに変換する。
func toReminderResponse(r reminderdb.Reminder) reminderResponse {
	var channels []message.Channel
	if err := json.Unmarshal([]byte(r.NotificationChannels), &channels); err != nil {
		log.Printf("通知チャネルの解析エラー: reminder_id=%s, err=%v", r.ReminderID, err)
	}

	metadata := map[string]any{}
	if err := json.Unmarshal([]byte(r.Metadata), &metadata); err != nil {
		log.Printf("メタデータの解析エラー: reminder_id=%s, err=%v", r.ReminderID, err)
	}

	return reminderResponse{
		UserID:               r.UserID,
		ReminderID:           r.ReminderID,
		Title:                r.Title,
		Description:          r.Description,
		TriggerAt:            r.TriggerAt,
		Status:               r.Status,
		NotificationChannels: channels,
		Metadata:             metadata,
		CreatedAt:            r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            r.UpdatedAt.Format(time.RFC3339),
	}
}

// handleCreate はリマインダー作成を処理するハンドラを返す。
func (s *Server) handleCreate() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		var req createReminderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		channels := req.NotificationChannels
		if len(channels) == 0 {
			channels = []message.Channel{message.ChannelEmail}
		}
		channelsJSON, err := json.Marshal(channels)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "通知チャネルが不正です"})
			return
		}

		metadata := req.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadataJSON, err := json.Marshal(metadata)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "メタデータが不正です"})
			return
		}

		reminderID := uuid.New().String()
		if err := s.queries.CreateReminder(c.Request.Context(), reminderdb.CreateReminderParams{
			UserID:               userID,
			ReminderID:           reminderID,
			Title:                req.Title,
			Description:          req.Description,
			TriggerAt:            req.TriggerAt,
			ScanScope:            s.scanScope,
			NotificationChannels: string(channelsJSON),
			Metadata:             string(metadataJSON),
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "リマインダーの作成に失敗しました"})
			log.Printf("リマインダー作成エラー: %v", err)
			return
		}

		// 作成したリマインダーをDBから取得してレスポンスを返す
		created, err := s.queries.GetReminder(c.Request.Context(), reminderdb.GetReminderParams{
			UserID:     userID,
			ReminderID: reminderID,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "作成したリマインダーの取得に失敗しました"})
			log.Printf("リマインダー取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, toReminderResponse(created))
	}
}

// listCursor は一覧取得のページング継続位置。next_tokenにエンコードされる。
type listCursor struct {
	// TriggerAt は前ページ最終行のトリガー時刻。
	TriggerAt int64 `json:"trigger_at"`
	// ReminderID は前ページ最終行のリマインダーID。
	ReminderID string `json:"reminder_id"`
}

// encodeListCursor はカーソルを不透明なトークンにエンコードする。
func encodeListCursor(cur listCursor) string {
	jsonCur, _ := json.Marshal(cur)
	return base64.RawURLEncoding.EncodeToString(jsonCur)
}

// decodeListCursor は不透明なトークンをカーソルにデコードする。
func decodeListCursor(token string) (listCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return listCursor{}, fmt.Errorf("カーソルのデコードに失敗: %w", err)
	}
	var cur listCursor
	if err := json.Unmarshal(raw, &cur); err != nil {
		return listCursor{}, fmt.Errorf("カーソルの解析に失敗: %w", err)
	}
	return cur, nil
}

// handleList は認証済みユーザーのリマインダー一覧を返すハンドラを返す。
// トリガー時刻の降順（直近のものが先頭）で返す。limitが数値でない場合と
// next_tokenが解釈できない場合はエラーにし、既定値で読み替えない。
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		limit := int64(defaultListLimit)
		if limitStr := c.Query("limit"); limitStr != "" {
			parsed, err := strconv.ParseInt(limitStr, 10, 64)
			if err != nil || parsed < 1 || parsed > maxListLimit {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limitが不正です"})
				return
			}
			limit = parsed
		}

		var reminders []reminderdb.Reminder
		var err error
		if token := c.Query("next_token"); token != "" {
			cursor, decodeErr := decodeListCursor(token)
			if decodeErr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "next_tokenが不正です"})
				return
			}
			// 次ページの有無を判定するため1件多く取得する
			reminders, err = s.queries.ListRemindersByUserIDBefore(c.Request.Context(), reminderdb.ListRemindersByUserIDBeforeParams{
				UserID:           userID,
				BeforeTriggerAt:  cursor.TriggerAt,
				BeforeReminderID: cursor.ReminderID,
				Limit:            limit + 1,
			})
		} else {
			reminders, err = s.queries.ListRemindersByUserID(c.Request.Context(), reminderdb.ListRemindersByUserIDParams{
				UserID: userID,
				Limit:  limit + 1,
			})
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "リマインダー一覧の取得に失敗しました"})
			log.Printf("リマインダー一覧取得エラー: %v", err)
			return
		}

		resp := listRemindersResponse{Items: make([]reminderResponse, 0, len(reminders))}
		if int64(len(reminders)) > limit {
			reminders = reminders[:limit]
			last := reminders[len(reminders)-1]
			resp.NextToken = encodeListCursor(listCursor{
				TriggerAt:  last.TriggerAt,
				ReminderID: last.ReminderID,
			})
		}
		for _, r := range reminders {
			resp.Items = append(resp.Items, toReminderResponse(r))
		}

		c.JSON(http.StatusOK, resp)
	}
}

// handleEdit はリマインダーの部分更新を処理するハンドラを返す。
// 所有者チェックはUPDATE文のWHERE句で行い、読み取りと書き込みの間で
// 所有者が変わる余地を残さない。対象が存在しない場合と所有者が異なる
// 場合は区別せず、同じ汎用エラーを返す。
func (s *Server) handleEdit() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		reminderID := c.Param("id")

		var req editReminderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		if req.Title == nil && req.Description == nil && req.TriggerAt == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "更新するフィールドがありません"})
			return
		}

		params := reminderdb.UpdateReminderFieldsParams{
			UserID:     userID,
			ReminderID: reminderID,
		}
		if req.Title != nil {
			params.Title = sql.NullString{String: *req.Title, Valid: true}
		}
		if req.Description != nil {
			params.Description = sql.NullString{String: *req.Description, Valid: true}
		}
		if req.TriggerAt != nil {
			params.TriggerAt = sql.NullInt64{Int64: *req.TriggerAt, Valid: true}
		}

		updated, err := s.queries.UpdateReminderFields(c.Request.Context(), params)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "リマインダーを更新できませんでした"})
			log.Printf("リマインダー更新エラー: user_id=%s, reminder_id=%s, err=%v", userID, reminderID, err)
			return
		}

		c.JSON(http.StatusOK, toReminderResponse(updated))
	}
}

// handleDelete はリマインダー削除を処理するハンドラを返す。
// 編集と同じく、対象なしと所有者不一致は同じ汎用エラーに畳む。
func (s *Server) handleDelete() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		reminderID := c.Param("id")

		deleted, err := s.queries.DeleteReminder(c.Request.Context(), reminderdb.DeleteReminderParams{
			UserID:     userID,
			ReminderID: reminderID,
		})
		if err != nil || deleted == 0 {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "リマインダーを削除できませんでした"})
			log.Printf("リマインダー削除エラー: user_id=%s, reminder_id=%s, deleted=%d, err=%v", userID, reminderID, deleted, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// handleDispatch はディスパッチを1回実行するハンドラを返す。
// スケジューラ（1ティックにつき1回）から呼び出される。失敗時は
// 処理済み件数を返さず、汎用エラーのみを返す。
func (s *Server) handleDispatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := s.dispatcher.Dispatch(c.Request.Context(), time.Now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "リマインダーの送信処理に失敗しました"})
			log.Printf("ディスパッチエラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"processed_count": count})
	}
}

// handleCleanup は保持期間を過ぎた送信済みリマインダーの削除を実行するハンドラを返す。
func (s *Server) handleCleanup() gin.HandlerFunc {
	return func(c *gin.Context) {
		deleted, err := s.cleaner.Clean(c.Request.Context(), time.Now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "リマインダーの削除処理に失敗しました"})
			log.Printf("クリーンアップエラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"deleted_count": deleted})
	}
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
