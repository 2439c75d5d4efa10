package notifier

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	notifierdb "github.com/nao1215/remind/internal/notifier/db"
	"github.com/nao1215/remind/pkg/message"
	_ "modernc.org/sqlite"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestServer はテスト用の通知サーバーをインメモリSQLiteで構築する。
func setupTestServer(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	if err := initSchema(sqlDB); err != nil {
		t.Fatalf("スキーマ初期化に失敗: %v", err)
	}

	router := gin.New()
	s := &Server{
		router:  router,
		port:    "0",
		queries: notifierdb.New(sqlDB),
		db:      sqlDB,
	}

	// JWTミドルウェアの代わりにテスト用のユーザーID設定ミドルウェアを使用する
	api := router.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	{
		notifications := api.Group("/notifications")
		{
			notifications.GET("", s.handleList())
			notifications.GET("/unread", s.handleListUnread())
			notifications.PUT("/:id/read", s.handleMarkAsRead())
			notifications.PUT("/read-all", s.handleMarkAllAsRead())
		}
	}

	internal := router.Group("/internal")
	{
		internal.POST("/messages", s.handleReceiveMessage())
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "notifier"})
	})

	return s, router
}

// createTestNotification はテスト用に通知をDBに直接挿入するヘルパー関数。
func createTestNotification(t *testing.T, s *Server, id, userID, channel, title, body string) {
	t.Helper()
	err := s.queries.CreateNotification(
		context.Background(),
		notifierdb.CreateNotificationParams{
			ID:      id,
			UserID:  userID,
			Channel: channel,
			Title:   title,
			Body:    body,
		},
	)
	if err != nil {
		t.Fatalf("テスト用通知の作成に失敗: %v", err)
	}
}

// doRequest はテスト用のHTTPリクエストを実行し、レスポンスを返すヘルパー関数。
func doRequest(router *gin.Engine, method, path, userID string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewReader(jsonBytes)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// parseJSON はレスポンスボディをmapにデコードするヘルパー関数。
func parseJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("JSONのデコードに失敗: %v, body=%s", err, w.Body.String())
	}
	return result
}

// parseJSONArray はレスポンスボディをスライスにデコードするヘルパー関数。
func parseJSONArray(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var result []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("JSON配列のデコードに失敗: %v, body=%s", err, w.Body.String())
	}
	return result
}

// TestHealthCheck はヘルスチェックエンドポイントの正常動作を検証する。
func TestHealthCheck(t *testing.T) {
	t.Parallel()

	_, router := setupTestServer(t)

	w := doRequest(router, http.MethodGet, "/health", "", nil)

	if w.Code != http.StatusOK {
		t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}

	result := parseJSON(t, w)
	if result["status"] != "ok" {
		t.Errorf("status: got %v, want ok", result["status"])
	}
	if result["service"] != "notifier" {
		t.Errorf("service: got %v, want notifier", result["service"])
	}
}

// TestHandleReceiveMessage はメッセージ受信（内部API）ハンドラのテスト。
func TestHandleReceiveMessage(t *testing.T) {
	t.Parallel()

	t.Run("チャネルごとに通知が1件ずつ保存される", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestServer(t)

		msg := message.NewReminderMessage("user-1", "ゴミ出し", "燃えるゴミの日", []message.Channel{
			message.ChannelEmail,
			message.ChannelSMS,
		})
		w := doRequest(router, http.MethodPost, "/internal/messages", "", msg)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
		}

		w2 := doRequest(router, http.MethodGet, "/api/v1/notifications", "user-1", nil)
		notifications := parseJSONArray(t, w2)
		if len(notifications) != 2 {
			t.Fatalf("通知の数: got %d, want 2", len(notifications))
		}

		channels := make(map[string]string, len(notifications))
		for _, n := range notifications {
			channels[n["channel"].(string)] = n["body"].(string)
		}
		if body, ok := channels["email"]; !ok {
			t.Error("emailチャネルの通知が保存されていません")
		} else if body != "Subject: リマインダー\n\nゴミ出し\n燃えるゴミの日" {
			t.Errorf("emailの本文: got %q", body)
		}
		if body, ok := channels["sms"]; !ok {
			t.Error("smsチャネルの通知が保存されていません")
		} else if body != "リマインダー: ゴミ出し" {
			t.Errorf("smsの本文: got %q", body)
		}
	})

	t.Run("チャネル固有の本文が無い場合はデフォルト本文で保存される", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestServer(t)

		msg := message.Message{
			Default: "デフォルト本文",
			PerChannel: map[message.Channel]string{
				message.ChannelEmail: "メール本文",
			},
			Attributes: message.Attributes{
				UserID:   "user-1",
				Channels: []message.Channel{message.ChannelEmail, message.ChannelPush},
			},
		}
		w := doRequest(router, http.MethodPost, "/internal/messages", "", msg)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
		}

		w2 := doRequest(router, http.MethodGet, "/api/v1/notifications", "user-1", nil)
		notifications := parseJSONArray(t, w2)
		if len(notifications) != 2 {
			t.Fatalf("通知の数: got %d, want 2", len(notifications))
		}

		channels := make(map[string]string, len(notifications))
		for _, n := range notifications {
			channels[n["channel"].(string)] = n["body"].(string)
		}
		if channels["email"] != "メール本文" {
			t.Errorf("emailの本文: got %q, want メール本文", channels["email"])
		}
		if channels["push"] != "デフォルト本文" {
			t.Errorf("pushの本文: got %q, want デフォルト本文", channels["push"])
		}
	})

	t.Run("未知のチャネルもデフォルト本文で保存される", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestServer(t)

		msg := message.Message{
			Default: "デフォルト本文",
			Attributes: message.Attributes{
				UserID:   "user-1",
				Channels: []message.Channel{"carrier-pigeon"},
			},
		}
		w := doRequest(router, http.MethodPost, "/internal/messages", "", msg)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
		}

		w2 := doRequest(router, http.MethodGet, "/api/v1/notifications", "user-1", nil)
		notifications := parseJSONArray(t, w2)
		if len(notifications) != 1 {
			t.Fatalf("通知の数: got %d, want 1", len(notifications))
		}
		if notifications[0]["channel"] != "carrier-pigeon" {
			t.Errorf("channel: got %v, want carrier-pigeon", notifications[0]["channel"])
		}
		if notifications[0]["body"] != "デフォルト本文" {
			t.Errorf("body: got %v, want デフォルト本文", notifications[0]["body"])
		}
	})

	t.Run("user_idが未指定の場合はBadRequest", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestServer(t)

		msg := message.Message{
			Default: "本文",
			Attributes: message.Attributes{
				Channels: []message.Channel{message.ChannelEmail},
			},
		}
		w := doRequest(router, http.MethodPost, "/internal/messages", "", msg)

		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("チャネルが空の場合はBadRequest", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestServer(t)

		msg := message.Message{
			Default: "本文",
			Attributes: message.Attributes{
				UserID: "user-1",
			},
		}
		w := doRequest(router, http.MethodPost, "/internal/messages", "", msg)

		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestHandleListNotifications は通知一覧取得ハンドラのテスト。
func TestHandleListNotifications(t *testing.T) {
	t.Parallel()

	t.Run("通知が存在しない場合は空配列を返す", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestServer(t)

		w := doRequest(router, http.MethodGet, "/api/v1/notifications", "user-1", nil)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}

		result := parseJSONArray(t, w)
		if len(result) != 0 {
			t.Errorf("配列の長さ: got %d, want 0", len(result))
		}
	})

	t.Run("自ユーザーの通知のみを取得できる", func(t *testing.T) {
		t.Parallel()
		s, router := setupTestServer(t)

		createTestNotification(t, s, "notif-1", "user-1", "email", "タイトル1", "本文1")
		createTestNotification(t, s, "notif-2", "user-1", "sms", "タイトル2", "本文2")
		// 別ユーザーの通知は含まれないことを確認するため
		createTestNotification(t, s, "notif-3", "user-2", "email", "他ユーザー", "他ユーザーの本文")

		w := doRequest(router, http.MethodGet, "/api/v1/notifications", "user-1", nil)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}

		result := parseJSONArray(t, w)
		if len(result) != 2 {
			t.Errorf("配列の長さ: got %d, want 2", len(result))
		}
	})

	t.Run("通知のフィールドが正しく返される", func(t *testing.T) {
		t.Parallel()
		s, router := setupTestServer(t)

		createTestNotification(t, s, "notif-1", "user-1", "push", "テストタイトル", "テスト本文")

		w := doRequest(router, http.MethodGet, "/api/v1/notifications", "user-1", nil)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}

		result := parseJSONArray(t, w)
		if len(result) != 1 {
			t.Fatalf("配列の長さ: got %d, want 1", len(result))
		}

		notif := result[0]
		if notif["id"] != "notif-1" {
			t.Errorf("id: got %v, want notif-1", notif["id"])
		}
		if notif["user_id"] != "user-1" {
			t.Errorf("user_id: got %v, want user-1", notif["user_id"])
		}
		if notif["channel"] != "push" {
			t.Errorf("channel: got %v, want push", notif["channel"])
		}
		if notif["title"] != "テストタイトル" {
			t.Errorf("title: got %v, want テストタイトル", notif["title"])
		}
		if notif["body"] != "テスト本文" {
			t.Errorf("body: got %v, want テスト本文", notif["body"])
		}
		if notif["is_read"] != false {
			t.Errorf("is_read: got %v, want false", notif["is_read"])
		}
	})

	t.Run("ユーザーIDが未設定の場合はUnauthorized", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestServer(t)

		w := doRequest(router, http.MethodGet, "/api/v1/notifications", "", nil)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}

// TestHandleListUnread は未読通知一覧取得ハンドラのテスト。
func TestHandleListUnread(t *testing.T) {
	t.Parallel()

	t.Run("未読通知のみを返す", func(t *testing.T) {
		t.Parallel()
		s, router := setupTestServer(t)

		createTestNotification(t, s, "notif-1", "user-1", "email", "未読1", "本文1")
		createTestNotification(t, s, "notif-2", "user-1", "email", "未読2", "本文2")
		createTestNotification(t, s, "notif-3", "user-1", "email", "既読", "本文3")

		// notif-3を既読にする
		if err := s.queries.MarkAsRead(context.Background(), "notif-3"); err != nil {
			t.Fatalf("既読処理に失敗: %v", err)
		}

		w := doRequest(router, http.MethodGet, "/api/v1/notifications/unread", "user-1", nil)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}

		result := parseJSONArray(t, w)
		if len(result) != 2 {
			t.Errorf("配列の長さ: got %d, want 2", len(result))
		}
	})

	t.Run("ユーザーIDが未設定の場合はUnauthorized", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestServer(t)

		w := doRequest(router, http.MethodGet, "/api/v1/notifications/unread", "", nil)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}

// TestHandleMarkRead は通知を既読にするハンドラのテスト。
func TestHandleMarkRead(t *testing.T) {
	t.Parallel()

	t.Run("正常に通知を既読にできる", func(t *testing.T) {
		t.Parallel()
		s, router := setupTestServer(t)

		createTestNotification(t, s, "notif-1", "user-1", "email", "テスト", "本文")

		w := doRequest(router, http.MethodPut, "/api/v1/notifications/notif-1/read", "user-1", nil)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
		}

		// 既読になったことを未読一覧で確認する
		w2 := doRequest(router, http.MethodGet, "/api/v1/notifications/unread", "user-1", nil)
		unread := parseJSONArray(t, w2)
		if len(unread) != 0 {
			t.Errorf("未読通知の数: got %d, want 0", len(unread))
		}
	})

	t.Run("存在しない通知の場合はNotFound", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestServer(t)

		w := doRequest(router, http.MethodPut, "/api/v1/notifications/nonexistent/read", "user-1", nil)

		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("他ユーザーの通知を既読にするとForbidden", func(t *testing.T) {
		t.Parallel()
		s, router := setupTestServer(t)

		createTestNotification(t, s, "notif-1", "user-1", "email", "ユーザー1の通知", "本文")

		w := doRequest(router, http.MethodPut, "/api/v1/notifications/notif-1/read", "user-2", nil)

		if w.Code != http.StatusForbidden {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusForbidden)
		}
	})
}

// TestHandleMarkAllRead は全通知を既読にするハンドラのテスト。
func TestHandleMarkAllRead(t *testing.T) {
	t.Parallel()

	t.Run("自ユーザーの全通知のみが既読になる", func(t *testing.T) {
		t.Parallel()
		s, router := setupTestServer(t)

		createTestNotification(t, s, "notif-1", "user-1", "email", "通知1", "本文1")
		createTestNotification(t, s, "notif-2", "user-1", "sms", "通知2", "本文2")
		createTestNotification(t, s, "notif-3", "user-2", "email", "ユーザー2の通知", "本文")

		w := doRequest(router, http.MethodPut, "/api/v1/notifications/read-all", "user-1", nil)
		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}

		w2 := doRequest(router, http.MethodGet, "/api/v1/notifications/unread", "user-1", nil)
		unread := parseJSONArray(t, w2)
		if len(unread) != 0 {
			t.Errorf("user-1の未読通知の数: got %d, want 0", len(unread))
		}

		// user-2の未読通知は残っていることを確認する
		w3 := doRequest(router, http.MethodGet, "/api/v1/notifications/unread", "user-2", nil)
		unread2 := parseJSONArray(t, w3)
		if len(unread2) != 1 {
			t.Errorf("user-2の未読通知の数: got %d, want 1", len(unread2))
		}
	})

	t.Run("通知が存在しない場合でも成功する", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestServer(t)

		w := doRequest(router, http.MethodPut, "/api/v1/notifications/read-all", "user-1", nil)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
	})
}

// TestReceiveAndMarkReadFlow はメッセージ受信から既読までの一連のフローを検証する。
func TestReceiveAndMarkReadFlow(t *testing.T) {
	t.Parallel()

	_, router := setupTestServer(t)

	msg := message.NewReminderMessage("user-1", "薬を飲む", "", []message.Channel{message.ChannelPush})
	w := doRequest(router, http.MethodPost, "/internal/messages", "", msg)
	if w.Code != http.StatusOK {
		t.Fatalf("メッセージ受信に失敗: status=%d, body=%s", w.Code, w.Body.String())
	}

	// 未読一覧に含まれることを確認する
	w2 := doRequest(router, http.MethodGet, "/api/v1/notifications/unread", "user-1", nil)
	unread := parseJSONArray(t, w2)
	if len(unread) != 1 {
		t.Fatalf("未読通知の数: got %d, want 1", len(unread))
	}

	notifID, ok := unread[0]["id"].(string)
	if !ok || notifID == "" {
		t.Fatal("通知にidが含まれていません")
	}

	// 既読にする
	w3 := doRequest(router, http.MethodPut, fmt.Sprintf("/api/v1/notifications/%s/read", notifID), "user-1", nil)
	if w3.Code != http.StatusOK {
		t.Errorf("既読処理のステータスコード: got %d, want %d", w3.Code, http.StatusOK)
	}

	// 未読一覧が空になったことを確認する
	w4 := doRequest(router, http.MethodGet, "/api/v1/notifications/unread", "user-1", nil)
	unreadAfter := parseJSONArray(t, w4)
	if len(unreadAfter) != 0 {
		t.Errorf("既読後の未読通知の数: got %d, want 0", len(unreadAfter))
	}

	// 全通知一覧には引き続き含まれることを確認する
	w5 := doRequest(router, http.MethodGet, "/api/v1/notifications", "user-1", nil)
	allNotifs := parseJSONArray(t, w5)
	if len(allNotifs) != 1 {
		t.Errorf("全通知の数: got %d, want 1", len(allNotifs))
	}
	if allNotifs[0]["is_read"] != true {
		t.Errorf("is_read: got %v, want true", allNotifs[0]["is_read"])
	}
}
