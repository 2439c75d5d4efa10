package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestPostJSON はPostJSONメソッドを検証する。
func TestPostJSON(t *testing.T) {
	t.Parallel()

	t.Run("JSONボディを送信しレスポンスをデコードできること", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("メソッド: got %s, want POST", r.Method)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type: got %q, want application/json", ct)
			}

			var body map[string]string
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("リクエストボディのデコードに失敗: %v", err)
			}
			if body["name"] != "test" {
				t.Errorf("name: got %q, want test", body["name"])
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"id": "generated-id"})
		}))
		t.Cleanup(server.Close)

		client := New(server.URL)
		var result map[string]string
		err := client.PostJSON(context.Background(), "/api/v1/items", map[string]string{"name": "test"}, &result)
		if err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}

		if result["id"] != "generated-id" {
			t.Errorf("id: got %q, want generated-id", result["id"])
		}
	})

	t.Run("resultがnilの場合はレスポンスボディを読み捨てること", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(server.Close)

		client := New(server.URL)
		if err := client.PostJSON(context.Background(), "/", map[string]string{"k": "v"}, nil); err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}
	})

	t.Run("2xx以外のステータスコードはエラーになること", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		t.Cleanup(server.Close)

		client := New(server.URL)
		if err := client.PostJSON(context.Background(), "/", nil, nil); err == nil {
			t.Error("500レスポンスでエラーが返らない")
		}
	})
}

// TestGetJSON はGetJSONメソッドを検証する。
func TestGetJSON(t *testing.T) {
	t.Parallel()

	t.Run("GETリクエストを送信しレスポンスをデコードできること", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("メソッド: got %s, want GET", r.Method)
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"count": 3})
		}))
		t.Cleanup(server.Close)

		client := New(server.URL)
		var result map[string]any
		if err := client.GetJSON(context.Background(), "/api/v1/count", &result); err != nil {
			t.Fatalf("GetJSON()でエラーが発生: %v", err)
		}

		if result["count"] != float64(3) {
			t.Errorf("count: got %v, want 3", result["count"])
		}
	})

	t.Run("接続先が存在しない場合はエラーになること", func(t *testing.T) {
		t.Parallel()

		client := New("http://127.0.0.1:1")
		var result map[string]any
		if err := client.GetJSON(context.Background(), "/", &result); err == nil {
			t.Error("接続失敗でエラーが返らない")
		}
	})
}
