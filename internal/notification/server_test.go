package notification

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/market/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestHandler はインメモリSQLiteを使った通知ハンドラとルーターを構築する。
func setupTestHandler(t *testing.T) (*Service, *gin.Engine) {
	t.Helper()

	store, err := NewSQLiteStore(":memory:", nil)
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	service := NewService(store, newRecordingSender(), nil)
	router := gin.New()

	// JWTミドルウェアの代わりにテスト用のユーザーID設定ミドルウェアを使用する
	api := router.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		if v := c.GetHeader("X-User-ID"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err == nil {
				middleware.SetUser(c, id, "tester")
			}
		}
		c.Next()
	})
	NewHandler(service, zap.NewNop()).RegisterRoutes(api)

	return service, router
}

// createTestNotification はテスト用に通知をサービス経由で作成するヘルパー関数。
func createTestNotification(t *testing.T, s *Service, senderID, receiverID int64, title string) int64 {
	t.Helper()
	res, err := s.CreateAndGenerate(t.Context(), CreateParams{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Title:      title,
		Category:   CategoryNewComment,
	})
	if err != nil {
		t.Fatalf("テスト用通知の作成に失敗: %v", err)
	}
	return res.Notification.ID
}

// doRequest はテスト用のHTTPリクエストを実行し、レスポンスを返すヘルパー関数。
func doRequest(router *gin.Engine, method, path, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
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

// TestHandleListNotifications は通知一覧取得ハンドラのテスト。
func TestHandleListNotifications(t *testing.T) {
	t.Parallel()

	t.Run("通知が存在しない場合は空配列を返す", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestHandler(t)

		w := doRequest(router, http.MethodGet, "/api/v1/notifications", "1")

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		if result := parseJSONArray(t, w); len(result) != 0 {
			t.Errorf("配列の長さ: got %d, want 0", len(result))
		}
	})

	t.Run("自分宛ての通知のみを返す", func(t *testing.T) {
		t.Parallel()
		s, router := setupTestHandler(t)

		createTestNotification(t, s, 9, 1, "通知1")
		createTestNotification(t, s, 9, 1, "通知2")
		// 別ユーザーの通知は含まれないことを確認するため
		createTestNotification(t, s, 9, 2, "他ユーザー")

		w := doRequest(router, http.MethodGet, "/api/v1/notifications", "1")

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		if result := parseJSONArray(t, w); len(result) != 2 {
			t.Errorf("配列の長さ: got %d, want 2", len(result))
		}
	})

	t.Run("通知のフィールドが正しく返される", func(t *testing.T) {
		t.Parallel()
		s, router := setupTestHandler(t)

		createTestNotification(t, s, 9, 1, "テストタイトル")

		w := doRequest(router, http.MethodGet, "/api/v1/notifications", "1")

		result := parseJSONArray(t, w)
		if len(result) != 1 {
			t.Fatalf("配列の長さ: got %d, want 1", len(result))
		}
		notif := result[0]
		if notif["senderId"] != float64(9) {
			t.Errorf("senderId: got %v, want 9", notif["senderId"])
		}
		if notif["receiverId"] != float64(1) {
			t.Errorf("receiverId: got %v, want 1", notif["receiverId"])
		}
		if notif["title"] != "テストタイトル" {
			t.Errorf("title: got %v, want テストタイトル", notif["title"])
		}
		if notif["status"] != string(StatusUnread) {
			t.Errorf("status: got %v, want UNREAD", notif["status"])
		}
		if notif["isRead"] != false {
			t.Errorf("isRead: got %v, want false", notif["isRead"])
		}
		if _, ok := notif["productId"]; ok {
			t.Error("未設定のproductIdが含まれています")
		}
	})

	t.Run("ユーザーIDが未設定の場合はUnauthorized", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestHandler(t)

		w := doRequest(router, http.MethodGet, "/api/v1/notifications", "")

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
		s, router := setupTestHandler(t)

		createTestNotification(t, s, 9, 1, "未読1")
		createTestNotification(t, s, 9, 1, "未読2")
		readID := createTestNotification(t, s, 9, 1, "既読")
		if _, err := s.MarkRead(t.Context(), readID); err != nil {
			t.Fatalf("既読処理に失敗: %v", err)
		}

		w := doRequest(router, http.MethodGet, "/api/v1/notifications/unread", "1")

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		if result := parseJSONArray(t, w); len(result) != 2 {
			t.Errorf("配列の長さ: got %d, want 2", len(result))
		}
	})

	t.Run("ユーザーIDが未設定の場合はUnauthorized", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestHandler(t)

		w := doRequest(router, http.MethodGet, "/api/v1/notifications/unread", "")

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
		s, router := setupTestHandler(t)
		id := createTestNotification(t, s, 9, 1, "テスト")

		w := doRequest(router, http.MethodPut, fmt.Sprintf("/api/v1/notifications/%d/read", id), "1")

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
		}
		result := parseJSON(t, w)
		if result["status"] != string(StatusRead) {
			t.Errorf("status: got %v, want READ", result["status"])
		}
		if result["isRead"] != true {
			t.Errorf("isRead: got %v, want true", result["isRead"])
		}

		// 既読になったことを未読一覧で確認する
		w2 := doRequest(router, http.MethodGet, "/api/v1/notifications/unread", "1")
		if unread := parseJSONArray(t, w2); len(unread) != 0 {
			t.Errorf("未読通知の数: got %d, want 0", len(unread))
		}
	})

	t.Run("既読済みの通知を再度既読にしても成功する", func(t *testing.T) {
		t.Parallel()
		s, router := setupTestHandler(t)
		id := createTestNotification(t, s, 9, 1, "テスト")
		path := fmt.Sprintf("/api/v1/notifications/%d/read", id)

		doRequest(router, http.MethodPut, path, "1")
		w := doRequest(router, http.MethodPut, path, "1")

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("存在しない通知の場合はNotFound", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestHandler(t)

		w := doRequest(router, http.MethodPut, "/api/v1/notifications/999/read", "1")

		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("数値でない通知IDはBadRequest", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestHandler(t)

		w := doRequest(router, http.MethodPut, "/api/v1/notifications/abc/read", "1")

		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("他ユーザーの通知を既読にするとForbidden", func(t *testing.T) {
		t.Parallel()
		s, router := setupTestHandler(t)
		id := createTestNotification(t, s, 9, 1, "ユーザー1の通知")

		w := doRequest(router, http.MethodPut, fmt.Sprintf("/api/v1/notifications/%d/read", id), "2")

		if w.Code != http.StatusForbidden {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusForbidden)
		}
		n, err := s.Get(t.Context(), id)
		if err != nil {
			t.Fatalf("通知の取得に失敗: %v", err)
		}
		if n.Status != StatusUnread {
			t.Errorf("status: got %s, want UNREAD", n.Status)
		}
	})

	t.Run("ユーザーIDが未設定の場合はUnauthorized", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestHandler(t)

		w := doRequest(router, http.MethodPut, "/api/v1/notifications/1/read", "")

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}

// TestHandleMarkAllRead は全通知を既読にするハンドラのテスト。
func TestHandleMarkAllRead(t *testing.T) {
	t.Parallel()

	t.Run("正常に全通知を既読にできる", func(t *testing.T) {
		t.Parallel()
		s, router := setupTestHandler(t)

		createTestNotification(t, s, 9, 1, "通知1")
		createTestNotification(t, s, 9, 1, "通知2")
		createTestNotification(t, s, 9, 2, "他ユーザー")

		w := doRequest(router, http.MethodPut, "/api/v1/notifications/read-all", "1")

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		result := parseJSON(t, w)
		if result["updated"] != float64(2) {
			t.Errorf("updated: got %v, want 2", result["updated"])
		}

		others, err := s.ListUnread(t.Context(), 2)
		if err != nil {
			t.Fatalf("未読一覧の取得に失敗: %v", err)
		}
		if len(others) != 1 {
			t.Errorf("他ユーザーの未読数: got %d, want 1", len(others))
		}
	})

	t.Run("ユーザーIDが未設定の場合はUnauthorized", func(t *testing.T) {
		t.Parallel()
		_, router := setupTestHandler(t)

		w := doRequest(router, http.MethodPut, "/api/v1/notifications/read-all", "")

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}

// TestHandlerWithoutLogger はロガー未指定でもエラー応答を返せることを検証する。
func TestHandlerWithoutLogger(t *testing.T) {
	t.Parallel()

	t.Run("ストアのエラーでパニックせず500が返ること", func(t *testing.T) {
		t.Parallel()

		store, err := NewSQLiteStore(":memory:", nil)
		if err != nil {
			t.Fatalf("インメモリDBの作成に失敗: %v", err)
		}
		store.Close()

		router := gin.New()
		api := router.Group("/api/v1")
		api.Use(func(c *gin.Context) {
			middleware.SetUser(c, 1, "tester")
			c.Next()
		})
		NewHandler(NewService(store, newRecordingSender(), nil), nil).RegisterRoutes(api)

		w := doRequest(router, http.MethodGet, "/api/v1/notifications", "")
		if w.Code != http.StatusInternalServerError {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusInternalServerError)
		}
	})
}
