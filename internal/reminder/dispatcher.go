package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	reminderdb "github.com/nao1215/remind/internal/reminder/db"
	"github.com/nao1215/remind/pkg/httpclient"
	"github.com/nao1215/remind/pkg/message"
)

// Publisher は通知メッセージの発行先。
// 発行は成否のみを返し、配信確認は得られない。
type Publisher interface {
	Publish(ctx context.Context, msg *message.Message) error
}

// httpPublisher はnotifierサービスへHTTPでメッセージを発行するPublisher。
type httpPublisher struct {
	client *httpclient.Client
}

// NewHTTPPublisher はnotifierサービスにメッセージを発行するPublisherを生成する。
func NewHTTPPublisher(baseURL string) Publisher {
	return &httpPublisher{client: httpclient.New(baseURL)}
}

// Publish はメッセージをnotifierサービスに送信する。
func (p *httpPublisher) Publish(ctx context.Context, msg *message.Message) error {
	return p.client.PostJSON(ctx, "/internal/messages", msg, nil)
}

// dispatchStore はディスパッチャが使用するストア操作の集合。
// 実体は *reminderdb.Queries が満たす。
type dispatchStore interface {
	ListDueReminders(ctx context.Context, arg reminderdb.ListDueRemindersParams) ([]reminderdb.ListDueRemindersRow, error)
	ListDueRemindersAfter(ctx context.Context, arg reminderdb.ListDueRemindersAfterParams) ([]reminderdb.ListDueRemindersAfterRow, error)
	MarkReminderSent(ctx context.Context, arg reminderdb.MarkReminderSentParams) error
}

// Dispatcher は期限が到来したリマインダーを走査し、通知を発行して
// 送信済みへ遷移させる。配信はat-least-once: 発行後かつ更新前に
// プロセスが落ちた場合、同じリマインダーが次回実行で再発行される。
//
// 同一スコープに対して実行を同時に重ねると同じリマインダーを
// 二重発行しうる。1ティックにつき1実行が前提で、排他制御は
// 外部スケジューラの責務とする。
type Dispatcher struct {
	// store はリマインダーストアへのクエリ実行オブジェクト。
	store dispatchStore
	// publisher は通知メッセージの発行先。
	publisher Publisher
	// scanScope は時刻インデックスを走査するスコープ。既定は全所有者横断の "all"。
	scanScope string
	// pageSize は期限到来クエリの1ページあたりの件数。
	pageSize int64
	// isolateFailures がtrueの場合、1件の失敗をログに残してスキップし、
	// 残りの処理を継続する。falseの場合は最初の失敗で実行全体を中断する。
	isolateFailures bool
}

// NewDispatcher は新しいディスパッチャを生成する。
func NewDispatcher(store dispatchStore, publisher Publisher, scanScope string, pageSize int64, isolateFailures bool) *Dispatcher {
	return &Dispatcher{
		store:           store,
		publisher:       publisher,
		scanScope:       scanScope,
		pageSize:        pageSize,
		isolateFailures: isolateFailures,
	}
}

// dueReminder は期限到来クエリの1件分の射影。
// trigger_atとreminder_idはページング継続のキーを兼ねる。
type dueReminder struct {
	userID               string
	reminderID           string
	title                string
	description          string
	triggerAt            int64
	notificationChannels string
	metadata             string
}

// dueCursor は期限到来クエリのページング継続位置。
type dueCursor struct {
	triggerAt  int64
	reminderID string
}

// Dispatch は1回分のディスパッチを実行し、処理した件数を返す。
// now時点で status=pending かつ trigger_at<=now のリマインダーが対象。
// スナップショット後に期限を迎えたリマインダーは次回実行に回る。
//
// 既定では最初の失敗で中断しエラーを返す。中断前に送信済みへ遷移した
// 分は巻き戻らない。isolateFailures時は失敗をスキップして継続し、
// 成功件数のみを返す。
func (d *Dispatcher) Dispatch(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.UnixMilli()
	processed := 0

	var cursor *dueCursor
	for {
		page, err := d.fetchDuePage(ctx, cutoff, cursor)
		if err != nil {
			return processed, fmt.Errorf("期限到来リマインダーの取得に失敗: %w", err)
		}
		if len(page) == 0 {
			return processed, nil
		}

		for _, r := range page {
			if err := d.processReminder(ctx, r); err != nil {
				if d.isolateFailures {
					log.Printf("[Dispatcher] リマインダーの処理に失敗したためスキップ: user_id=%s, reminder_id=%s, err=%v",
						r.userID, r.reminderID, err)
					continue
				}
				return processed, err
			}
			processed++
		}

		// ページサイズ未満なら走査は尽きている
		last := page[len(page)-1]
		cursor = &dueCursor{triggerAt: last.triggerAt, reminderID: last.reminderID}
		if int64(len(page)) < d.pageSize {
			return processed, nil
		}
	}
}

// fetchDuePage は期限到来リマインダーを1ページ分取得する。
// ストアがページングする場合でも全ページを順に消費することで、
// 同一実行内で後ろのリマインダーが取り残されないようにする。
func (d *Dispatcher) fetchDuePage(ctx context.Context, cutoff int64, cursor *dueCursor) ([]dueReminder, error) {
	if cursor == nil {
		rows, err := d.store.ListDueReminders(ctx, reminderdb.ListDueRemindersParams{
			ScanScope: d.scanScope,
			TriggerAt: cutoff,
			Limit:     d.pageSize,
		})
		if err != nil {
			return nil, err
		}
		page := make([]dueReminder, 0, len(rows))
		for _, r := range rows {
			page = append(page, dueReminder{
				userID:               r.UserID,
				reminderID:           r.ReminderID,
				title:                r.Title,
				description:          r.Description,
				triggerAt:            r.TriggerAt,
				notificationChannels: r.NotificationChannels,
				metadata:             r.Metadata,
			})
		}
		return page, nil
	}

	rows, err := d.store.ListDueRemindersAfter(ctx, reminderdb.ListDueRemindersAfterParams{
		ScanScope:       d.scanScope,
		TriggerAt:       cutoff,
		AfterTriggerAt:  cursor.triggerAt,
		AfterReminderID: cursor.reminderID,
		Limit:           d.pageSize,
	})
	if err != nil {
		return nil, err
	}
	page := make([]dueReminder, 0, len(rows))
	for _, r := range rows {
		page = append(page, dueReminder{
			userID:               r.UserID,
			reminderID:           r.ReminderID,
			title:                r.Title,
			description:          r.Description,
			triggerAt:            r.TriggerAt,
			notificationChannels: r.NotificationChannels,
			metadata:             r.Metadata,
		})
	}
	return page, nil
}

// processReminder は1件のリマインダーについて通知を発行し、送信済みへ遷移させる。
func (d *Dispatcher) processReminder(ctx context.Context, r dueReminder) error {
	var channels []message.Channel
	if err := json.Unmarshal([]byte(r.notificationChannels), &channels); err != nil {
		return fmt.Errorf("通知チャネルの解析に失敗: reminder_id=%s: %w", r.reminderID, err)
	}

	msg := message.NewReminderMessage(r.userID, r.title, r.description, channels)

	// 発行が成功した後にのみ送信済みへ遷移させる。順序を逆にすると
	// クラッシュ時に通知が発行されないまま送信済みになってしまう。
	if err := d.publisher.Publish(ctx, msg); err != nil {
		return fmt.Errorf("通知の発行に失敗: reminder_id=%s: %w", r.reminderID, err)
	}

	if err := d.store.MarkReminderSent(ctx, reminderdb.MarkReminderSentParams{
		UserID:     r.userID,
		ReminderID: r.reminderID,
	}); err != nil {
		return fmt.Errorf("送信済みへの更新に失敗: reminder_id=%s: %w", r.reminderID, err)
	}
	return nil
}

// Start は一定間隔でDispatchを実行するループを開始する。
// バックグラウンドgoroutineとして呼び出されることを想定している。
func (d *Dispatcher) Start(interval time.Duration) {
	log.Printf("[Dispatcher] ディスパッチループを開始します。実行間隔: %s", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		count, err := d.Dispatch(ctx, time.Now())
		cancel()

		if err != nil {
			log.Printf("[Dispatcher] ディスパッチに失敗: %v", err)
			continue
		}
		if count > 0 {
			log.Printf("[Dispatcher] リマインダーを%d件処理しました", count)
		}
	}
}
