// リマインダーサービスのエントリポイント。
// リマインダーのCRUD操作と、期限が到来したリマインダーの定期配信を担当する。
// バックグラウンドのディスパッチループが期限到来分をスキャンし、
// 通知サービスへメッセージを発行してから送信済みに更新する。
package main

import (
	"log"
	"os"
	"time"

	"github.com/nao1215/remind/internal/reminder"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8085"
	}

	server, err := reminder.NewServer(port)
	if err != nil {
		log.Fatalf("リマインダーサーバーの初期化に失敗: %v", err)
	}

	interval := 60 * time.Second
	if v := os.Getenv("DISPATCH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("DISPATCH_INTERVALの値が不正: %v", err)
		}
		interval = d
	}
	go server.Dispatcher().Start(interval)

	log.Printf("リマインダーサービスを起動します: :%s", port)
	if err := server.Run(); err != nil {
		log.Fatalf("リマインダーサービスの起動に失敗: %v", err)
	}
}
