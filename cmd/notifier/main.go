// 通知サービスのエントリポイント。
// リマインダーサービスが発行したマルチチャネルメッセージの受信と配信、
// アプリ内インボックスの管理を担当する。
package main

import (
	"log"
	"os"

	"github.com/nao1215/remind/internal/notifier"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8086"
	}

	server, err := notifier.NewServer(port)
	if err != nil {
		log.Fatalf("通知サーバーの初期化に失敗: %v", err)
	}

	log.Printf("通知サービスを起動します: :%s", port)
	if err := server.Run(); err != nil {
		log.Fatalf("通知サービスの起動に失敗: %v", err)
	}
}
