package message

import "fmt"

// Channel は通知の配信チャネルを表す。
type Channel string

const (
	// ChannelEmail はメールによる通知を表す。
	ChannelEmail Channel = "email"
	// ChannelSMS はSMSによる通知を表す。
	ChannelSMS Channel = "sms"
	// ChannelPush はプッシュ通知を表す。
	ChannelPush Channel = "push"
)

// Attributes はメッセージのルーティング属性。
// 購読側はこの属性を見て配信先ユーザーとチャネルを決定する。
type Attributes struct {
	// UserID は通知先のユーザーID。
	UserID string `json:"user_id"`
	// Channels はリマインダーが要求する配信チャネルの集合。
	Channels []Channel `json:"channels"`
}

// Message はマルチチャネル通知メッセージ。
// デフォルト本文と、チャネルごとの本文を持つ。
type Message struct {
	// Default はチャネル固有の本文が無い場合に使うデフォルト本文。
	Default string `json:"default"`
	// PerChannel はチャネルごとの本文。
	PerChannel map[Channel]string `json:"per_channel"`
	// Attributes はルーティング属性。
	Attributes Attributes `json:"attributes"`
}

// TextFor は指定チャネル向けの本文を返す。
// チャネル固有の本文が無い場合はデフォルト本文にフォールバックする。
func (m *Message) TextFor(ch Channel) string {
	if text, ok := m.PerChannel[ch]; ok {
		return text
	}
	return m.Default
}

// NewReminderMessage はリマインダーから通知メッセージを組み立てる。
// email はタイトルと説明からSubject+本文を、sms はタイトルのみの短文を生成する。
// それ以外のチャネルはデフォルト本文で配信される。
func NewReminderMessage(userID, title, description string, channels []Channel) *Message {
	perChannel := make(map[Channel]string, len(channels))
	for _, ch := range channels {
		switch ch {
		case ChannelEmail:
			perChannel[ch] = fmt.Sprintf("Subject: リマインダー\n\n%s\n%s", title, description)
		case ChannelSMS:
			perChannel[ch] = fmt.Sprintf("リマインダー: %s", title)
		}
	}

	return &Message{
		Default:    fmt.Sprintf("リマインダー: %s", title),
		PerChannel: perChannel,
		Attributes: Attributes{
			UserID:   userID,
			Channels: channels,
		},
	}
}
