package message

import (
	"strings"
	"testing"
)

// TestNewReminderMessage はリマインダーからのメッセージ組み立てを検証する。
func TestNewReminderMessage(t *testing.T) {
	t.Parallel()

	t.Run("デフォルト本文はタイトルを含む", func(t *testing.T) {
		t.Parallel()

		msg := NewReminderMessage("user-1", "歯医者の予約", "15時に受付", []Channel{ChannelEmail})

		if !strings.Contains(msg.Default, "歯医者の予約") {
			t.Errorf("デフォルト本文にタイトルが含まれない: got %q", msg.Default)
		}
	})

	t.Run("emailはSubjectとタイトル・説明を含む", func(t *testing.T) {
		t.Parallel()

		msg := NewReminderMessage("user-1", "歯医者の予約", "15時に受付", []Channel{ChannelEmail})

		body := msg.PerChannel[ChannelEmail]
		if !strings.HasPrefix(body, "Subject: ") {
			t.Errorf("email本文がSubjectで始まらない: got %q", body)
		}
		if !strings.Contains(body, "歯医者の予約") || !strings.Contains(body, "15時に受付") {
			t.Errorf("email本文にタイトルまたは説明が含まれない: got %q", body)
		}
	})

	t.Run("smsはタイトルのみの短文", func(t *testing.T) {
		t.Parallel()

		msg := NewReminderMessage("user-1", "歯医者の予約", "15時に受付", []Channel{ChannelSMS})

		body := msg.PerChannel[ChannelSMS]
		if !strings.Contains(body, "歯医者の予約") {
			t.Errorf("sms本文にタイトルが含まれない: got %q", body)
		}
		if strings.Contains(body, "15時に受付") {
			t.Errorf("sms本文に説明が含まれている: got %q", body)
		}
	})

	t.Run("未知のチャネルにはチャネル別本文を生成しない", func(t *testing.T) {
		t.Parallel()

		msg := NewReminderMessage("user-1", "タイトル", "", []Channel{Channel("carrier-pigeon")})

		if _, ok := msg.PerChannel[Channel("carrier-pigeon")]; ok {
			t.Error("未知のチャネルに本文が生成されている")
		}
	})

	t.Run("ルーティング属性にユーザーIDとチャネルが設定される", func(t *testing.T) {
		t.Parallel()

		msg := NewReminderMessage("user-1", "タイトル", "", []Channel{ChannelEmail, ChannelSMS})

		if msg.Attributes.UserID != "user-1" {
			t.Errorf("user_id: got %q, want user-1", msg.Attributes.UserID)
		}
		if len(msg.Attributes.Channels) != 2 {
			t.Errorf("チャネル数: got %d, want 2", len(msg.Attributes.Channels))
		}
	})
}

// TestTextFor はチャネル別本文の解決とフォールバックを検証する。
func TestTextFor(t *testing.T) {
	t.Parallel()

	msg := NewReminderMessage("user-1", "タイトル", "説明", []Channel{ChannelEmail})

	t.Run("チャネル別本文がある場合はそれを返す", func(t *testing.T) {
		t.Parallel()
		if got := msg.TextFor(ChannelEmail); got != msg.PerChannel[ChannelEmail] {
			t.Errorf("email本文: got %q", got)
		}
	})

	t.Run("チャネル別本文が無い場合はデフォルトにフォールバックする", func(t *testing.T) {
		t.Parallel()
		if got := msg.TextFor(ChannelPush); got != msg.Default {
			t.Errorf("push本文: got %q, want デフォルト %q", got, msg.Default)
		}
	})
}
