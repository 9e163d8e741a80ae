package ai

import (
	"time"

	"github.com/sells-group/lab-assistant/pkg/chat"
)

func newChat(url string) chat.Client {
	return chat.NewClient("test-key", chat.WithBaseURL(url))
}

func newChatTimeout(url string, d time.Duration) chat.Client {
	return chat.NewClient("test-key", chat.WithBaseURL(url), chat.WithTimeout(d))
}
