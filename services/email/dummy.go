package emailsvc

import (
	"sync"

	"github.com/shuleos/shule/core"
	appfs "github.com/shuleos/shule/fs"
)

// dummyService renders messages synchronously and records them so tests can
// assert on what would have been sent.
type dummyService struct {
	conf   *core.Config
	logger core.Logger

	mu           sync.Mutex
	SentMessages []core.EmailMessage
}

var _ core.EmailService = (*dummyService)(nil)

func NewDummyService(conf *core.Config, logger core.Logger) *dummyService {
	return &dummyService{conf: conf, logger: logger}
}

func (svc *dummyService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if err := msg.Render(appfs.FS, svc.conf); err != nil {
			svc.logger.Error("rendering email", err)
			continue
		}
		if msg.HasRecipients() && msg.HasContent() {
			svc.mu.Lock()
			svc.SentMessages = append(svc.SentMessages, *msg)
			svc.mu.Unlock()
		}
	}
}

func (svc *dummyService) Sent() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	out := make([]core.EmailMessage, len(svc.SentMessages))
	copy(out, svc.SentMessages)
	return out
}

func (svc *dummyService) Clear() {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.SentMessages = nil
}
