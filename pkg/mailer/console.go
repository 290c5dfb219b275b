package mailer

import (
	"go.uber.org/zap"
)

// ConsoleSender logs outgoing mail instead of delivering it. Used in
// development and as the fallback when no SendGrid key is configured.
type ConsoleSender struct {
	logger *zap.Logger
}

// NewConsoleSender constructs a logging sender.
func NewConsoleSender(logger *zap.Logger) *ConsoleSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleSender{logger: logger}
}

// Send implements Sender.
func (s *ConsoleSender) Send(msg Message) error {
	addresses := make([]string, 0, len(msg.To))
	for _, to := range msg.To {
		addresses = append(addresses, to.Address)
	}
	s.logger.Sugar().Infow("outgoing mail",
		"to", addresses,
		"subject", msg.Subject,
		"body", msg.TextBody,
	)
	return nil
}
