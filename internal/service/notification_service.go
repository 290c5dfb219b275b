package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/memoire-api/internal/models"
	"github.com/noah-isme/memoire-api/pkg/jobs"
	"github.com/noah-isme/memoire-api/pkg/mailer"
)

// NotificationService delivers workflow emails through a background queue.
// Delivery is best effort and never blocks or fails the operation that
// triggered it.
type mailMetrics interface {
	RecordMailEnqueued()
}

type NotificationService struct {
	queue   *jobs.Queue
	metrics mailMetrics
	logger  *zap.Logger
}

// WithMetrics attaches an instrumentation sink.
func (s *NotificationService) WithMetrics(metrics mailMetrics) *NotificationService {
	s.metrics = metrics
	return s
}

// NewNotificationService constructs the service and its worker queue.
func NewNotificationService(sender mailer.Sender, workers int, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := func(ctx context.Context, job jobs.Job) error {
		msg, ok := job.Payload.(mailer.Message)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", job.Payload)
		}
		return sender.Send(msg)
	}
	queue := jobs.NewQueue("notifications", handler, jobs.QueueConfig{
		Workers:    workers,
		MaxRetries: 2,
		RetryDelay: 30 * time.Second,
		Logger:     logger,
	})
	return &NotificationService{queue: queue, logger: logger}
}

// Start launches the queue workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains and stops the queue.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

func (s *NotificationService) enqueue(kind string, msg mailer.Message) {
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    kind,
		Payload: msg,
	})
	if err != nil {
		s.logger.Warn("notification dropped", zap.String("type", kind), zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.RecordMailEnqueued()
	}
}

// AssignmentConfirmed notifies a student of their confirmed topic.
func (s *NotificationService) AssignmentConfirmed(name, email, topicTitle string) {
	s.enqueue("assignment_confirmed", mailer.Message{
		To:      []mailer.Recipient{{Name: name, Address: email}},
		Subject: "Sujet de mémoire attribué",
		TextBody: fmt.Sprintf(
			"Bonjour %s,\n\nLe sujet \"%s\" vous a été attribué. Votre encadreur prendra contact avec vous pour planifier la première séance.\n",
			name, topicTitle),
	})
}

// DefenseScheduled notifies a student of their defense slot.
func (s *NotificationService) DefenseScheduled(name, email, room string, at time.Time) {
	s.enqueue("defense_scheduled", mailer.Message{
		To:      []mailer.Recipient{{Name: name, Address: email}},
		Subject: "Soutenance programmée",
		TextBody: fmt.Sprintf(
			"Bonjour %s,\n\nVotre soutenance est programmée le %s en salle %s.\n",
			name, at.Format("02/01/2006 à 15h04"), room),
	})
}

// DefenseResult notifies a student of their final score and mention.
func (s *NotificationService) DefenseResult(name, email string, score float64, mention models.Mention) {
	s.enqueue("defense_result", mailer.Message{
		To:      []mailer.Recipient{{Name: name, Address: email}},
		Subject: "Résultat de soutenance",
		TextBody: fmt.Sprintf(
			"Bonjour %s,\n\nVotre soutenance est terminée. Note finale : %.2f/20, mention %s. Votre mémoire a été versé aux archives.\n",
			name, score, mention),
	})
}

// DossierVerified notifies a student of the administrative review outcome.
func (s *NotificationService) DossierVerified(name, email string, verification models.DossierVerification, comment string) {
	body := fmt.Sprintf("Bonjour %s,\n\nVotre dossier de soutenance a été examiné : %s.", name, verification)
	if comment != "" {
		body += "\nCommentaire : " + comment
	}
	s.enqueue("dossier_verified", mailer.Message{
		To:       []mailer.Recipient{{Name: name, Address: email}},
		Subject:  "Dossier de soutenance examiné",
		TextBody: body + "\n",
	})
}
