// Package services содержит воркер рассылки: разбирает сообщения из очередей
// уведомлений и отправляет письма через SMTP.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/smtp"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Mailer доставляет готовое письмо адресатам.
type Mailer interface {
	Send(ctx context.Context, msg smtp.Message) error
}

// SenderService отправляет письма о приглашениях и продлениях.
type SenderService struct {
	mailer Mailer
	log    *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(log *slog.Logger, mailer Mailer) *SenderService {
	return &SenderService{
		mailer: mailer,
		log:    log,
	}
}

// SendFamilyInvite обрабатывает сообщение очереди notification.family_invite.
func (s *SenderService) SendFamilyInvite(body []byte) error {
	var message models.FamilyInviteMessage
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}
	if message.To == "" {
		return fmt.Errorf("family invite message without recipient")
	}

	subject := fmt.Sprintf("%s invited you to share %s", message.OwnerName, message.Subscription.Name)
	bodyText := fmt.Sprintf(`Hi %s,

%s invited you to join the family plan for %s (%.2f %s, %s).

To accept, sign in and confirm the invitation with this token:

%s

The invitation expires on %s.
If you were not expecting this email, you can ignore it.`,
		message.InviteeName,
		message.OwnerName,
		message.Subscription.Name,
		message.Subscription.Price,
		message.Subscription.Currency,
		message.Subscription.Frequency,
		message.Token,
		message.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"),
	)

	return s.sendEmail([]string{message.To}, subject, bodyText)
}

// SendReminder обрабатывает сообщение очереди notification.reminder.
func (s *SenderService) SendReminder(body []byte) error {
	var message models.ReminderMessage
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}
	if message.To == "" {
		return fmt.Errorf("reminder message without recipient")
	}

	subject := fmt.Sprintf("Reminder: your %s subscription renews in %s", message.Subscription.Name, daysLabel(message.DaysBefore))
	bodyText := fmt.Sprintf(`Hi %s,

Your %s subscription renews on %s.
Price: %.2f %s (%s)
Payment method: %s

If you no longer need it, cancel it before the renewal date.`,
		message.UserName,
		message.Subscription.Name,
		message.Subscription.RenewalDate.Format(models.DateLayout),
		message.Subscription.Price,
		message.Subscription.Currency,
		message.Subscription.Frequency,
		message.PaymentMethod,
	)

	return s.sendEmail([]string{message.To}, subject, bodyText)
}

func daysLabel(days int) string {
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := smtp.Message{To: to, Subject: subject, Body: bodyText}
	if err := s.mailer.Send(context.Background(), msg); err != nil {
		s.log.Error("failed to send email", slog.Any("to", to), sl.Err(err))
		return err
	}
	s.log.Info("email sent successfully", slog.Any("to", to))
	return nil
}
