package models

import "time"

// FamilyInviteMessage сообщение в очередь рассылки о новом приглашении.
type FamilyInviteMessage struct {
	To           string              `json:"to"`
	InviteeName  string              `json:"inviteeName"`
	OwnerName    string              `json:"ownerName"`
	Subscription SubscriptionSummary `json:"subscription"`
	Token        string              `json:"token"`
	ExpiresAt    time.Time           `json:"expiresAt"`
}

// ReminderMessage сообщение в очередь рассылки о предстоящем продлении.
type ReminderMessage struct {
	To            string              `json:"to"`
	UserName      string              `json:"userName"`
	Subscription  SubscriptionSummary `json:"subscription"`
	PaymentMethod PaymentMethod       `json:"paymentMethod"`
	DaysBefore    int                 `json:"daysBefore"`
}

// ReminderDays за сколько дней до продления отправляются напоминания.
var ReminderDays = []int{7, 5, 2, 1}

// RenewalReminder подписка, для которой пора отправить напоминание, вместе с владельцем.
type RenewalReminder struct {
	Subscription Subscription `json:"subscription"`
	User         UserSummary  `json:"user"`
	DaysBefore   int          `json:"daysBefore"`
}

// Message формирует сообщение для очереди рассылки.
func (r RenewalReminder) Message() ReminderMessage {
	return ReminderMessage{
		To:            r.User.Email,
		UserName:      r.User.Name,
		Subscription:  r.Subscription.Summary(),
		PaymentMethod: r.Subscription.PaymentMethod,
		DaysBefore:    r.DaysBefore,
	}
}
