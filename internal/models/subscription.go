package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
)

// DateLayout формат календарных дат в API.
const DateLayout = "2006-01-02"

// Frequency периодичность списания.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// RenewalDays число дней до следующего продления для периодичности.
func (f Frequency) RenewalDays() (int, bool) {
	switch f {
	case FrequencyDaily:
		return 1, true
	case FrequencyWeekly:
		return 7, true
	case FrequencyMonthly:
		return 30, true
	case FrequencyYearly:
		return 365, true
	default:
		return 0, false
	}
}

// Currency валюта подписки.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyPHP Currency = "PHP"
)

// Category тарифная категория подписки.
type Category string

const (
	CategoryBasic      Category = "basic"
	CategoryPremium    Category = "premium"
	CategoryEnterprise Category = "enterprise"
)

// PaymentMethod способ оплаты.
type PaymentMethod string

const (
	PaymentCreditCard   PaymentMethod = "credit_card"
	PaymentPaypal       PaymentMethod = "paypal"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentGcash        PaymentMethod = "Gcash"
)

// SubscriptionStatus статус подписки.
type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusInactive  SubscriptionStatus = "inactive"
	StatusCancelled SubscriptionStatus = "cancelled"
)

// Допустимые значения перечислений, используются валидацией и поиском.
var (
	Frequencies    = []string{string(FrequencyDaily), string(FrequencyWeekly), string(FrequencyMonthly), string(FrequencyYearly)}
	Currencies     = []string{string(CurrencyUSD), string(CurrencyEUR), string(CurrencyGBP), string(CurrencyPHP)}
	Categories     = []string{string(CategoryBasic), string(CategoryPremium), string(CategoryEnterprise)}
	PaymentMethods = []string{string(PaymentCreditCard), string(PaymentPaypal), string(PaymentBankTransfer), string(PaymentGcash)}
	Statuses       = []string{string(StatusActive), string(StatusInactive), string(StatusCancelled)}
)

// Subscription модель подписки.
type Subscription struct {
	ID            string             `json:"id"`
	UserUID       string             `json:"userId"`
	Name          string             `json:"name"`
	Price         float64            `json:"price"`
	Currency      Currency           `json:"currency"`
	Frequency     Frequency          `json:"frequency"`
	Category      Category           `json:"category"`
	PaymentMethod PaymentMethod      `json:"paymentMethod"`
	Status        SubscriptionStatus `json:"status"`
	StartDate     time.Time          `json:"startDate"`
	RenewalDate   time.Time          `json:"renewalDate"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// DummySubscription входные данные подписки от клиента. Даты передаются строками
// в формате DateLayout; renewalDate можно не указывать.
type DummySubscription struct {
	Name          string  `json:"name" validate:"required,min=3,max=50"`
	Price         float64 `json:"price" validate:"gte=0"`
	Currency      string  `json:"currency" validate:"omitempty,oneof=USD EUR GBP PHP"`
	Frequency     string  `json:"frequency" validate:"required,oneof=daily weekly monthly yearly"`
	Category      string  `json:"category" validate:"required,oneof=basic premium enterprise"`
	PaymentMethod string  `json:"paymentMethod" validate:"required,oneof=credit_card paypal bank_transfer Gcash"`
	Status        string  `json:"status" validate:"omitempty,oneof=active inactive cancelled"`
	StartDate     string  `json:"startDate" validate:"required"`
	RenewalDate   string  `json:"renewalDate,omitempty"`
}

// ParseDate разбирает дату в формате DateLayout или RFC3339.
func ParseDate(value string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

// ToSubscription переводит входные данные в модель, применяя значения по умолчанию
// и правила нормализации на момент now.
func (d DummySubscription) ToSubscription(userUID string, now time.Time) (*Subscription, error) {
	start, err := ParseDate(d.StartDate)
	if err != nil {
		return nil, apperr.Validation("startDate must be a valid date")
	}
	sub := &Subscription{
		UserUID:       userUID,
		Name:          d.Name,
		Price:         d.Price,
		Currency:      Currency(d.Currency),
		Frequency:     Frequency(d.Frequency),
		Category:      Category(d.Category),
		PaymentMethod: PaymentMethod(d.PaymentMethod),
		Status:        SubscriptionStatus(d.Status),
		StartDate:     start,
	}
	if d.RenewalDate != "" {
		renewal, err := ParseDate(d.RenewalDate)
		if err != nil {
			return nil, apperr.Validation("renewalDate must be a valid date")
		}
		sub.RenewalDate = renewal
	}
	if err := sub.Normalize(now); err != nil {
		return nil, err
	}
	return sub, nil
}

// Normalize проверяет инварианты подписки перед сохранением: дата начала не в будущем,
// дата продления позже даты начала (вычисляется по периодичности, если не задана),
// просроченная дата продления переводит подписку в inactive, если она не отменена.
func (s *Subscription) Normalize(now time.Time) error {
	s.Name = strings.TrimSpace(s.Name)
	if n := utf8.RuneCountInString(s.Name); n < 3 || n > 50 {
		return apperr.Validation("name must be between 3 and 50 characters")
	}
	if s.Price < 0 {
		return apperr.Validation("price must be greater than or equal to 0")
	}
	if s.Currency == "" {
		s.Currency = CurrencyPHP
	}
	if s.Status == "" {
		s.Status = StatusActive
	}
	if s.StartDate.After(now) {
		return apperr.Validation("Start date must be in the past")
	}
	if s.RenewalDate.IsZero() {
		days, ok := s.Frequency.RenewalDays()
		if !ok {
			return apperr.Validation("frequency must be one of daily, weekly, monthly, yearly")
		}
		s.RenewalDate = s.StartDate.AddDate(0, 0, days)
	}
	if !s.RenewalDate.After(s.StartDate) {
		return apperr.Validation("Renewal date must be after the start date")
	}
	if s.RenewalDate.Before(now) && s.Status != StatusCancelled {
		s.Status = StatusInactive
	}
	return nil
}

// IsOwnedBy сообщает, принадлежит ли подписка пользователю.
func (s *Subscription) IsOwnedBy(userUID string) bool {
	return s != nil && s.UserUID == userUID
}

// SubscriptionSummary краткое описание подписки для писем и вложенных ссылок.
type SubscriptionSummary struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Price       float64            `json:"price"`
	Currency    Currency           `json:"currency"`
	Frequency   Frequency          `json:"frequency"`
	Category    Category           `json:"category"`
	Status      SubscriptionStatus `json:"status"`
	RenewalDate time.Time          `json:"renewalDate"`
}

// Summary возвращает краткое описание подписки.
func (s *Subscription) Summary() SubscriptionSummary {
	return SubscriptionSummary{
		ID:          s.ID,
		Name:        s.Name,
		Price:       s.Price,
		Currency:    s.Currency,
		Frequency:   s.Frequency,
		Category:    s.Category,
		Status:      s.Status,
		RenewalDate: s.RenewalDate,
	}
}

// SubscriptionWithUser подписка вместе с владельцем, результат поиска администратора.
type SubscriptionWithUser struct {
	Subscription
	User UserSummary `json:"user"`
}

// StatusStat агрегат по статусу подписок.
type StatusStat struct {
	Status  SubscriptionStatus `json:"status"`
	Count   int                `json:"count"`
	Revenue float64            `json:"totalRevenue"`
}

// Statistics сводная статистика для администратора.
type Statistics struct {
	ByStatus                  []StatusStat `json:"subscriptionsByStatus"`
	TotalUsers                int          `json:"totalUsers"`
	UsersWithSubscriptions    int          `json:"usersWithSubscriptions"`
	UsersWithoutSubscriptions int          `json:"usersWithoutSubscriptions"`
}
