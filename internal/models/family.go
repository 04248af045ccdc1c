package models

import (
	"fmt"
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
)

const (
	// DefaultMaxMembers лимит активных участников по умолчанию.
	DefaultMaxMembers = 5
	// MaxMembersCeiling жесткий верхний предел участников семейной подписки.
	MaxMembersCeiling = 5
	// DefaultInviteTTL срок действия приглашения.
	DefaultInviteTTL = 24 * time.Hour
)

// MemberStatus состояние участника семейной подписки.
// Переходы: pending -> active, pending -> removed, active -> removed. Из removed выхода нет.
type MemberStatus string

const (
	MemberPending MemberStatus = "pending"
	MemberActive  MemberStatus = "active"
	MemberRemoved MemberStatus = "removed"
)

// AccessType отношение пользователя к подписке.
type AccessType string

const (
	AccessOwner  AccessType = "owner"
	AccessMember AccessType = "member"
	AccessNone   AccessType = "none"
)

// Capability требование к доступу, которое проверяет guard маршрута.
type Capability uint8

const (
	// CapabilityAccess владелец или активный участник.
	CapabilityAccess Capability = iota
	// CapabilityOwner только владелец.
	CapabilityOwner
	// CapabilityMember только активный участник, не владелец.
	CapabilityMember
)

func (c Capability) String() string {
	switch c {
	case CapabilityAccess:
		return "access"
	case CapabilityOwner:
		return "owner"
	case CapabilityMember:
		return "member"
	default:
		return fmt.Sprintf("capability(%d)", uint8(c))
	}
}

// Satisfies сообщает, удовлетворяет ли тип доступа требованию.
func (a AccessType) Satisfies(c Capability) bool {
	switch c {
	case CapabilityAccess:
		return a == AccessOwner || a == AccessMember
	case CapabilityOwner:
		return a == AccessOwner
	case CapabilityMember:
		return a == AccessMember
	default:
		return false
	}
}

// Member участник семейной подписки. Порядок участников соответствует порядку приглашений.
type Member struct {
	ID              int64        `json:"-"`
	UserUID         string       `json:"userId"`
	User            *UserSummary `json:"user,omitempty"`
	Status          MemberStatus `json:"status"`
	AddedAt         time.Time    `json:"addedAt"`
	InviteTokenHash string       `json:"-"`
	InviteExpiresAt *time.Time   `json:"inviteExpiresAt,omitempty"`
}

func (m *Member) isOpen() bool {
	return m.Status == MemberPending || m.Status == MemberActive
}

func (m *Member) clearInvite() {
	m.InviteTokenHash = ""
	m.InviteExpiresAt = nil
}

// FamilySubscription группа совместного доступа к подписке. Одна на подписку.
type FamilySubscription struct {
	ID             string               `json:"id"`
	SubscriptionID string               `json:"subscriptionId"`
	Subscription   *SubscriptionSummary `json:"subscription,omitempty"`
	OwnerUID       string               `json:"ownerId"`
	Owner          *UserSummary         `json:"owner,omitempty"`
	Members        []Member             `json:"members"`
	MaxMembers     int                  `json:"maxMembers"`
	IsActive       bool                 `json:"isActive"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

// FamilyGroups группы пользователя: где он владелец и где он активный участник.
type FamilyGroups struct {
	Owned    []*FamilySubscription `json:"ownedFamilies"`
	MemberOf []*FamilySubscription `json:"memberFamilies"`
}

// NewFamilySubscription создает группу для активной подписки её владельца.
func NewFamilySubscription(sub *Subscription, requesterUID string, maxMembers int, now time.Time) (*FamilySubscription, error) {
	if !sub.IsOwnedBy(requesterUID) {
		return nil, apperr.Forbidden("You can only create family subscription for your own subscriptions")
	}
	if sub.Status != StatusActive {
		return nil, apperr.Validation("Can only create family subscription for active subscriptions")
	}
	if maxMembers <= 0 || maxMembers > MaxMembersCeiling {
		maxMembers = DefaultMaxMembers
	}
	f := &FamilySubscription{
		SubscriptionID: sub.ID,
		OwnerUID:       sub.UserUID,
		Members:        []Member{},
		MaxMembers:     maxMembers,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return f, f.Validate()
}

// Validate проверяет инвариант числа активных участников.
func (f *FamilySubscription) Validate() error {
	if f.MaxMembers < 1 || f.MaxMembers > MaxMembersCeiling {
		return apperr.Validation(fmt.Sprintf("maxMembers must be between 1 and %d", MaxMembersCeiling))
	}
	if f.ActiveMembersCount() > f.MaxMembers {
		return f.capacityError()
	}
	return nil
}

func (f *FamilySubscription) capacityError() error {
	return apperr.Validation(fmt.Sprintf("Maximum %d family members allowed", f.MaxMembers))
}

// IsOwner сообщает, является ли пользователь владельцем группы.
func (f *FamilySubscription) IsOwner(userUID string) bool {
	return f.OwnerUID == userUID
}

// ActiveMembersCount число участников в статусе active.
func (f *FamilySubscription) ActiveMembersCount() int {
	n := 0
	for i := range f.Members {
		if f.Members[i].Status == MemberActive {
			n++
		}
	}
	return n
}

// IsActiveMember сообщает, является ли пользователь активным участником.
func (f *FamilySubscription) IsActiveMember(userUID string) bool {
	for i := range f.Members {
		if f.Members[i].UserUID == userUID && f.Members[i].Status == MemberActive {
			return true
		}
	}
	return false
}

// AccessFor определяет тип доступа пользователя через группу.
func (f *FamilySubscription) AccessFor(userUID string) AccessType {
	switch {
	case f == nil || !f.IsActive:
		return AccessNone
	case f.IsOwner(userUID):
		return AccessOwner
	case f.IsActiveMember(userUID):
		return AccessMember
	default:
		return AccessNone
	}
}

// openMember ищет запись пользователя в статусе pending или active.
func (f *FamilySubscription) openMember(userUID string) *Member {
	for i := len(f.Members) - 1; i >= 0; i-- {
		if f.Members[i].UserUID == userUID && f.Members[i].isOpen() {
			return &f.Members[i]
		}
	}
	return nil
}

// latestMember последняя запись пользователя в любом статусе.
func (f *FamilySubscription) latestMember(userUID string) *Member {
	if m := f.openMember(userUID); m != nil {
		return m
	}
	for i := len(f.Members) - 1; i >= 0; i-- {
		if f.Members[i].UserUID == userUID {
			return &f.Members[i]
		}
	}
	return nil
}

// Invite добавляет приглашение в статусе pending. tokenHash хеш выданного токена.
func (f *FamilySubscription) Invite(requesterUID, inviteeUID, tokenHash string, now time.Time, ttl time.Duration) (*Member, error) {
	if !f.IsOwner(requesterUID) {
		return nil, apperr.Forbidden("Only the subscription owner can invite family members")
	}
	if f.ActiveMembersCount() >= f.MaxMembers {
		return nil, f.capacityError()
	}
	if inviteeUID == f.OwnerUID {
		return nil, apperr.Validation("You cannot invite yourself")
	}
	if existing := f.openMember(inviteeUID); existing != nil {
		if existing.Status == MemberActive {
			return nil, apperr.Conflict("User is already an active family member")
		}
		return nil, apperr.Conflict("Invitation already sent to this user")
	}
	if ttl <= 0 {
		ttl = DefaultInviteTTL
	}
	expiresAt := now.Add(ttl)
	f.Members = append(f.Members, Member{
		UserUID:         inviteeUID,
		Status:          MemberPending,
		AddedAt:         now,
		InviteTokenHash: tokenHash,
		InviteExpiresAt: &expiresAt,
	})
	if err := f.Validate(); err != nil {
		f.Members = f.Members[:len(f.Members)-1]
		return nil, err
	}
	f.UpdatedAt = now
	return &f.Members[len(f.Members)-1], nil
}

// Accept переводит приглашение с данным хешем токена в active.
// Просроченное приглашение неотличимо от несуществующего.
func (f *FamilySubscription) Accept(requesterUID, tokenHash string, now time.Time) (*Member, error) {
	var m *Member
	for i := range f.Members {
		cand := &f.Members[i]
		if cand.InviteTokenHash != "" && cand.InviteTokenHash == tokenHash &&
			cand.InviteExpiresAt != nil && cand.InviteExpiresAt.After(now) {
			m = cand
			break
		}
	}
	if m == nil {
		return nil, apperr.NotFound("Invalid or expired invitation token")
	}
	if m.UserUID != requesterUID {
		return nil, apperr.Forbidden("You can only accept your own invitations")
	}
	switch m.Status {
	case MemberActive:
		return nil, apperr.Conflict("Invitation already accepted")
	case MemberRemoved:
		return nil, apperr.NotFound("Invalid or expired invitation token")
	}
	if f.ActiveMembersCount() >= f.MaxMembers {
		return nil, f.capacityError()
	}
	m.Status = MemberActive
	m.clearInvite()
	f.UpdatedAt = now
	return m, f.Validate()
}

// RemoveMember помечает участника как removed. Повторное удаление уже удаленного
// участника возвращает changed=false без ошибки.
func (f *FamilySubscription) RemoveMember(requesterUID, memberUID string, now time.Time) (m *Member, changed bool, err error) {
	if !f.IsOwner(requesterUID) {
		return nil, false, apperr.Forbidden("Only the subscription owner can remove family members")
	}
	m = f.latestMember(memberUID)
	if m == nil {
		return nil, false, apperr.NotFound("Family member not found")
	}
	if m.Status == MemberRemoved {
		return m, false, nil
	}
	m.Status = MemberRemoved
	m.clearInvite()
	f.UpdatedAt = now
	return m, true, f.Validate()
}

// Leave выход активного участника из группы. Владелец выйти не может.
func (f *FamilySubscription) Leave(requesterUID string, now time.Time) (*Member, error) {
	if f.IsOwner(requesterUID) {
		return nil, apperr.Validation("Subscription owner cannot leave. Delete the family subscription instead.")
	}
	m := f.openMember(requesterUID)
	if m == nil || m.Status != MemberActive {
		return nil, apperr.NotFound("You are not an active member of this family subscription")
	}
	m.Status = MemberRemoved
	f.UpdatedAt = now
	return m, f.Validate()
}

// InviteResult ответ на отправку приглашения. Сам токен уходит только в письмо.
type InviteResult struct {
	InvitedUser UserSummary `json:"invitedUser"`
	ExpiresAt   time.Time   `json:"expiresAt"`
}

// AcceptResult ответ на принятие приглашения.
type AcceptResult struct {
	Subscription *SubscriptionSummary `json:"subscription"`
	Owner        *UserSummary         `json:"owner"`
}
