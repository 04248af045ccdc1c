package models

import (
	"math"
	"time"
)

// Значения пагинации по умолчанию.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	// MaxPage граница номера страницы, при которой смещение помещается в int32.
	MaxPage = math.MaxInt32 / MaxLimit
)

// SortFields поля, по которым разрешена сортировка результатов поиска.
var SortFields = []string{"name", "price", "startDate", "renewalDate", "createdAt", "status", "category"}

// DefaultSortBy поле сортировки по умолчанию.
const DefaultSortBy = "createdAt"

// SortOrder направление сортировки.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SearchFilter разобранные параметры поиска подписок администратором.
// Пустые поля не участвуют в фильтрации; все заданные условия объединяются по AND.
type SearchFilter struct {
	UserUID       string
	Categories    []string
	Statuses      []string
	Currencies    []string
	Frequencies   []string
	PaymentMethod string
	UserEmail     string
	MinPrice      *float64
	MaxPrice      *float64
	StartFrom     *time.Time
	StartTo       *time.Time
	RenewalFrom   *time.Time
	RenewalTo     *time.Time
	Page          int
	Limit         int
	SortBy        string
	SortOrder     SortOrder
}

// Offset смещение первой записи страницы.
func (f SearchFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Pagination сведения о странице результата.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalCount  int  `json:"totalCount"`
	Limit       int  `json:"limit"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

// NewPagination вычисляет пагинацию по общему числу записей, а не по размеру страницы.
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalCount:  total,
		Limit:       limit,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}

// SearchResult страница результатов поиска.
type SearchResult struct {
	Items      []SubscriptionWithUser `json:"subscriptions"`
	Pagination Pagination             `json:"pagination"`
}
