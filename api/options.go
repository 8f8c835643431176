package api

import (
	"time"

	"github.com/stacman/stacman/types"
)

// Common holds the parameters most methods accept. An empty Site falls back
// to the client's site.
type Common struct {
	Site     string
	Filter   string
	Page     *int
	PageSize *int
}

func (c Common) validate() error {
	return ValidatePaging(c.Page, c.PageSize)
}

func (c Common) apply(b *Builder, defaultSite string) {
	site := c.Site
	if site == "" {
		site = defaultSite
	}
	b.Add("site", site).
		Add("filter", c.Filter).
		Add("page", c.Page).
		Add("pagesize", c.PageSize)
}

// DateRange limits results by creation date.
type DateRange struct {
	FromDate *time.Time
	ToDate   *time.Time
}

func (d DateRange) apply(b *Builder) {
	b.Add("fromdate", d.FromDate).Add("todate", d.ToDate)
}

type QuestionListOptions struct {
	Common
	DateRange
	Bounds
	Sort   types.QuestionSort
	Order  types.Order
	Tagged []string
}

type AnswerListOptions struct {
	Common
	DateRange
	Bounds
	Sort  types.AnswerSort
	Order types.Order
}

type UserListOptions struct {
	Common
	DateRange
	Bounds
	Sort   types.UserSort
	Order  types.Order
	InName string
}
