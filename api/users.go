package api

import (
	"github.com/stacman/stacman"
	"github.com/stacman/stacman/types"
)

type Users struct {
	resource
}

func NewUsers(client *stacman.Client) *Users {
	return &Users{resource{client: client}}
}

func (u *Users) GetAll(opts UserListOptions) (*stacman.Future[types.User], error) {
	if err := validateSorted(opts.Common, sortOrNil(opts.Sort), opts.Bounds); err != nil {
		return nil, err
	}

	b := u.builder("users")
	u.applyList(b, opts)
	b.Add("inname", opts.InName)
	return submit[types.User](u.resource, b, KeyUsers), nil
}

func (u *Users) GetByIDs(ids []int, opts UserListOptions) (*stacman.Future[types.User], error) {
	if err := ValidateNonEmpty(ids, "ids"); err != nil {
		return nil, err
	}
	if err := validateSorted(opts.Common, sortOrNil(opts.Sort), opts.Bounds); err != nil {
		return nil, err
	}

	b := u.builder("users/" + joinInts(ids))
	u.applyList(b, opts)
	return submit[types.User](u.resource, b, KeyUsersByIDs), nil
}

// GetQuestions lists questions asked by the given users.
func (u *Users) GetQuestions(ids []int, opts QuestionListOptions) (*stacman.Future[types.Question], error) {
	if err := ValidateNonEmpty(ids, "ids"); err != nil {
		return nil, err
	}
	if err := validateSorted(opts.Common, sortOrNil(opts.Sort), opts.Bounds); err != nil {
		return nil, err
	}

	b := u.builder("users/" + joinInts(ids) + "/questions")
	opts.Common.apply(b, u.site())
	opts.DateRange.apply(b)
	opts.Bounds.apply(b)
	b.Add("sort", opts.Sort).Add("order", opts.Order)
	return submit[types.Question](u.resource, b, KeyUserQuestions), nil
}

func (u *Users) applyList(b *Builder, opts UserListOptions) {
	opts.Common.apply(b, u.site())
	opts.DateRange.apply(b)
	opts.Bounds.apply(b)
	b.Add("sort", opts.Sort).Add("order", opts.Order)
}
