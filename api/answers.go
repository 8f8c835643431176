package api

import (
	"github.com/stacman/stacman"
	"github.com/stacman/stacman/types"
)

type Answers struct {
	resource
}

func NewAnswers(client *stacman.Client) *Answers {
	return &Answers{resource{client: client}}
}

func (a *Answers) GetAll(opts AnswerListOptions) (*stacman.Future[types.Answer], error) {
	if err := validateSorted(opts.Common, sortOrNil(opts.Sort), opts.Bounds); err != nil {
		return nil, err
	}

	b := a.builder("answers")
	applyAnswerList(b, opts, a.site())
	return submit[types.Answer](a.resource, b, KeyAnswers), nil
}

func (a *Answers) GetByIDs(ids []int, opts AnswerListOptions) (*stacman.Future[types.Answer], error) {
	if err := ValidateNonEmpty(ids, "ids"); err != nil {
		return nil, err
	}
	if err := validateSorted(opts.Common, sortOrNil(opts.Sort), opts.Bounds); err != nil {
		return nil, err
	}

	b := a.builder("answers/" + joinInts(ids))
	applyAnswerList(b, opts, a.site())
	return submit[types.Answer](a.resource, b, KeyAnswersByIDs), nil
}

func applyAnswerList(b *Builder, opts AnswerListOptions, defaultSite string) {
	opts.Common.apply(b, defaultSite)
	opts.DateRange.apply(b)
	opts.Bounds.apply(b)
	b.Add("sort", opts.Sort).Add("order", opts.Order)
}
