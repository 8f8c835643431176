package api

import (
	"github.com/stacman/stacman"
	"github.com/stacman/stacman/types"
)

type Questions struct {
	resource
}

func NewQuestions(client *stacman.Client) *Questions {
	return &Questions{resource{client: client}}
}

// GetAll lists questions on a site.
func (q *Questions) GetAll(opts QuestionListOptions) (*stacman.Future[types.Question], error) {
	if err := validateSorted(opts.Common, sortOrNil(opts.Sort), opts.Bounds); err != nil {
		return nil, err
	}

	b := q.builder("questions")
	q.applyList(b, opts)
	return submit[types.Question](q.resource, b, KeyQuestions), nil
}

// GetByIDs fetches the questions with the given ids.
func (q *Questions) GetByIDs(ids []int, opts QuestionListOptions) (*stacman.Future[types.Question], error) {
	if err := ValidateNonEmpty(ids, "ids"); err != nil {
		return nil, err
	}
	if err := validateSorted(opts.Common, sortOrNil(opts.Sort), opts.Bounds); err != nil {
		return nil, err
	}

	b := q.builder("questions/" + joinInts(ids))
	q.applyList(b, opts)
	return submit[types.Question](q.resource, b, KeyQuestionsByIDs), nil
}

// GetAnswers lists the answers to the given questions.
func (q *Questions) GetAnswers(ids []int, opts AnswerListOptions) (*stacman.Future[types.Answer], error) {
	if err := ValidateNonEmpty(ids, "ids"); err != nil {
		return nil, err
	}
	if err := validateSorted(opts.Common, sortOrNil(opts.Sort), opts.Bounds); err != nil {
		return nil, err
	}

	b := q.builder("questions/" + joinInts(ids) + "/answers")
	applyAnswerList(b, opts, q.site())
	return submit[types.Answer](q.resource, b, KeyQuestionAnswers), nil
}

// GetUnanswered lists questions the site considers unanswered.
func (q *Questions) GetUnanswered(opts QuestionListOptions) (*stacman.Future[types.Question], error) {
	if err := validateSorted(opts.Common, sortOrNil(opts.Sort), opts.Bounds); err != nil {
		return nil, err
	}

	b := q.builder("questions/unanswered")
	q.applyList(b, opts)
	return submit[types.Question](q.resource, b, KeyQuestionsUnanswered), nil
}

func (q *Questions) applyList(b *Builder, opts QuestionListOptions) {
	opts.Common.apply(b, q.site())
	opts.DateRange.apply(b)
	opts.Bounds.apply(b)
	b.Add("sort", opts.Sort).
		Add("order", opts.Order).
		Add("tagged", opts.Tagged)
}
