// Package api exposes the Stack Exchange methods as independent resource
// types. Each one validates its arguments, builds the method URL and hands
// it to the client's dispatcher under the method's backoff key.
package api

import (
	"github.com/stacman/stacman"
	"github.com/stacman/stacman/types"
)

// Backoff keys, one per method family.
const (
	KeyQuestions           = "questions"
	KeyQuestionsByIDs      = "questions/{ids}"
	KeyQuestionAnswers     = "questions/{ids}/answers"
	KeyQuestionsUnanswered = "questions/unanswered"
	KeyAnswers             = "answers"
	KeyAnswersByIDs        = "answers/{ids}"
	KeyUsers               = "users"
	KeyUsersByIDs          = "users/{ids}"
	KeyUserQuestions       = "users/{ids}/questions"
	KeySites               = "sites"
	KeyInfo                = "info"
)

type resource struct {
	client *stacman.Client
}

func (r resource) builder(method string) *Builder {
	return NewBuilder(r.client.BaseURL(), method).Add("key", r.client.Key())
}

func (r resource) site() string {
	return r.client.Site()
}

func submit[T any](r resource, b *Builder, backoffKey string) *stacman.Future[T] {
	return stacman.Get[T](r.client, b.String(), backoffKey)
}

func validateSorted(common Common, sort types.Sort, bounds Bounds) error {
	if err := common.validate(); err != nil {
		return err
	}
	return ValidateSortMinMax(sort, bounds)
}

// sortOrNil keeps an empty sort from reaching the validator as a non-nil
// interface.
func sortOrNil[S interface {
	~string
	types.Sort
}](s S) types.Sort {
	if s == "" {
		return nil
	}
	return s
}
