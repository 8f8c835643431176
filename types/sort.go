package types

// Order is the sort direction.
type Order string

const (
	OrderDesc Order = "desc"
	OrderAsc  Order = "asc"
)

func (o Order) String() string { return string(o) }

// SortKind classifies which min/max bounds a sort accepts.
type SortKind int

const (
	SortKindNone SortKind = iota
	SortKindDate
	SortKindInteger
	SortKindString
)

// Sort is implemented by every per-method sort enum.
type Sort interface {
	String() string
	Kind() SortKind
}

// QuestionSort orders question listings.
type QuestionSort string

const (
	QuestionSortActivity QuestionSort = "activity"
	QuestionSortCreation QuestionSort = "creation"
	QuestionSortVotes    QuestionSort = "votes"
	QuestionSortHot      QuestionSort = "hot"
	QuestionSortWeek     QuestionSort = "week"
	QuestionSortMonth    QuestionSort = "month"
)

func (s QuestionSort) String() string { return string(s) }

func (s QuestionSort) Kind() SortKind {
	switch s {
	case QuestionSortActivity, QuestionSortCreation:
		return SortKindDate
	case QuestionSortVotes:
		return SortKindInteger
	default:
		return SortKindNone
	}
}

// AnswerSort orders answer listings.
type AnswerSort string

const (
	AnswerSortActivity AnswerSort = "activity"
	AnswerSortCreation AnswerSort = "creation"
	AnswerSortVotes    AnswerSort = "votes"
)

func (s AnswerSort) String() string { return string(s) }

func (s AnswerSort) Kind() SortKind {
	if s == AnswerSortVotes {
		return SortKindInteger
	}
	return SortKindDate
}

// UserSort orders user listings.
type UserSort string

const (
	UserSortReputation UserSort = "reputation"
	UserSortCreation   UserSort = "creation"
	UserSortName       UserSort = "name"
	UserSortModified   UserSort = "modified"
)

func (s UserSort) String() string { return string(s) }

func (s UserSort) Kind() SortKind {
	switch s {
	case UserSortReputation:
		return SortKindInteger
	case UserSortName:
		return SortKindString
	default:
		return SortKindDate
	}
}
