package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/stacman/stacman/types"
)

// ErrInvalidArgument is matched by every validation failure.
var ErrInvalidArgument = errors.New("invalid argument")

// ArgumentError names the offending parameter.
type ArgumentError struct {
	Param  string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s %s", e.Param, e.Reason)
}

func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func invalid(param, reason string) error {
	return &ArgumentError{Param: param, Reason: reason}
}

// ValidatePaging rejects a page below one or a negative page size.
func ValidatePaging(page, pageSize *int) error {
	if page != nil && *page < 1 {
		return invalid("page", "must be positive")
	}
	if pageSize != nil && *pageSize < 0 {
		return invalid("pagesize", "cannot be negative")
	}
	return nil
}

func ValidateString(value, param string) error {
	if value == "" {
		return invalid(param, "cannot be empty")
	}
	return nil
}

func ValidateNonEmpty[T any](values []T, param string) error {
	if len(values) == 0 {
		return invalid(param, "cannot be empty")
	}
	return nil
}

// Bounds are the optional min/max filters of a sorted listing. Which of them
// may be set depends on the kind of the sort.
type Bounds struct {
	Min     *int
	Max     *int
	MinDate *time.Time
	MaxDate *time.Time
	MinName *string
	MaxName *string
}

func (b Bounds) any() bool {
	return b.Min != nil || b.Max != nil ||
		b.MinDate != nil || b.MaxDate != nil ||
		b.MinName != nil || b.MaxName != nil
}

func (b Bounds) apply(builder *Builder) {
	builder.
		Add("min", b.Min).
		Add("max", b.Max).
		Add("min", b.MinDate).
		Add("max", b.MaxDate).
		Add("min", b.MinName).
		Add("max", b.MaxName)
}

// ValidateSortMinMax allows date bounds only for date sorts, numeric bounds
// only for numeric sorts and name bounds only for name sorts. A sort of kind
// none, or no sort at all, accepts no bounds.
func ValidateSortMinMax(sort types.Sort, bounds Bounds) error {
	if sort == nil || sort.String() == "" {
		if bounds.any() {
			return invalid("sort", "is required when min or max is set")
		}
		return nil
	}

	kind := sort.Kind()
	if kind != types.SortKindDate {
		if bounds.MinDate != nil {
			return invalid("mindate", "must be unset when sort is "+sort.String())
		}
		if bounds.MaxDate != nil {
			return invalid("maxdate", "must be unset when sort is "+sort.String())
		}
	}
	if kind != types.SortKindInteger {
		if bounds.Min != nil {
			return invalid("min", "must be unset when sort is "+sort.String())
		}
		if bounds.Max != nil {
			return invalid("max", "must be unset when sort is "+sort.String())
		}
	}
	if kind != types.SortKindString {
		if bounds.MinName != nil {
			return invalid("minname", "must be unset when sort is "+sort.String())
		}
		if bounds.MaxName != nil {
			return invalid("maxname", "must be unset when sort is "+sort.String())
		}
	}
	return nil
}
