package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stacman/stacman"
	"github.com/stacman/stacman/api"
	"github.com/stacman/stacman/types"
)

// listFlags holds the paging, sorting and range flags shared by the listing
// commands.
type listFlags struct {
	filter   string
	page     int
	pageSize int
	sort     string
	order    string
	fromDate string
	toDate   string
	min      string
	max      string
}

func (f *listFlags) register(cmd *cobra.Command, sortHelp string) {
	flags := cmd.Flags()
	flags.StringVar(&f.filter, "filter", "", "named response filter")
	flags.IntVar(&f.page, "page", 1, "page number (1-based)")
	flags.IntVar(&f.pageSize, "pagesize", 30, "items per page")
	flags.StringVar(&f.sort, "sort", "", "sort: "+sortHelp)
	flags.StringVar(&f.order, "order", "", "order: desc|asc")
	flags.StringVar(&f.fromDate, "fromdate", "", "earliest creation date (YYYY-MM-DD, RFC3339 or unix seconds)")
	flags.StringVar(&f.toDate, "todate", "", "latest creation date")
	flags.StringVar(&f.min, "min", "", "lower bound for the sort field")
	flags.StringVar(&f.max, "max", "", "upper bound for the sort field")
	addOutputFlags(cmd)
}

// common only sends page and pagesize when they were given explicitly.
func (f *listFlags) common(cmd *cobra.Command) api.Common {
	common := api.Common{Filter: strings.TrimSpace(f.filter)}
	if cmd.Flags().Changed("page") {
		common.Page = api.Int(f.page)
	}
	if cmd.Flags().Changed("pagesize") {
		common.PageSize = api.Int(f.pageSize)
	}
	return common
}

func (f *listFlags) dateRange() (api.DateRange, error) {
	var r api.DateRange
	var err error
	if r.FromDate, err = parseOptionalDate(f.fromDate, "fromdate"); err != nil {
		return r, err
	}
	if r.ToDate, err = parseOptionalDate(f.toDate, "todate"); err != nil {
		return r, err
	}
	return r, nil
}

func (f *listFlags) orderValue() (types.Order, error) {
	switch strings.ToLower(strings.TrimSpace(f.order)) {
	case "":
		return "", nil
	case string(types.OrderDesc):
		return types.OrderDesc, nil
	case string(types.OrderAsc):
		return types.OrderAsc, nil
	default:
		return "", fmt.Errorf("unsupported order: %s", f.order)
	}
}

// bounds interprets --min/--max according to the sort's kind. Without a
// sort the raw values are passed as names so validation can reject them.
func (f *listFlags) bounds(kind types.SortKind) (api.Bounds, error) {
	var b api.Bounds
	minValue := strings.TrimSpace(f.min)
	maxValue := strings.TrimSpace(f.max)

	switch kind {
	case types.SortKindDate:
		var err error
		if b.MinDate, err = parseOptionalDate(minValue, "min"); err != nil {
			return b, err
		}
		if b.MaxDate, err = parseOptionalDate(maxValue, "max"); err != nil {
			return b, err
		}
	case types.SortKindInteger:
		var err error
		if b.Min, err = parseOptionalInt(minValue, "min"); err != nil {
			return b, err
		}
		if b.Max, err = parseOptionalInt(maxValue, "max"); err != nil {
			return b, err
		}
	default:
		if minValue != "" {
			b.MinName = api.String(minValue)
		}
		if maxValue != "" {
			b.MaxName = api.String(maxValue)
		}
	}
	return b, nil
}

func (f *listFlags) questionOptions(cmd *cobra.Command, tagged []string) (api.QuestionListOptions, error) {
	opts := api.QuestionListOptions{Common: f.common(cmd), Tagged: tagged}
	sort, err := parseQuestionSort(f.sort)
	if err != nil {
		return opts, err
	}
	opts.Sort = sort
	if opts.Order, err = f.orderValue(); err != nil {
		return opts, err
	}
	if opts.DateRange, err = f.dateRange(); err != nil {
		return opts, err
	}
	if opts.Bounds, err = f.bounds(sortKind(sort)); err != nil {
		return opts, err
	}
	return opts, nil
}

func (f *listFlags) answerOptions(cmd *cobra.Command) (api.AnswerListOptions, error) {
	opts := api.AnswerListOptions{Common: f.common(cmd)}
	sort, err := parseAnswerSort(f.sort)
	if err != nil {
		return opts, err
	}
	opts.Sort = sort
	if opts.Order, err = f.orderValue(); err != nil {
		return opts, err
	}
	if opts.DateRange, err = f.dateRange(); err != nil {
		return opts, err
	}
	if opts.Bounds, err = f.bounds(sortKind(sort)); err != nil {
		return opts, err
	}
	return opts, nil
}

func (f *listFlags) userOptions(cmd *cobra.Command, inName string) (api.UserListOptions, error) {
	opts := api.UserListOptions{Common: f.common(cmd), InName: strings.TrimSpace(inName)}
	sort, err := parseUserSort(f.sort)
	if err != nil {
		return opts, err
	}
	opts.Sort = sort
	if opts.Order, err = f.orderValue(); err != nil {
		return opts, err
	}
	if opts.DateRange, err = f.dateRange(); err != nil {
		return opts, err
	}
	if opts.Bounds, err = f.bounds(sortKind(sort)); err != nil {
		return opts, err
	}
	return opts, nil
}

func sortKind[S interface {
	~string
	Kind() types.SortKind
}](sort S) types.SortKind {
	if sort == "" {
		return types.SortKindNone
	}
	return sort.Kind()
}

func parseQuestionSort(value string) (types.QuestionSort, error) {
	sort := types.QuestionSort(strings.ToLower(strings.TrimSpace(value)))
	switch sort {
	case "", types.QuestionSortActivity, types.QuestionSortCreation, types.QuestionSortVotes,
		types.QuestionSortHot, types.QuestionSortWeek, types.QuestionSortMonth:
		return sort, nil
	}
	return "", fmt.Errorf("unsupported question sort: %s", value)
}

func parseAnswerSort(value string) (types.AnswerSort, error) {
	sort := types.AnswerSort(strings.ToLower(strings.TrimSpace(value)))
	switch sort {
	case "", types.AnswerSortActivity, types.AnswerSortCreation, types.AnswerSortVotes:
		return sort, nil
	}
	return "", fmt.Errorf("unsupported answer sort: %s", value)
}

func parseUserSort(value string) (types.UserSort, error) {
	sort := types.UserSort(strings.ToLower(strings.TrimSpace(value)))
	switch sort {
	case "", types.UserSortReputation, types.UserSortCreation, types.UserSortName:
		return sort, nil
	}
	return "", fmt.Errorf("unsupported user sort: %s", value)
}

func parseOptionalInt(value, name string) (*int, error) {
	if value == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("--%s must be an integer: %w", name, err)
	}
	return &n, nil
}

// parseOptionalDate accepts unix seconds, a calendar date or RFC3339.
func parseOptionalDate(value, name string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		t := time.Unix(seconds, 0).UTC()
		return &t, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("--%s: unrecognized date %q", name, value)
}

// parseIDs accepts ids as separate arguments or semicolon/comma lists.
func parseIDs(args []string) ([]int, error) {
	var ids []int
	for _, arg := range args {
		for _, part := range strings.FieldsFunc(arg, func(r rune) bool { return r == ';' || r == ',' }) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("invalid id %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// await waits for a future and folds API errors into the error return.
func await[T any](ctx context.Context, future *stacman.Future[T]) (*stacman.Envelope[T], error) {
	result, err := future.Wait(ctx)
	if err != nil {
		return nil, err
	}
	envelope, err := result.Unwrap()
	if err != nil {
		return nil, err
	}
	return envelope, envelope.APIError()
}
