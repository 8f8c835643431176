package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/stacman/stacman"
	"github.com/stacman/stacman/api"
	"github.com/stacman/stacman/internal/output"
	"github.com/stacman/stacman/types"
)

var (
	questionFlags       listFlags
	questionsAnswers    bool
	questionsUnanswered bool
	questionsTagged     []string
)

var questionsCmd = &cobra.Command{
	Use:   "questions [ids...]",
	Short: "List questions, or fetch questions and their answers by id",
	Example: `  stacman questions --tagged go --sort votes --min 10
  stacman questions 11227809 --answers --sort votes
  stacman questions --unanswered --site superuser`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		if questionsAnswers && len(ids) == 0 {
			return errors.New("--answers requires at least one question id")
		}
		if questionsUnanswered && len(ids) > 0 {
			return errors.New("--unanswered cannot be combined with ids")
		}

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close() // nolint:errcheck // best-effort flush; errors logged by the client

		questions := api.NewQuestions(s.client)

		if questionsAnswers {
			opts, err := questionFlags.answerOptions(cmd)
			if err != nil {
				return err
			}
			future, err := questions.GetAnswers(ids, opts)
			if err != nil {
				return err
			}
			envelope, err := await(cmd.Context(), future)
			if err != nil {
				return err
			}
			return writeListing(cmd, "question-answers", output.AnswersListing(envelope))
		}

		opts, err := questionFlags.questionOptions(cmd, questionsTagged)
		if err != nil {
			return err
		}

		name := "questions"
		var future *stacman.Future[types.Question]
		switch {
		case len(ids) > 0:
			future, err = questions.GetByIDs(ids, opts)
		case questionsUnanswered:
			name = "questions-unanswered"
			future, err = questions.GetUnanswered(opts)
		default:
			future, err = questions.GetAll(opts)
		}
		if err != nil {
			return err
		}

		envelope, err := await(cmd.Context(), future)
		if err != nil {
			return err
		}
		return writeListing(cmd, name, output.QuestionsListing(envelope))
	},
}

func init() {
	questionFlags.register(questionsCmd, "activity|creation|votes|hot|week|month (answers: activity|creation|votes)")
	questionsCmd.Flags().BoolVar(&questionsAnswers, "answers", false, "list the answers to the given questions")
	questionsCmd.Flags().BoolVar(&questionsUnanswered, "unanswered", false, "list questions with no upvoted answer")
	questionsCmd.Flags().StringSliceVar(&questionsTagged, "tagged", nil, "only questions with all of these tags")
	rootCmd.AddCommand(questionsCmd)
}
