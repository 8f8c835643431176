package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stacman/stacman"
	"github.com/stacman/stacman/api"
	"github.com/stacman/stacman/internal/output"
	"github.com/stacman/stacman/types"
)

var answerFlags listFlags

var answersCmd = &cobra.Command{
	Use:   "answers [ids...]",
	Short: "List answers, or fetch answers by id",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		opts, err := answerFlags.answerOptions(cmd)
		if err != nil {
			return err
		}

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close() // nolint:errcheck // best-effort flush

		answers := api.NewAnswers(s.client)
		var future *stacman.Future[types.Answer]
		if len(ids) > 0 {
			future, err = answers.GetByIDs(ids, opts)
		} else {
			future, err = answers.GetAll(opts)
		}
		if err != nil {
			return err
		}

		envelope, err := await(cmd.Context(), future)
		if err != nil {
			return err
		}
		return writeListing(cmd, "answers", output.AnswersListing(envelope))
	},
}

func init() {
	answerFlags.register(answersCmd, "activity|creation|votes")
	rootCmd.AddCommand(answersCmd)
}
