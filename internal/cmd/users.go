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
	userFlags      listFlags
	usersInName    string
	usersQuestions bool
	usersTagged    []string
)

var usersCmd = &cobra.Command{
	Use:   "users [ids...]",
	Short: "List users, fetch users by id, or list their questions",
	Example: `  stacman users --inname jon --sort reputation
  stacman users 22656 --questions --sort votes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		if usersQuestions && len(ids) == 0 {
			return errors.New("--questions requires at least one user id")
		}

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close() // nolint:errcheck // best-effort flush

		users := api.NewUsers(s.client)

		if usersQuestions {
			opts, err := userFlags.questionOptions(cmd, usersTagged)
			if err != nil {
				return err
			}
			future, err := users.GetQuestions(ids, opts)
			if err != nil {
				return err
			}
			envelope, err := await(cmd.Context(), future)
			if err != nil {
				return err
			}
			return writeListing(cmd, "user-questions", output.QuestionsListing(envelope))
		}

		opts, err := userFlags.userOptions(cmd, usersInName)
		if err != nil {
			return err
		}

		var future *stacman.Future[types.User]
		if len(ids) > 0 {
			future, err = users.GetByIDs(ids, opts)
		} else {
			future, err = users.GetAll(opts)
		}
		if err != nil {
			return err
		}

		envelope, err := await(cmd.Context(), future)
		if err != nil {
			return err
		}
		return writeListing(cmd, "users", output.UsersListing(envelope))
	},
}

func init() {
	userFlags.register(usersCmd, "reputation|creation|name (questions: activity|creation|votes)")
	usersCmd.Flags().StringVar(&usersInName, "inname", "", "only users whose display name contains this")
	usersCmd.Flags().BoolVar(&usersQuestions, "questions", false, "list the questions asked by the given users")
	usersCmd.Flags().StringSliceVar(&usersTagged, "tagged", nil, "with --questions, only questions with all of these tags")
	rootCmd.AddCommand(usersCmd)
}
