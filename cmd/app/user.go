package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BuzzLyutic/collab-board/internal/model"
	"github.com/BuzzLyutic/collab-board/internal/repo"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage the user records used to display assignees",
}

var (
	userName  string
	userEmail string
)

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a user known to the identity provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(userName) == "" {
			return errors.New("--username is required")
		}

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		backend, err := repo.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer backend.Close()

		u, err := backend.Users.Create(cmd.Context(), model.User{Username: userName, Email: userEmail})
		if errors.Is(err, repo.ErrorConflict) {
			return fmt.Errorf("user %q already exists", userName)
		}
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), u.ID)
		return nil
	},
}

func init() {
	userAddCmd.Flags().StringVar(&userName, "username", "", "username")
	userAddCmd.Flags().StringVar(&userEmail, "email", "", "email")
	userCmd.AddCommand(userAddCmd)
}
