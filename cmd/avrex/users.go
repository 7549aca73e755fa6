package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Account administration.",
}

var grantAdminCmd = &cobra.Command{
	Use:   "grant-admin EMAIL",
	Short: "Give every account registered with EMAIL the admin role.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()

		if err := svc.users.GrantAdmin(cmd.Context(), args[0]); err != nil {
			return err
		}
		logger.Sugar().Infow("granted admin role", "email", args[0])
		color.Green("%s is now an admin", args[0])
		return nil
	},
}

func init() {
	usersCmd.AddCommand(grantAdminCmd)
}
