package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-avrex/internal/accesskey"
	"github.com/ovaphlow/pitchfork/service-avrex/internal/accesskey/entity"
)

// keysCmd represents the keys command group
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage signup access keys.",
}

var keysAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Generate new unused access keys.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		svc, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()

		keys, err := svc.keys.Generate(cmd.Context(), count)
		if err != nil {
			return err
		}
		logger.Sugar().Infow("added access keys", "count", len(keys))
		for _, k := range keys {
			color.Green("%s", k)
		}
		return nil
	},
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every access key; used keys are shown in red.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()

		keys, err := svc.keys.ListAll(cmd.Context())
		if err != nil {
			return err
		}
		for _, k := range keys {
			if k.Used {
				color.Red("%s used", k.Key)
			} else {
				color.Green("%s unused", k.Key)
			}
		}
		used, unused := lo.FilterReject(keys, func(k entity.AccessKey, _ int) bool { return k.Used })
		fmt.Fprintf(cmd.OutOrStdout(), "%d keys, %d used, %d unused\n", len(keys), len(used), len(unused))
		return nil
	},
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete KEY",
	Short: "Delete an access key whether used or not.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !accesskey.ValidKey(args[0]) {
			color.Yellow("warning: %q is not a well-formed access key", args[0])
		}
		svc, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()

		if err := svc.keys.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		logger.Sugar().Infow("deleted access key", "key", args[0])
		return nil
	},
}

func init() {
	keysAddCmd.Flags().Int("count", 1, "number of keys to generate")
	keysCmd.AddCommand(keysAddCmd, keysListCmd, keysDeleteCmd)
}
