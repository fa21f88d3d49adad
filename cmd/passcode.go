package cmd

import (
	"fmt"

	"github.com/antibyte/calcvault/pkg/passcode"
	"github.com/antibyte/calcvault/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	passcodeConfirm string

	PasscodeCmd = &cobra.Command{
		Use:   "passcode",
		Short: "Set or reset the passcode that opens the gallery",
	}

	passcodeSetCmd = &cobra.Command{
		Use:   "set <username> <passcode>",
		Short: "Set a custom passcode",
		Long: `Sets the digits that, typed on the calculator followed by "=", open the
gallery of the account. --confirm defaults to the passcode itself.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[1]
			confirm := passcodeConfirm
			if !cmd.Flags().Changed("confirm") {
				confirm = code
			}
			if err := passcode.Validate(code, confirm); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), failure("Passcode rejected: "+err.Error()))
				return err
			}

			svc, err := openServices()
			if err != nil {
				return err
			}
			defer svc.Close()

			u, err := lookupUser(cmd, svc, args[0])
			if err != nil {
				return err
			}
			if err := svc.passcodes.Change(cmd.Context(), u.UID, code, confirm); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), success("Passcode updated for "+ui.Highlight.Sprint(u.Username)))
			return nil
		},
	}

	passcodeResetCmd = &cobra.Command{
		Use:   "reset <username>",
		Short: "Return to the default passcode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openServices()
			if err != nil {
				return err
			}
			defer svc.Close()

			u, err := lookupUser(cmd, svc, args[0])
			if err != nil {
				return err
			}
			if err := svc.passcodes.Reset(cmd.Context(), u.UID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), success("Passcode of "+ui.Highlight.Sprint(u.Username)+" reset to the default"))
			return nil
		},
	}
)

func init() {
	passcodeSetCmd.Flags().StringVar(&passcodeConfirm, "confirm", "", "repeat the passcode")

	PasscodeCmd.AddCommand(passcodeSetCmd)
	PasscodeCmd.AddCommand(passcodeResetCmd)
}

func resetPasscodeCommandState() {
	passcodeConfirm = ""
}
