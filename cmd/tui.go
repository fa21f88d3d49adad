package cmd

import (
	"github.com/antibyte/calcvault/pkg/logger"
	"github.com/antibyte/calcvault/pkg/tui"

	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Run the calculator in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		// warnings on stderr would tear the alternate screen
		logger.SetMirror(false)

		svc, err := openServices()
		if err != nil {
			return err
		}
		defer svc.Close()

		return tui.Run(tui.Services{
			Auth:      svc.auth,
			Passcodes: svc.passcodes,
			Gallery:   svc.gallery,
		})
	},
}
