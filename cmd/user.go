package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/antibyte/calcvault/pkg/auth"
	"github.com/antibyte/calcvault/pkg/store"
	"github.com/antibyte/calcvault/pkg/ui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	userPassword    string
	userDisplayName string
	userEmail       string

	UserCmd = &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	userAddCmd = &cobra.Command{
		Use:   "add <username>",
		Short: "Create an account with a password",
		Long: `Creates an account. Without --password the password is read from the
terminal, or from the first line of standard input when it is not a terminal.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			if err := auth.ValidateUsername(username); err != nil {
				return err
			}
			password := userPassword
			if password == "" {
				var err error
				if password, err = readPassword(cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
					return err
				}
			}
			if err := auth.ValidatePassword(password); err != nil {
				return err
			}

			svc, err := openServices()
			if err != nil {
				return err
			}
			defer svc.Close()

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			u := &store.User{
				Username:     username,
				PasswordHash: hash,
				DisplayName:  userDisplayName,
				Email:        userEmail,
			}
			if u.DisplayName == "" {
				u.DisplayName = username
			}
			if err := svc.db.CreateUser(cmd.Context(), u); err != nil {
				if errors.Is(err, store.ErrUsernameTaken) {
					fmt.Fprintln(cmd.OutOrStdout(), failure("User "+ui.Highlight.Sprint(username)+" already exists"))
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), success("Created user "+ui.Highlight.Sprint(username)+" "+ui.Muted.Sprint(u.UID)))
			return nil
		},
	}

	userListCmd = &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List accounts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openServices()
			if err != nil {
				return err
			}
			defer svc.Close()

			users, err := svc.db.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "UID\tUSERNAME\tCREATED\tLAST LOGIN")
			for _, u := range users {
				name := u.Username
				if u.Anonymous {
					name = "(anonymous)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.UID, name, formatTime(u.CreatedAt), formatTime(u.LastLogin))
			}
			return w.Flush()
		},
	}

	userRemoveCmd = &cobra.Command{
		Use:   "rm <username>",
		Short: "Delete an account with its passcode and pictures",
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
			// objects are not covered by the foreign key cascade
			images, err := svc.gallery.List(cmd.Context(), u.UID)
			if err != nil {
				return err
			}
			for _, img := range images {
				if err := svc.gallery.Delete(cmd.Context(), u.UID, img.ID); err != nil {
					return err
				}
			}
			if err := svc.db.DeleteUser(cmd.Context(), u.UID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), success(fmt.Sprintf("Deleted user %s and %d images", ui.Highlight.Sprint(u.Username), len(images))))
			return nil
		},
	}
)

func init() {
	userAddCmd.Flags().StringVarP(&userPassword, "password", "p", "", "password (prompted when empty)")
	userAddCmd.Flags().StringVar(&userDisplayName, "display-name", "", "display name (defaults to the username)")
	userAddCmd.Flags().StringVar(&userEmail, "email", "", "email address")

	UserCmd.AddCommand(userAddCmd)
	UserCmd.AddCommand(userListCmd)
	UserCmd.AddCommand(userRemoveCmd)
}

func resetUserCommandState() {
	userPassword = ""
	userDisplayName = ""
	userEmail = ""
}

// lookupUser resolves a username and prints a hint when it is unknown.
func lookupUser(cmd *cobra.Command, svc *services, username string) (*store.User, error) {
	u, err := svc.db.GetUserByUsername(cmd.Context(), username)
	if errors.Is(err, store.ErrNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), failure("User "+ui.Highlight.Sprint(username)+" does not exist"))
		fmt.Fprintln(cmd.OutOrStdout(), ui.Info.Sprint("→")+" Run "+ui.Code.Sprint("calcvault user ls")+" to see all accounts")
		return nil, fmt.Errorf("unknown user %q", username)
	}
	return u, err
}

func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
