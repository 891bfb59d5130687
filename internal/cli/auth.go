package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"taskloop-sync/internal/service"

	"github.com/spf13/cobra"
)

// readSecret reads a single line from in when the flag was not given.
func readSecret(in io.Reader, out io.Writer, prompt, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// printResume tells the user how to get back to the room they were in when
// the login was requested.
func printResume(cmd *cobra.Command, a *app) error {
	route, err := a.auth.ConsumeRedirect(cmd.Context())
	if err != nil {
		return err
	}
	if service.IsSessionRoute(route) {
		fmt.Fprintf(cmd.OutOrStdout(), "Resume with: taskloop watch %s\n", strings.TrimPrefix(route, "/session/"))
	}
	return nil
}

func newLoginCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the token on this device",
		Args:  cobra.NoArgs,
		RunE: a.wrap(func(cmd *cobra.Command, _ []string) error {
			pw, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ", password)
			if err != nil {
				return err
			}
			if _, err := a.auth.Login(cmd.Context(), username, pw); err != nil {
				if errors.Is(err, service.ErrAuthenticationFailed) {
					return errors.New("invalid username or password")
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", strings.TrimSpace(username))
			return printResume(cmd, a)
		}),
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: a.wrap(func(cmd *cobra.Command, _ []string) error {
			pw, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ", password)
			if err != nil {
				return err
			}
			if _, err := a.auth.Register(cmd.Context(), username, email, pw); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account %s created, you are logged in.\n", strings.TrimSpace(username))
			return printResume(cmd, a)
		}),
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the token stored on this device",
		Args:  cobra.NoArgs,
		RunE: a.wrap(func(cmd *cobra.Command, _ []string) error {
			if err := a.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		}),
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: a.wrap(func(cmd *cobra.Command, _ []string) error {
			u, err := a.auth.CurrentUser(cmd.Context())
			if err != nil {
				return loginError(err)
			}
			return renderUser(cmd.OutOrStdout(), u)
		}),
	}
}
