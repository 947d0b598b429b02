package gamenite

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/charlesvien/game-nite/internal/auth"
	"github.com/charlesvien/game-nite/internal/config"
)

var (
	userEmail    string
	userName     string
	userPassword string
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage web accounts",
}

var usersAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an email and password account",
	Long: `Add creates an account in the sign-in database. When --password is
omitted the password is read from the terminal, or from the first line of
stdin when it is not a terminal.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load(viper.GetViper())

		password := userPassword
		if password == "" {
			var err error
			password, err = readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
		}

		store, err := auth.OpenStore(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()

		user, err := store.CreateUser(cmd.Context(), userEmail, userName, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", user.Email, user.ID)
		return nil
	},
}

func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	usersAddCmd.Flags().StringVar(&userEmail, "email", "", "account email (required)")
	usersAddCmd.Flags().StringVar(&userName, "name", "", "display name")
	usersAddCmd.Flags().StringVar(&userPassword, "password", "", "account password (prompted when empty)")
	cobra.CheckErr(usersAddCmd.MarkFlagRequired("email"))

	usersCmd.AddCommand(usersAddCmd)
	rootCmd.AddCommand(usersCmd)
}
