package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	authEmail         string
	authPasswordStdin bool
	loginGoogle       bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password, or with Google",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	Args:  cobra.NoArgs,
	RunE:  runSignup,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the saved session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, signupCmd} {
		c.Flags().StringVar(&authEmail, "email", "", "Account email (prompted when omitted)")
		c.Flags().BoolVar(&authPasswordStdin, "password-stdin", false, "Read the password from stdin")
	}
	loginCmd.Flags().BoolVar(&loginGoogle, "google", false, "Sign in with Google in the browser")
	loginCmd.MarkFlagsMutuallyExclusive("google", "email")
	loginCmd.MarkFlagsMutuallyExclusive("google", "password-stdin")

	rootCmd.AddCommand(loginCmd, signupCmd, logoutCmd, whoamiCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a := newApp(cfg)
	defer a.Close()

	if loginGoogle {
		if err := a.Session.SignInWithGoogle(cmd.Context(), openBrowser(cmd.OutOrStdout())); err != nil {
			return friendly(err, "Google sign-in failed")
		}
	} else {
		email, password, err := readCredentials(cmd)
		if err != nil {
			return err
		}
		if err := a.Session.SignIn(cmd.Context(), email, password); err != nil {
			return friendly(err, "Sign in failed")
		}
	}

	user, _ := a.Session.CurrentUser()
	printer(cmd).PrintSession(&user)
	return nil
}

func runSignup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a := newApp(cfg)
	defer a.Close()

	email, password, err := readCredentials(cmd)
	if err != nil {
		return err
	}
	result, err := a.Session.SignUp(cmd.Context(), email, password)
	if err != nil {
		return friendly(err, "Sign up failed")
	}
	if result.ConfirmationRequired {
		printer(cmd).PrintMessage("Check your email to confirm your account, then run `resume_tailor login`.")
		return nil
	}

	user, _ := a.Session.CurrentUser()
	printer(cmd).PrintSession(&user)
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a := newApp(cfg)
	defer a.Close()

	// A failed restore still leaves a local session to clear.
	_ = a.Session.Restore(cmd.Context())
	a.Session.SignOut(cmd.Context())
	printer(cmd).PrintMessage("Signed out.")
	return nil
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a := newApp(cfg)
	defer a.Close()

	if err := a.Session.Restore(cmd.Context()); err != nil {
		return friendly(err, "Could not restore the saved session")
	}
	if user, ok := a.Session.CurrentUser(); ok {
		printer(cmd).PrintSession(&user)
		return nil
	}
	printer(cmd).PrintSession(nil)
	return nil
}

// readCredentials takes the email from --email or a prompt, and the password
// from stdin or a hidden terminal prompt.
func readCredentials(cmd *cobra.Command) (string, string, error) {
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	email := strings.TrimSpace(authEmail)
	if email == "" {
		_, _ = fmt.Fprint(out, "Email: ")
		line, err := readLine(in)
		if err != nil {
			return "", "", fmt.Errorf("failed to read email: %w", err)
		}
		email = line
	}

	if !authPasswordStdin {
		if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			_, _ = fmt.Fprint(out, "Password: ")
			pw, err := term.ReadPassword(int(f.Fd()))
			_, _ = fmt.Fprintln(out)
			if err != nil {
				return "", "", fmt.Errorf("failed to read password: %w", err)
			}
			return email, string(pw), nil
		}
	}

	password, err := readLine(in)
	if err != nil {
		return "", "", fmt.Errorf("failed to read password: %w", err)
	}
	return email, password, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
