package command

import (
	"context"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/recall-go/internal/cli/view"
	"github.com/yndnr/recall-go/internal/core/domain"
	"github.com/yndnr/recall-go/internal/telemetry/logger"
)

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "email",
			Aliases: []string{"e"},
			Usage:   "Account email (prompted when omitted)",
		},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"p"},
			Usage:   "Account password (prompted when omitted)",
			EnvVars: []string{"RECALL_PASSWORD"},
		},
	}
}

// LoginCommand returns the login command.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:   "login",
		Usage:  "Sign in and store the session",
		Flags:  credentialFlags(),
		Action: withRuntime(login),
	}
}

// SignupCommand returns the signup command.
func SignupCommand() *cli.Command {
	flags := append(credentialFlags(), &cli.StringFlag{
		Name:  "confirm",
		Usage: "Password confirmation (prompted when omitted)",
	})
	return &cli.Command{
		Name:   "signup",
		Usage:  "Create an account and store the session",
		Flags:  flags,
		Action: withRuntime(signup),
	}
}

// LogoutCommand returns the logout command.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "End the session and clear stored credentials",
		Action: withRuntime(logout),
	}
}

// WhoamiCommand returns the whoami command.
func WhoamiCommand() *cli.Command {
	return &cli.Command{
		Name:   "whoami",
		Usage:  "Show the logged-in account",
		Action: withRuntime(whoami),
	}
}

// ForgotPasswordCommand returns the forgot-password command.
func ForgotPasswordCommand() *cli.Command {
	return &cli.Command{
		Name:      "forgot-password",
		Usage:     "Request a password reset email",
		ArgsUsage: "[EMAIL]",
		Flags:     credentialFlags()[:1],
		Action:    withRuntime(forgotPassword),
	}
}

// readCredentials takes email and password from flags, prompting for the
// missing ones.
func readCredentials(c *cli.Context, rt *Runtime) (domain.Credentials, error) {
	creds := domain.Credentials{Email: strings.TrimSpace(c.String("email")), Password: c.String("password")}
	var err error
	if creds.Email == "" {
		if creds.Email, err = rt.Prompt("Email: "); err != nil {
			return creds, err
		}
		creds.Email = strings.TrimSpace(creds.Email)
	}
	if creds.Password == "" {
		if creds.Password, err = rt.Prompt("Password: "); err != nil {
			return creds, err
		}
	}
	return creds, nil
}

func login(ctx context.Context, c *cli.Context, rt *Runtime) error {
	creds, err := readCredentials(c, rt)
	if err != nil {
		return err
	}
	user, err := rt.Auth.Login(ctx, creds)
	if err != nil {
		return err
	}
	rt.Printf("✓ Logged in as %s\n", user.Email)
	return nil
}

func signup(ctx context.Context, c *cli.Context, rt *Runtime) error {
	creds, err := readCredentials(c, rt)
	if err != nil {
		return err
	}
	confirm := c.String("confirm")
	if confirm == "" && !c.IsSet("password") {
		if confirm, err = rt.Prompt("Confirm password: "); err != nil {
			return err
		}
	} else if confirm == "" {
		confirm = creds.Password
	}
	user, err := rt.Auth.Signup(ctx, creds, confirm)
	if err != nil {
		return err
	}
	rt.Printf("✓ Account created for %s\n", user.Email)
	return nil
}

func logout(ctx context.Context, _ *cli.Context, rt *Runtime) error {
	if _, err := rt.Auth.Session(ctx); err != nil {
		rt.Printf("Not logged in.\n")
		return nil
	}
	// The local session is gone even when the backend call fails.
	if err := rt.Auth.Logout(ctx); err != nil {
		logger.L(ctx).Warn("remote logout failed", "error", err)
	}
	rt.Printf("✓ Logged out\n")
	return nil
}

func whoami(ctx context.Context, _ *cli.Context, rt *Runtime) error {
	if _, err := rt.Auth.Session(ctx); err != nil {
		return err
	}
	user, err := rt.Auth.Me(ctx)
	if err != nil {
		return err
	}
	return rt.Render(user, view.User(user))
}

func forgotPassword(ctx context.Context, c *cli.Context, rt *Runtime) error {
	email := c.String("email")
	if email == "" {
		email = c.Args().First()
	}
	if strings.TrimSpace(email) == "" {
		var err error
		if email, err = rt.Prompt("Email: "); err != nil {
			return err
		}
	}
	msg, err := rt.Auth.ForgotPassword(ctx, email)
	if err != nil {
		return err
	}
	if msg == "" {
		msg = "Password reset email sent! Check your inbox."
	}
	rt.Printf("✓ %s\n", msg)
	return nil
}
