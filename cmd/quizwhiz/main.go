package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/five82/quizwhiz/internal/api"
	"github.com/five82/quizwhiz/internal/app"
)

const usage = `Usage:
  quizwhiz [--config PATH] [--refresh SECONDS] [--offline]
  quizwhiz login --username NAME [--password PASS]
  quizwhiz logout
  quizwhiz whoami
  quizwhiz logs [--lines N] [--level LEVEL]

Without --password, login reads the password from the first line of stdin.
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := ""
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	flags := pflag.NewFlagSet("quizwhiz "+cmd, pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := flags.String("config", "", "config file path (optional)")
	offline := flags.Bool("offline", false, "use a seeded in-process backend")
	var (
		refresh  *int
		username *string
		password *string
		lines    *int
		level    *string
	)
	switch cmd {
	case "":
		refresh = flags.Int("refresh", 0, "background refresh interval in seconds (optional)")
	case "login":
		username = flags.StringP("username", "u", "", "account username")
		password = flags.StringP("password", "p", "", "account password (default: read stdin)")
	case "logs":
		lines = flags.IntP("lines", "n", 200, "number of lines to read from the end of the log")
		level = flags.String("level", "", "minimum level to show (debug, info, warn, error)")
	case "logout", "whoami":
	case "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "quizwhiz: unknown command %q\n\n%s", cmd, usage)
		return 2
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	opts := app.Options{ConfigPath: *configPath, Offline: *offline}
	var err error
	switch cmd {
	case "":
		opts.RefreshEvery = *refresh
		err = app.Run(ctx, opts)
	case "login":
		err = login(ctx, opts, *username, *password, stdin, stdout)
	case "logout":
		if err = app.Logout(ctx, opts); err == nil {
			fmt.Fprintln(stdout, "Signed out.")
		}
	case "whoami":
		err = whoami(ctx, opts, stdout)
	case "logs":
		err = app.Logs(opts, *lines, *level, stdout)
	}
	if err != nil {
		fmt.Fprintf(stderr, "quizwhiz: %s\n", describe(err))
		return 1
	}
	return 0
}

func login(ctx context.Context, opts app.Options, username, password string, stdin io.Reader, stdout io.Writer) error {
	if password == "" {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	u, err := app.Login(ctx, opts, username, password)
	if api.IsKind(err, api.KindUnauthorized) {
		return errors.New("invalid username or password")
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Signed in as %s.\n", u.Username)
	return nil
}

func whoami(ctx context.Context, opts app.Options, stdout io.Writer) error {
	u, err := app.WhoAmI(ctx, opts)
	if u.ID == 0 {
		return err
	}
	role := string(u.Role.Normalize())
	fmt.Fprintf(stdout, "%s (id %d, %s)\n", u.Username, u.ID, role)
	if u.Email != "" {
		fmt.Fprintf(stdout, "email: %s\n", u.Email)
	}
	if err != nil {
		fmt.Fprintf(stdout, "(offline copy: %s)\n", api.UserMessage(err))
	}
	return nil
}

// describe turns known failures into the same wording the UI uses.
func describe(err error) string {
	var f *api.Failure
	if errors.Is(err, api.ErrNoSession) || errors.As(err, &f) {
		return api.UserMessage(err)
	}
	return err.Error()
}
