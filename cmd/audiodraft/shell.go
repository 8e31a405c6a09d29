// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Srithwak/Audio-Draft/internal/auth"
	"github.com/Srithwak/Audio-Draft/internal/httpapi"
	"github.com/Srithwak/Audio-Draft/pkg/errutil"
)

const songRowFormat = "  %-30s %-25s %-25s %-15s\n"

// NewShellCmd creates the shell subcommand.
func NewShellCmd() *cobra.Command {
	return newShellCmd(openDatabase)
}

func newShellCmd(open DatabaseOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive register/login/songs menu",
		Long: `Run a terminal menu over the same services the API uses: register, log in,
list the song catalog and log out. The session ends when the shell exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap(cmd)
			if err != nil {
				return err
			}

			db, err := open(cmd.Context(), cfg, logger)
			if err != nil {
				return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
			}
			defer db.Close()

			svc, err := buildServices(cfg, db, logger, nil)
			if err != nil {
				return err
			}

			sh := newShell(svc.authenticator, svc.catalog, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
			if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // fd fits in int
				sh.readPassword = terminalPassword(int(f.Fd()), cmd.OutOrStdout()) //nolint:gosec // fd fits in int
			}
			return sh.run(cmd.Context())
		},
	}
}

// shell is the interactive menu. It holds at most one session.
type shell struct {
	accounts httpapi.Accounts
	songs    httpapi.Catalog
	in       *bufio.Reader
	out      io.Writer
	logger   *slog.Logger

	// readPassword prompts for a password. Defaults to reading a plain line.
	readPassword func(prompt string) (string, error)

	handle   string
	username string
}

func newShell(accounts httpapi.Accounts, songs httpapi.Catalog, in io.Reader, out io.Writer, logger *slog.Logger) *shell {
	if logger == nil {
		logger = slog.Default()
	}
	s := &shell{
		accounts: accounts,
		songs:    songs,
		in:       bufio.NewReader(in),
		out:      out,
		logger:   logger,
	}
	s.readPassword = s.readLine
	return s
}

func terminalPassword(fd int, out io.Writer) func(prompt string) (string, error) {
	return func(prompt string) (string, error) {
		fmt.Fprint(out, prompt)
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
}

func (s *shell) loggedIn() bool {
	return s.handle != ""
}

func (s *shell) println(msg string) {
	fmt.Fprintln(s.out, "  "+msg)
}

// readLine prints prompt and returns the next input line without its newline.
// A final line without a newline is returned; io.EOF only follows it.
func (s *shell) readLine(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	line, err := s.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (s *shell) run(ctx context.Context) error {
	defer s.logout(context.WithoutCancel(ctx))

	for {
		fmt.Fprintln(s.out, "\n=== Audio-Draft ===")
		if s.loggedIn() {
			s.println("Logged in as: " + s.username)
		}
		for _, item := range []string{"1) Register", "2) Login", "3) Fetch Songs", "4) Logout", "5) Exit"} {
			s.println(item)
		}

		choice, err := s.readLine("  > ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out)
				s.println("Bye!")
				return nil
			}
			return oops.Code("SHELL_INPUT_FAILED").Wrap(err)
		}

		switch strings.TrimSpace(choice) {
		case "1":
			err = s.register(ctx)
		case "2":
			err = s.login(ctx)
		case "3":
			s.fetchSongs(ctx)
		case "4":
			if !s.loggedIn() {
				s.println("Not logged in.")
				continue
			}
			s.logout(ctx)
			s.println("Logged out.")
		case "5":
			s.println("Bye!")
			return nil
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			s.println("Bye!")
			return nil
		}
		if err != nil {
			return oops.Code("SHELL_INPUT_FAILED").Wrap(err)
		}
	}
}

func (s *shell) register(ctx context.Context) error {
	username, err := s.readLine("  Username: ")
	if err != nil {
		return err
	}
	email, err := s.readLine("  Email: ")
	if err != nil {
		return err
	}
	password, err := s.readPassword("  Password: ")
	if err != nil {
		return err
	}

	if _, err := s.accounts.Register(ctx, username, email, password); err != nil {
		s.println("Failed: " + s.describe(ctx, err, "register"))
		return nil
	}
	s.println("Registered!")
	return nil
}

func (s *shell) login(ctx context.Context) error {
	if s.loggedIn() {
		s.println("Already logged in.")
		return nil
	}
	email, err := s.readLine("  Email: ")
	if err != nil {
		return err
	}
	password, err := s.readPassword("  Password: ")
	if err != nil {
		return err
	}

	result, err := s.accounts.Login(ctx, email, password)
	switch auth.KindOf(err) {
	case auth.KindUnknown:
		if err == nil {
			s.handle = result.Handle
			s.username = result.Username
			s.println("Welcome!")
			return nil
		}
	case auth.KindInvalidCredentials, auth.KindInvalidInput:
		s.println("Invalid credentials.")
		return nil
	}
	s.println("Failed: " + s.describe(ctx, err, "login"))
	return nil
}

func (s *shell) fetchSongs(ctx context.Context) {
	if !s.loggedIn() {
		s.println("Log in first.")
		return
	}
	songs, err := s.songs.ListCatalog(ctx, s.handle)
	if err != nil {
		if auth.KindOf(err) == auth.KindUnauthenticated {
			s.handle, s.username = "", ""
			s.println("Session expired. Log in first.")
			return
		}
		s.println("Error: " + s.describe(ctx, err, "list songs"))
		return
	}
	if len(songs) == 0 {
		fmt.Fprintln(s.out)
		s.println("No songs found. Run 'audiodraft seed' to load the demo catalog.")
		return
	}

	fmt.Fprintln(s.out)
	fmt.Fprintf(s.out, songRowFormat, "Title", "Artist", "Album", "Genre")
	s.println(strings.Repeat("-", 95))
	for _, song := range songs {
		fmt.Fprintf(s.out, songRowFormat, song.Title, song.Artist, song.Album, song.Genre)
	}
}

// logout ends the held session, if any.
func (s *shell) logout(ctx context.Context) {
	if !s.loggedIn() {
		return
	}
	s.accounts.Logout(ctx, s.handle)
	s.handle, s.username = "", ""
}

// describe turns err into a message fit for the terminal.
func (s *shell) describe(ctx context.Context, err error, operation string) string {
	switch auth.KindOf(err) {
	case auth.KindInvalidInput:
		return "All fields required."
	case auth.KindDuplicateEmail:
		return "Email already registered."
	case auth.KindInvalidCredentials:
		return "Invalid email or password."
	default:
		errutil.LogError(ctx, s.logger, operation+" failed", err)
		return "service unavailable, see the log for details."
	}
}
