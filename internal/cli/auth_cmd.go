// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jeranaias/helia-tui/internal/api"
	"github.com/jeranaias/helia-tui/internal/model"
)

// =============================================================================
// PROMPTS
// =============================================================================

type prompter struct {
	in    *bufio.Reader
	out   io.Writer
	isTTY bool
}

func newPrompter(app *App, out io.Writer) *prompter {
	in := app.input()
	return &prompter{
		in:    bufio.NewReader(in),
		out:   out,
		isTTY: in == os.Stdin && IsTTY(),
	}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	s, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.TrimSpace(label), ":"), err)
	}
	return strings.TrimSpace(s), nil
}

// password reads without echo on a terminal, or a plain line otherwise.
func (p *prompter) password(label string) (string, error) {
	if !p.isTTY {
		return p.line(label)
	}
	fmt.Fprint(p.out, label)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

// =============================================================================
// LOGIN / LOGOUT / REGISTER
// =============================================================================

func newLoginCommand(app *App) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store tokens locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(app, cmd.ErrOrStderr())
			var err error
			if email == "" {
				if email, err = p.line("Email: "); err != nil {
					return err
				}
			}
			password, err := p.password("Password: ")
			if err != nil {
				return err
			}
			if err := app.Auth.Login(cmd.Context(), email, password); err != nil {
				if errors.Is(err, api.ErrUnauthorized) {
					return fmt.Errorf("incorrect email or password: %w", err)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Logged in as "+app.Auth.Credentials().Email))
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func newLogoutCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget stored tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.Auth.LoggedIn() {
				fmt.Fprintln(cmd.OutOrStdout(), DimStyle.Render("Not logged in."))
				return nil
			}
			if err := app.Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Logged out."))
			return nil
		},
	}
}

func newRegisterCommand(app *App) *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(app, cmd.ErrOrStderr())
			var err error
			if name == "" {
				if name, err = p.line("Name: "); err != nil {
					return err
				}
			}
			if email == "" {
				if email, err = p.line("Email: "); err != nil {
					return err
				}
			}
			password, err := p.password("Password: ")
			if err != nil {
				return err
			}
			confirm, err := p.password("Confirm password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return &UsageError{Field: "password", Reason: "passwords do not match"}
			}

			u, err := app.Auth.Register(cmd.Context(), api.Registration{Name: name, Email: email, Password: password})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Welcome, "+u.Name+"! You are logged in."))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

// =============================================================================
// WHOAMI / PROFILE
// =============================================================================

func newWhoamiCommand(app *App) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			u, err := app.Auth.Me(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, u)
			}
			printUser(cmd.OutOrStdout(), u)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func newProfileCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			u, err := app.API.GetProfile(cmd.Context())
			if err != nil {
				return err
			}
			printUser(cmd.OutOrStdout(), u)
			return nil
		},
	}

	var upd struct {
		name, age, occupation, tone, tech, parentType, timeWithKids string
	}
	set := &cobra.Command{
		Use:   "set",
		Short: "Update profile fields",
		Example: `  helia profile set --name "Sam" --age 38
  helia profile set --tone gentle`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			var pu model.ProfileUpdate
			flags := cmd.Flags()
			str := func(flag, value string) *string {
				if !flags.Changed(flag) {
					return nil
				}
				return &value
			}
			pu.Name = str("name", upd.name)
			pu.Occupation = str("occupation", upd.occupation)
			pu.TonePreference = str("tone", upd.tone)
			pu.TechFamiliarity = str("tech", upd.tech)
			pu.ParentType = str("parent-type", upd.parentType)
			pu.TimeWithKids = str("time-with-kids", upd.timeWithKids)
			if flags.Changed("age") {
				age, err := strconv.Atoi(upd.age)
				if err != nil || age < 0 {
					return &UsageError{Field: "--age", Reason: "must be a non-negative number"}
				}
				pu.Age = &age
			}
			if pu == (model.ProfileUpdate{}) {
				return &UsageError{Field: "flags", Reason: "nothing to update"}
			}

			u, err := app.API.UpdateProfile(cmd.Context(), pu)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Profile updated."))
			printUser(cmd.OutOrStdout(), u)
			return nil
		},
	}
	f := set.Flags()
	f.StringVar(&upd.name, "name", "", "display name")
	f.StringVar(&upd.age, "age", "", "age")
	f.StringVar(&upd.occupation, "occupation", "", "occupation")
	f.StringVar(&upd.tone, "tone", "", "preferred answer tone")
	f.StringVar(&upd.tech, "tech", "", "technology familiarity")
	f.StringVar(&upd.parentType, "parent-type", "", "parent type")
	f.StringVar(&upd.timeWithKids, "time-with-kids", "", "time spent with kids")
	cmd.AddCommand(set)
	return cmd
}

func printUser(w io.Writer, u model.User) {
	fmt.Fprintln(w, RenderLabel("Name", u.Name))
	fmt.Fprintln(w, RenderLabel("Email", u.Email))
	fmt.Fprintln(w, RenderLabel("ID", u.ID))
	if u.Age > 0 {
		fmt.Fprintln(w, RenderLabel("Age", strconv.Itoa(u.Age)))
	}
	for _, row := range [][2]string{
		{"Occupation", u.Occupation},
		{"Tone", u.TonePreference},
		{"Tech", u.TechFamiliarity},
		{"Parent type", u.ParentType},
		{"Time with kids", u.TimeWithKids},
	} {
		if row[1] != "" {
			fmt.Fprintln(w, RenderLabel(row[0], row[1]))
		}
	}
}
