package main

import (
	"errors"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/flemzord/mcplab/pkg/app"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// passwordEnv supplies the password for non-interactive use.
const passwordEnv = "MCPLAB_PASSWORD"

// credentialFlags binds --username and --password.
type credentialFlags struct {
	username string
	password string
}

func (f *credentialFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.username, "username", "u", "", "Identity provider username (omit for anonymous)")
	cmd.Flags().StringVar(&f.password, "password", "", "Password (default $"+passwordEnv+", else prompted)")
}

func (f *credentialFlags) registerPersistent(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&f.username, "username", "u", "", "Identity provider username (omit for anonymous)")
	cmd.PersistentFlags().StringVar(&f.password, "password", "", "Password (default $"+passwordEnv+", else prompted)")
}

// resolve returns the credentials, prompting for a missing password when
// a username was given and stdin is a terminal.
func (f *credentialFlags) resolve() (app.Credentials, error) {
	creds := app.Credentials{Username: f.username, Password: f.password}
	if creds.Empty() || creds.Password != "" {
		return creds, nil
	}
	if pw := os.Getenv(passwordEnv); pw != "" {
		creds.Password = pw
		return creds, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return creds, errors.New("no terminal available for the password prompt (use --password or $" + passwordEnv + ")")
	}

	err := huh.NewInput().
		Title("Password for " + creds.Username).
		EchoMode(huh.EchoModePassword).
		Validate(func(s string) error {
			if s == "" {
				return errors.New("password is required")
			}
			return nil
		}).
		Value(&creds.Password).
		Run()
	if err != nil {
		return creds, err
	}
	return creds, nil
}
