package main

import (
	"fmt"

	"github.com/atinyakov/nexus/internal/models"
	"github.com/spf13/cobra"
)

func newLoginCmd(c *cli) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email == "" {
				if email, err = c.readLine("Email: "); err != nil {
					return err
				}
			}
			password, err := c.readPassword("Password: ")
			if err != nil {
				return err
			}

			sess, err := c.app.Auth.Login(cmd.Context(), models.Credentials{Email: email, Password: password})
			if err != nil {
				return userError(err, "login failed")
			}
			if sess.OwnerID == "" {
				fmt.Fprintln(c.out, "Logged in")
				return nil
			}
			fmt.Fprintf(c.out, "Logged in as %s\n", sess.OwnerID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.app.Auth.Logout()
			fmt.Fprintln(c.out, "Logged out")
			return nil
		},
	}
}

func newRegisterCmd(c *cli) *cobra.Command {
	var reg models.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if reg.Name == "" {
				if reg.Name, err = c.readLine("Name: "); err != nil {
					return err
				}
			}
			if reg.Email == "" {
				if reg.Email, err = c.readLine("Email: "); err != nil {
					return err
				}
			}
			if reg.Password, err = c.readPassword("Password: "); err != nil {
				return err
			}
			if reg.ConfirmPassword, err = c.readPassword("Confirm password: "); err != nil {
				return err
			}

			if err := c.app.Auth.Register(cmd.Context(), reg); err != nil {
				return userError(err, "an error occurred during registration")
			}
			fmt.Fprintln(c.out, "Registration successful, you can now log in")
			return nil
		},
	}
	cmd.Flags().StringVarP(&reg.Name, "name", "n", "", "display name")
	cmd.Flags().StringVarP(&reg.Email, "email", "e", "", "account email")
	return cmd
}
