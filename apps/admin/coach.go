package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/practrac/practrac/core"
	"github.com/practrac/practrac/core/coach"
)

func (cli *commandLine) addCoachCmd() *cobra.Command {
	var name, uname, email string
	var isAdmin bool

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a coach, or update the password and roles of an existing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd, err := cli.promptPassword("Enter password")
			if err != nil {
				return err
			}
			c, err := cli.addCoach(cmd.Context(), name, uname, email, pwd, isAdmin)
			if err != nil {
				return err
			}
			cli.printf("coach %q saved\n", c.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&uname, "username", "u", "", "The coach's username")
	cmd.Flags().StringVarP(&email, "email", "e", "", "The coach's email")
	cmd.Flags().StringVarP(&name, "name", "n", "", "The coach's name, defaults to the username")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "Grant all the roles")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// addCoach updates or creates a coach.Coach
func (cli *commandLine) addCoach(ctx context.Context, name, uname, email, pwd string, isAdmin bool) (coach.Coach, error) {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	if name = core.CleanString(name); name == "" {
		name = uname
	}
	roles := []string{coach.RoleCoachHead}
	if isAdmin {
		roles = coach.AllRoles
	}

	c, err := cli.coachSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil && !core.IsNotFound(err) {
		return coach.Coach{}, errors.Wrap(err, "finding coach")
	}
	if core.IsNotFound(err) {
		nc := coach.NewCoach{
			Name:            name,
			Username:        uname,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwd,
			Roles:           roles,
		}
		if err = nc.Validate(cli.validate, cli.coachSvc); err != nil {
			return coach.Coach{}, err
		}
		return cli.coachSvc.Create(ctx, nc)
	}

	active := true
	uc := coach.UpdateCoach{
		Email:           email,
		IsActive:        &active,
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if isAdmin {
		uc.Roles = roles
	}
	if err = uc.Validate(c, cli.validate, cli.coachSvc); err != nil {
		return coach.Coach{}, err
	}
	return cli.coachSvc.Update(ctx, c, uc)
}

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var uname string

	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a coach's password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd, err := cli.promptPassword("Enter password")
			if err != nil {
				return err
			}
			return cli.resetPassword(cmd.Context(), uname, pwd)
		},
	}
	cmd.Flags().StringVarP(&uname, "username", "u", "", "The coach's username or email. The password will be prompted next.")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (cli *commandLine) resetPassword(ctx context.Context, uname, pwd string) error {
	c, err := cli.coachSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	uc := coach.UpdateCoach{Password: pwd, PasswordConfirm: pwd}
	if err = uc.Validate(c, cli.validate, cli.coachSvc); err != nil {
		return err
	}
	if _, err = cli.coachSvc.Update(ctx, c, uc); err != nil {
		return err
	}
	cli.logger.Info("password reset", map[string]interface{}{"coach": c.Username})
	return nil
}
