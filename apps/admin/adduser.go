package main

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var (
	errInvalidRole           = errors.New("role must be one of ADMIN, INSTRUCTOR, STUDENT")
	errStudentNumberRequired = errors.New("student number is required for students")
)

type newUserFlags struct {
	email         string
	firstName     string
	lastName      string
	role          string
	studentNumber string
}

func (cli *commandLine) addUserCmd() *cobra.Command {
	var flags newUserFlags
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user, or update the user with the same email. The password is prompted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd, err := cli.promptPassword(cmd)
			if err != nil {
				return err
			}
			usr, created, err := cli.addUser(flags, pwd)
			if err != nil {
				return err
			}
			verb := "updated"
			if created {
				verb = "created"
			}
			cli.printf("%s %s user %s\n", verb, usr.Role, usr.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.email, "email", "", "The user's email")
	cmd.Flags().StringVar(&flags.firstName, "first-name", "", "The user's first name")
	cmd.Flags().StringVar(&flags.lastName, "last-name", "", "The user's last name")
	cmd.Flags().StringVar(&flags.role, "role", user.RoleAdmin, "ADMIN, INSTRUCTOR or STUDENT")
	cmd.Flags().StringVar(&flags.studentNumber, "student-number", "", "Required for students")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// addUser updates or creates a user.User; reports whether the user was created.
func (cli *commandLine) addUser(flags newUserFlags, pwd string) (user.User, bool, error) {
	ctx := context.Background()
	email := core.CleanString(flags.email, true /* lower */)
	role := strings.ToUpper(core.CleanString(flags.role))
	sn := core.CleanString(flags.studentNumber)

	if !user.IsValidRole(role) {
		return user.User{}, false, errInvalidRole
	}
	if role != user.RoleStudent {
		sn = ""
	} else if sn == "" {
		return user.User{}, false, errStudentNumberRequired
	}

	now := time.Now().UTC()
	created := false
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	switch {
	case errors.Cause(err) == user.ErrNotFound:
		created = true
		usr = user.User{Email: email, CreatedAt: now}
	case err != nil:
		return user.User{}, false, err
	}

	var excluded []user.User
	if !created {
		excluded = []user.User{usr}
	}
	if err = cli.usrRepo.CheckUniqueness(ctx, email, sn, excluded); err != nil {
		return user.User{}, false, err
	}

	if name := core.CleanString(flags.firstName); name != "" {
		usr.FirstName = name
	}
	if name := core.CleanString(flags.lastName); name != "" {
		usr.LastName = name
	}
	usr.Role = role
	usr.StudentNumber = sn
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return user.User{}, false, errors.Wrap(err, "hashing password")
	}

	if created {
		usr, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		usr, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	if err != nil {
		return user.User{}, false, errors.Wrap(err, "saving user")
	}
	return usr, created, nil
}
