package main

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/trezcool/darasa/core/user"
)

const firstStudentNumber = 2024001

var (
	seedFirstNames = []string{"Ahmet", "Mehmet", "Ayse", "Fatma", "Emre", "Elif", "Kerem", "Zeynep", "Mert", "Seda", "Burak", "Ceren"}
	seedLastNames  = []string{"Yilmaz", "Kaya", "Demir", "Sahin", "Celik", "Yildiz", "Aydin", "Arslan", "Gunes", "Koc", "Ozdemir", "Polat"}
)

func (cli *commandLine) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Fill in missing user names and student numbers",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := cli.seed()
			if err != nil {
				return err
			}
			cli.printf("%d user(s) updated\n", n)
			return nil
		},
	}
}

// seed fills missing names, numbers students without a student number from 2024001
// and drops the student number of other roles. Returns the number of updated users.
func (cli *commandLine) seed() (int, error) {
	ctx := context.Background()
	users, err := cli.usrRepo.QueryUsers(ctx, nil, nil)
	if err != nil {
		return 0, err
	}

	used := make(map[string]bool)
	for _, usr := range users {
		if usr.StudentNumber != "" {
			used[usr.StudentNumber] = true
		}
	}
	next := firstStudentNumber
	nextNumber := func() string {
		for used[strconv.Itoa(next)] {
			next++
		}
		sn := strconv.Itoa(next)
		used[sn] = true
		next++
		return sn
	}

	updated := 0
	for i, usr := range users {
		var changes []string
		if usr.FirstName == "" {
			usr.FirstName = seedFirstNames[i%len(seedFirstNames)]
			changes = append(changes, "first_name")
		}
		if usr.LastName == "" {
			usr.LastName = seedLastNames[i%len(seedLastNames)]
			changes = append(changes, "last_name")
		}
		switch {
		case usr.Role == user.RoleStudent && usr.StudentNumber == "":
			usr.StudentNumber = nextNumber()
			changes = append(changes, "student_number")
		case usr.Role != user.RoleStudent && usr.StudentNumber != "":
			usr.StudentNumber = ""
			changes = append(changes, "student_number")
		}
		if len(changes) == 0 {
			continue
		}

		usr.UpdatedAt = time.Now().UTC()
		if _, err = cli.usrRepo.UpdateUser(ctx, usr); err != nil {
			return updated, err
		}
		updated++
		cli.printf("%s: %s\n", usr.Email, strings.Join(changes, ", "))
	}
	return updated, nil
}
