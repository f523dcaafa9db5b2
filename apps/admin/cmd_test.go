package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/user"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	testutil "github.com/trezcool/darasa/tests"
)

var usrRepo user.Repository

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()
	usrRepo = inmemdb.NewUserRepository(inmemdb.Open())

	out := new(bytes.Buffer)
	return &commandLine{usrRepo: usrRepo, out: out}, out
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func checkErr(t *testing.T, err error, tt cliTest) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		if errors.Cause(err) != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err == nil || !strings.Contains(err.Error(), tt.wantErrStr) {
			t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
		}
	case err != nil:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_root(t *testing.T) {
	cli, out := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol"`},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, cli.run(args), tt)
		})
	}
	if !strings.Contains(out.String(), "migrate") {
		t.Errorf("usage does not list commands: %s", out.String())
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	var ran []string
	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		ran = append(ran, strings.TrimSpace(command+" "+strings.Join(args, " ")))
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, cli.run(args), tt)
		})
	}

	want := []string{"up", "up-to 2", "down-to 1", "status", "create course sql"}
	if strings.Join(ran, "|") != strings.Join(want, "|") {
		t.Errorf("goose ran %v, want %v", ran, want)
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, out := setup(t)
	testutil.CreateUser(t, usrRepo, "Taken", "Number", "taken@test.cd", "2024100", "pwd", user.RoleStudent, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no email", args: []string{"adduser"}, extra: extra{pwd: "pwd"}, wantErrStr: `required flag(s) "email" not set`},
		{name: "no password", args: []string{"adduser", "--email", "admin@test.cd"}, wantErr: errHelp},
		{name: "invalid role", args: []string{"adduser", "--email", "admin@test.cd", "--role", "god"}, extra: extra{pwd: "pwd"}, wantErr: errInvalidRole},
		{name: "student without number", args: []string{"adduser", "--email", "s@test.cd", "--role", "student"}, extra: extra{pwd: "pwd"}, wantErr: errStudentNumberRequired},
		{
			name:    "student number taken",
			args:    []string{"adduser", "--email", "s@test.cd", "--role", "STUDENT", "--student-number", "2024100"},
			extra:   extra{pwd: "pwd"},
			wantErr: user.ErrStudentNumberExists,
		},
		{
			name:  "create admin",
			args:  []string{"adduser", "--email", " Admin@Test.cd ", "--first-name", "Ada", "--last-name", "Admin", "--student-number", "1"},
			extra: extra{pwd: "first"},
		},
		{
			name:  "update admin",
			args:  []string{"adduser", "--email", "admin@test.cd", "--role", "instructor"},
			extra: extra{pwd: "second"},
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd := ""
		if extra, ok := tt.extra.(extra); ok {
			pwd = extra.pwd
		}
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, cli.run(args), tt)
		})
	}

	usr, err := usrRepo.GetUser(context.Background(), user.GetFilter{Email: "admin@test.cd"})
	if err != nil {
		t.Fatalf("GetUser() failed, %v", err)
	}
	if usr.Role != user.RoleInstructor || usr.FirstName != "Ada" || usr.StudentNumber != "" || !usr.IsActive {
		t.Errorf("unexpected user %+v", usr)
	}
	if err = usr.CheckPassword("second"); err != nil {
		t.Errorf("password was not updated: %v", err)
	}
	if !strings.Contains(out.String(), "created ADMIN user admin@test.cd") ||
		!strings.Contains(out.String(), "updated INSTRUCTOR user admin@test.cd") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "Awe", "awe@test.cd", "2024001", "mdr", user.RoleStudent, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErrStr: `required flag(s) "email" not set`},
		{name: "email but no password", args: []string{"resetpassword", "--email", "awe@test.cd"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "--email", "lol@test.cd"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "--email", "AWE@test.cd"}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd := ""
		if extra, ok := tt.extra.(extra); ok {
			pwd = extra.pwd
		}
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			checkErr(t, err, tt)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				if err != nil {
					t.Fatalf("GetUser() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
				if err = refreshedUsr.CheckPassword("lmao"); err != nil {
					t.Errorf("CheckPassword() error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_seed(t *testing.T) {
	cli, out := setup(t)

	ctx := context.Background()
	complete := testutil.CreateUser(t, usrRepo, "Done", "Student", "done@test.cd", "2024001", "", user.RoleStudent, true)
	nameless := testutil.CreateUser(t, usrRepo, "", "", "nameless@test.cd", "", "", user.RoleStudent, true)
	numbered := testutil.CreateUser(t, usrRepo, "Ins", "Tructor", "ins@test.cd", "777", "", user.RoleInstructor, true)
	student := testutil.CreateUser(t, usrRepo, "New", "Student", "new@test.cd", "", "", user.RoleStudent, true)

	if err := cli.run([]string{"admin", "seed"}); err != nil {
		t.Fatalf("cli.run() error = %v", err)
	}

	get := func(id string) user.User {
		usr, err := usrRepo.GetUser(ctx, user.GetFilter{ID: id})
		if err != nil {
			t.Fatalf("GetUser() failed, %v", err)
		}
		return usr
	}
	if got := get(complete.ID); !got.UpdatedAt.Equal(complete.UpdatedAt) {
		t.Error("complete user should be left as is")
	}
	if got := get(nameless.ID); got.FirstName == "" || got.LastName == "" || got.StudentNumber != "2024002" {
		t.Errorf("nameless user not seeded: %+v", got)
	}
	if got := get(numbered.ID); got.StudentNumber != "" {
		t.Errorf("instructor kept student number %q", got.StudentNumber)
	}
	if got := get(student.ID); got.StudentNumber != "2024003" {
		t.Errorf("student number = %q, want 2024003", got.StudentNumber)
	}
	if !strings.Contains(out.String(), "3 user(s) updated") ||
		!strings.Contains(out.String(), "nameless@test.cd: first_name, last_name, student_number") {
		t.Errorf("unexpected output: %s", out.String())
	}

	out.Reset()
	if err := cli.run([]string{"admin", "seed"}); err != nil {
		t.Fatalf("cli.run() error = %v", err)
	}
	if !strings.Contains(out.String(), "0 user(s) updated") {
		t.Errorf("second seed should be a no-op: %s", out.String())
	}
}
