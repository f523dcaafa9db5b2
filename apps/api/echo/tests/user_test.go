package tests

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	testutil "github.com/trezcool/darasa/tests"
)

func Test_userApi_register(t *testing.T) {
	env := setup(t)
	env.createUser(t, "Taken", "taken@test.cd", "2024001", user.RoleStudent)

	body := func(email, pwd, sn string) []byte {
		return marshallObj(t, map[string]string{
			"email":          email,
			"password":       pwd,
			"first_name":     "Jane",
			"last_name":      "Doe",
			"student_number": sn,
		})
	}

	env.run(t, []httpTest{
		{
			name:     "weak password",
			method:   http.MethodPost,
			path:     "/api/auth/register",
			body:     body("jane@test.cd", "abc", "2024100"),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing student number",
			method:   http.MethodPost,
			path:     "/api/auth/register",
			body:     body("jane@test.cd", strongPwd, ""),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "email exists",
			method:   http.MethodPost,
			path:     "/api/auth/register",
			body:     body("TAKEN@test.cd", strongPwd, "2024100"),
			wantCode: http.StatusConflict,
			wantData: marshallObj(t, httpErr{Error: "Email already exists"}),
		},
		{
			name:     "student number exists",
			method:   http.MethodPost,
			path:     "/api/auth/register",
			body:     body("jane@test.cd", strongPwd, "2024001"),
			wantCode: http.StatusConflict,
			wantData: marshallObj(t, httpErr{Error: "Student number already exists"}),
		},
		{
			name:     "success",
			method:   http.MethodPost,
			path:     "/api/auth/register",
			body:     body(" Jane@Test.cd ", strongPwd, "2024100"),
			wantCode: http.StatusCreated,
			wantData: marshallObj(t, echoapi.OKResponse{OK: true}),
		},
	})

	usr, err := env.UserSvc.GetByEmail(testContext(), "jane@test.cd")
	require.NoError(t, err)
	assert.Equal(t, user.RoleStudent, usr.Role)
	assert.Equal(t, "2024100", usr.StudentNumber)
	assert.True(t, usr.IsActive)
}

func Test_userApi_login(t *testing.T) {
	env := setup(t)
	usr := env.createUser(t, "Active", "active@test.cd", "2024001", user.RoleStudent)
	testutil.CreateUser(t, env.UserRepo, "Gone", "Test", "gone@test.cd", "", strongPwd, user.RoleInstructor, false)

	login := func(email, pwd string) []byte {
		return marshallObj(t, echoapi.LoginRequest{Email: email, Password: pwd})
	}

	env.run(t, []httpTest{
		{
			name:     "unknown email",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     login("nobody@test.cd", strongPwd),
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, httpErr{Error: "Invalid credentials"}),
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     login("active@test.cd", "wrong-password"),
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, httpErr{Error: "Invalid credentials"}),
		},
		{
			name:     "deactivated",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     login("gone@test.cd", strongPwd),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "account deactivated"}),
		},
	})

	rec := env.do(http.MethodPost, "/api/auth/login", "", login(" ACTIVE@test.cd", strongPwd))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp echoapi.LoginResponse
	unmarshall(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, echoapi.PublicUser{
		ID:            usr.ID,
		Email:         "active@test.cd",
		FirstName:     "Active",
		LastName:      "Test",
		StudentNumber: "2024001",
		Role:          user.RoleStudent,
	}, resp.User)

	// the token authenticates the user
	rec = env.do(http.MethodGet, "/api/me", resp.Token)
	assert.Equal(t, http.StatusOK, rec.Code)

	got, err := env.UserSvc.GetByID(testContext(), usr.ID)
	require.NoError(t, err)
	assert.False(t, got.LastLogin.IsZero(), "last login is set")
}

func Test_userApi_me(t *testing.T) {
	env := setup(t)
	student := env.createUser(t, "Student", "student@test.cd", "2024001", user.RoleStudent)
	instructor := env.createUser(t, "Teacher", "teacher@test.cd", "", user.RoleInstructor)
	studentToken := env.token(t, student)

	env.run(t, []httpTest{
		{
			name:     "no token",
			method:   http.MethodGet,
			path:     "/api/me",
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, errMissingToken),
		},
		{
			name:     "me",
			method:   http.MethodGet,
			path:     "/api/me",
			token:    studentToken,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, map[string]string{
				"id":             student.ID,
				"email":          student.Email,
				"first_name":     "Student",
				"last_name":      "Test",
				"student_number": "2024001",
				"role":           user.RoleStudent,
			}),
		},
		{
			name:     "update profile",
			method:   http.MethodPatch,
			path:     "/api/me",
			token:    studentToken,
			body:     []byte(`{"first_name": " Joe ", "last_name": "Bloggs", "student_number": "2024002"}`),
			wantCode: http.StatusOK,
			wantData: marshallObj(t, map[string]string{
				"id":             student.ID,
				"email":          student.Email,
				"first_name":     "Joe",
				"last_name":      "Bloggs",
				"student_number": "2024002",
				"role":           user.RoleStudent,
			}),
		},
		{
			name:     "student number is dropped for non students",
			method:   http.MethodPatch,
			path:     "/api/me",
			token:    env.token(t, instructor),
			body:     []byte(`{"first_name": "Ann", "last_name": "Teach", "student_number": "999"}`),
			wantCode: http.StatusOK,
			wantData: marshallObj(t, map[string]string{
				"id":         instructor.ID,
				"email":      instructor.Email,
				"first_name": "Ann",
				"last_name":  "Teach",
				"role":       user.RoleInstructor,
			}),
		},
		{
			name:     "names are required",
			method:   http.MethodPatch,
			path:     "/api/me",
			token:    studentToken,
			body:     []byte(`{"first_name": "", "last_name": "Bloggs"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"first_name": "this field is required"}),
		},
	})
}

func Test_userApi_tokenRefresh(t *testing.T) {
	env := setup(t)
	usr := env.createUser(t, "Student", "student@test.cd", "2024001", user.RoleStudent)
	token := env.token(t, usr)

	rec := env.do(http.MethodPost, "/api/auth/token-refresh", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp echoapi.TokenResponse
	unmarshall(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)

	// deactivated users cannot refresh
	isActive := false
	_, err := env.UserSvc.Update(testContext(), usr, user.UpdateUser{
		Email:     usr.Email,
		FirstName: usr.FirstName,
		LastName:  usr.LastName,
		Role:      usr.Role,
		IsActive:  &isActive,
	})
	require.NoError(t, err)
	rec = env.do(http.MethodPost, "/api/auth/token-refresh", token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPost, "/api/auth/token-refresh", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_userApi_passwordReset(t *testing.T) {
	env := setup(t)
	usr := env.createUser(t, "Student", "student@test.cd", "2024001", user.RoleStudent)
	sent := marshallObj(t, echoapi.SuccessResponse{Success: "If the email address supplied is associated with an active " +
		"account on this system, an email will arrive in your inbox shortly with instructions to reset your password."})

	env.run(t, []httpTest{
		{
			name:     "unknown email",
			method:   http.MethodPost,
			path:     "/api/auth/password-reset",
			body:     []byte(`{"email": "nobody@test.cd"}`),
			wantCode: http.StatusOK,
			wantData: sent,
		},
		{
			name:     "invalid email",
			method:   http.MethodPost,
			path:     "/api/auth/password-reset",
			body:     []byte(`{"email": "nobody"}`),
			wantCode: http.StatusBadRequest,
		},
	})
	assert.Empty(t, emailsvc.Sent())

	rec := env.do(http.MethodPost, "/api/auth/password-reset", "", []byte(`{"email": "Student@test.cd"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	msgs := emailsvc.Sent()
	require.Len(t, msgs, 1)
	assert.Equal(t, usr.Email, msgs[0].To[0].Address)
	data, ok := msgs[0].TemplateData.(map[string]string)
	require.True(t, ok)

	confirm := func(uid, token string) []byte {
		return marshallObj(t, user.ResetUserPassword{
			UID:             uid,
			Token:           token,
			Password:        "n3w-S3cret-pass",
			PasswordConfirm: "n3w-S3cret-pass",
		})
	}
	env.run(t, []httpTest{
		{
			name:     "bad token",
			method:   http.MethodPost,
			path:     "/api/auth/password-reset-confirm",
			body:     confirm(data["UID"], "1-abc"),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "invalid or expired password reset link"}),
		},
		{
			name:     "success",
			method:   http.MethodPost,
			path:     "/api/auth/password-reset-confirm",
			body:     confirm(data["UID"], data["Token"]),
			wantCode: http.StatusOK,
			wantData: marshallObj(t, echoapi.SuccessResponse{Success: "Password has been reset with the new password."}),
		},
		{
			name:     "token is single use",
			method:   http.MethodPost,
			path:     "/api/auth/password-reset-confirm",
			body:     confirm(data["UID"], data["Token"]),
			wantCode: http.StatusBadRequest,
		},
	})

	rec = env.do(http.MethodPost, "/api/auth/login", "", marshallObj(t, echoapi.LoginRequest{Email: usr.Email, Password: "n3w-S3cret-pass"}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_userApi_users(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Admin", "admin@test.cd", "", user.RoleAdmin)
	instructor := env.createUser(t, "Teacher", "teacher@test.cd", "", user.RoleInstructor)
	student := env.createUser(t, "Student", "student@test.cd", "2024001", user.RoleStudent)
	other := env.createUser(t, "Other", "other@test.cd", "2024002", user.RoleStudent)
	adminToken := env.token(t, admin)
	studentToken := env.token(t, student)

	env.run(t, []httpTest{
		{
			name:     "no token",
			method:   http.MethodGet,
			path:     "/api/users",
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, errMissingToken),
		},
		{
			name:     "not admin",
			method:   http.MethodGet,
			path:     "/api/users",
			token:    studentToken,
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, errForbidden),
		},
		{
			name:     "roles",
			method:   http.MethodGet,
			path:     "/api/users/roles",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, user.Roles),
		},
		{
			name:     "self detail",
			method:   http.MethodGet,
			path:     "/api/users/" + student.ID,
			token:    studentToken,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, student),
		},
		{
			name:     "other detail",
			method:   http.MethodGet,
			path:     "/api/users/" + other.ID,
			token:    studentToken,
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "not found"}),
		},
		{
			name:     "unknown user",
			method:   http.MethodGet,
			path:     "/api/users/unknown",
			token:    adminToken,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "student cannot change own role",
			method:   http.MethodPut,
			path:     "/api/users/" + student.ID,
			token:    studentToken,
			body:     []byte(`{"role": "ADMIN"}`),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, errForbidden),
		},
		{
			name:     "admin cannot delete self",
			method:   http.MethodDelete,
			path:     "/api/users/" + admin.ID,
			token:    adminToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "admin cannot delete self in bulk",
			method:   http.MethodDelete,
			path:     fmt.Sprintf("/api/users?id=%s&id=%s", other.ID, admin.ID),
			token:    adminToken,
			wantCode: http.StatusForbidden,
		},
	})

	queryIDs := func(path string) []string {
		rec := env.do(http.MethodGet, path, adminToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var users []user.User
		unmarshall(t, rec, &users)
		ids := make([]string, 0, len(users))
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		return ids
	}
	assert.ElementsMatch(t, []string{admin.ID, instructor.ID, student.ID, other.ID}, queryIDs("/api/users"))
	assert.ElementsMatch(t, []string{student.ID, other.ID}, queryIDs("/api/users?role=student"))
	assert.ElementsMatch(t, []string{other.ID}, queryIDs("/api/users?search=OTHER"))
	assert.Equal(t, []string{other.ID, student.ID}, queryIDs("/api/users?role=STUDENT&ordering=-student_number"))

	// admin creates an instructor
	rec := env.do(http.MethodPost, "/api/users", adminToken, marshallObj(t, user.NewUser{
		Email:           "new@test.cd",
		FirstName:       "New",
		LastName:        "Teacher",
		Role:            user.RoleInstructor,
		Password:        strongPwd,
		PasswordConfirm: strongPwd,
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// admin deactivates a student
	rec = env.do(http.MethodPut, "/api/users/"+other.ID, adminToken, []byte(`{"is_active": false}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated user.User
	unmarshall(t, rec, &updated)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "2024002", updated.StudentNumber)

	rec = env.do(http.MethodDelete, "/api/users/"+other.ID, adminToken)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, err := env.UserSvc.GetByID(testContext(), other.ID)
	assert.Equal(t, user.ErrNotFound, err)
}
