package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	testutil "github.com/trezcool/darasa/tests"
)

func Test_enrollmentApi_request(t *testing.T) {
	env := setup(t)
	student := env.createUser(t, "Student", "student@test.cd", "2024001", user.RoleStudent)
	admin := env.createUser(t, "Admin", "admin@test.cd", "", user.RoleAdmin)
	token := env.token(t, student)

	basics := testutil.CreateCourse(t, env.CourseRepo, "Go 101")
	advanced := testutil.CreateCourse(t, env.CourseRepo, "Go 201", basics.ID)
	future := time.Now().Add(48 * time.Hour).UTC()
	upcoming, err := env.CourseRepo.CreateCourse(testContext(), course.Course{
		Title:         "Go 301",
		AvailableFrom: &future,
		CreatedAt:     time.Now().UTC(),
	})
	require.NoError(t, err)

	env.run(t, []httpTest{
		{
			name:     "state before request",
			method:   http.MethodGet,
			path:     "/api/courses/" + basics.ID + "/enroll",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, enrollment.State{Status: enrollment.StatusNotEnrolled}),
		},
		{
			name:     "admins do not enroll",
			method:   http.MethodPost,
			path:     "/api/courses/" + basics.ID + "/enroll",
			token:    env.token(t, admin),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, errForbidden),
		},
		{
			name:     "unknown course",
			method:   http.MethodPost,
			path:     "/api/courses/unknown/enroll",
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "Course not found"}),
		},
		{
			name:     "not yet available",
			method:   http.MethodPost,
			path:     "/api/courses/" + upcoming.ID + "/enroll",
			token:    token,
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "Course not yet available"}),
		},
		{
			name:     "prerequisite not completed",
			method:   http.MethodPost,
			path:     "/api/courses/" + advanced.ID + "/enroll",
			token:    token,
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "Prerequisite course must be completed first"}),
		},
	})

	rec := env.do(http.MethodPost, "/api/courses/"+basics.ID+"/enroll", token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var state enrollment.State
	unmarshall(t, rec, &state)
	require.NotNil(t, state.ID)
	assert.Equal(t, enrollment.StatusPending, state.Status)
	assert.Nil(t, state.Warning)

	rec = env.do(http.MethodPost, "/api/courses/"+basics.ID+"/enroll", token)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Already requested")

	// rejected students may ask again
	_, err = env.EnrollmentSvc.Reject(testContext(), *state.ID)
	require.NoError(t, err)
	rec = env.do(http.MethodPost, "/api/courses/"+basics.ID+"/enroll", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var again enrollment.State
	unmarshall(t, rec, &again)
	assert.Equal(t, *state.ID, *again.ID)
	assert.Equal(t, enrollment.StatusPending, again.Status)

	// once enrolled in the prerequisite, the advanced course opens with a warning
	_, err = env.EnrollmentSvc.Approve(testContext(), *state.ID)
	require.NoError(t, err)
	rec = env.do(http.MethodPost, "/api/courses/"+advanced.ID+"/enroll", token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var advState enrollment.State
	unmarshall(t, rec, &advState)
	assert.NotNil(t, advState.Warning)

	rec = env.do(http.MethodGet, "/api/courses/"+basics.ID+"/enroll", token)
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshall(t, rec, &state)
	assert.Equal(t, enrollment.StatusEnrolled, state.Status)
}

func Test_enrollmentApi_decide(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Admin", "admin@test.cd", "", user.RoleAdmin)
	first := env.createUser(t, "First", "first@test.cd", "2024001", user.RoleStudent)
	second := env.createUser(t, "Second", "second@test.cd", "2024002", user.RoleStudent)
	crs := testutil.CreateCourse(t, env.CourseRepo, "Go 101")
	e1 := testutil.CreateEnrollment(t, env.EnrollmentRepo, first.ID, crs.ID, enrollment.StatusPending)
	e2 := testutil.CreateEnrollment(t, env.EnrollmentRepo, second.ID, crs.ID, enrollment.StatusPending)
	token := env.token(t, admin)

	env.run(t, []httpTest{
		{
			name:     "students cannot approve",
			method:   http.MethodPatch,
			path:     "/api/enrollments/" + e1.ID + "/approve",
			token:    env.token(t, first),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "unknown enrollment",
			method:   http.MethodPatch,
			path:     "/api/enrollments/unknown/approve",
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "Enrollment not found"}),
		},
		{
			name:     "approve",
			method:   http.MethodPatch,
			path:     "/api/enrollments/" + e1.ID + "/approve",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, echoapi.EnrollmentResponse{ID: e1.ID, Status: enrollment.StatusEnrolled}),
		},
		{
			name:     "reject",
			method:   http.MethodPatch,
			path:     "/api/enrollments/" + e2.ID + "/reject",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, echoapi.EnrollmentResponse{ID: e2.ID, Status: enrollment.StatusRejected}),
		},
		{
			name:     "invalid status filter",
			method:   http.MethodGet,
			path:     "/api/courses/" + crs.ID + "/students?status=unknown",
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "Invalid status"}),
		},
	})

	msgs := emailsvc.Sent()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Enrollment approved", msgs[0].Subject)
	assert.Equal(t, first.Email, msgs[0].To[0].Address)
	assert.Equal(t, "Enrollment rejected", msgs[1].Subject)

	listIDs := func(path string) []string {
		rec := env.do(http.MethodGet, path, token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var students []enrollment.Student
		unmarshall(t, rec, &students)
		ids := make([]string, 0, len(students))
		for _, s := range students {
			ids = append(ids, s.UserID)
		}
		return ids
	}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, listIDs("/api/courses/"+crs.ID+"/students"))
	assert.Equal(t, []string{first.ID}, listIDs("/api/courses/"+crs.ID+"/students?status=enrolled"))
	assert.Equal(t, []string{second.ID}, listIDs("/api/courses/"+crs.ID+"/students?status=REJECTED"))
	assert.Empty(t, listIDs("/api/courses/"+crs.ID+"/students?status=pending"))
}
