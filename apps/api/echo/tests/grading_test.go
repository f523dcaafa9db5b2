package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/grading"
	"github.com/trezcool/darasa/core/user"
	testutil "github.com/trezcool/darasa/tests"
)

func Test_gradingApi_grades(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Admin", "admin@test.cd", "", user.RoleAdmin)
	enrolled := env.createUser(t, "Enrolled", "enrolled@test.cd", "2024001", user.RoleStudent)
	outsider := env.createUser(t, "Outsider", "outsider@test.cd", "2024002", user.RoleStudent)
	instructor := env.createUser(t, "Teacher", "teacher@test.cd", "", user.RoleInstructor)
	crs := testutil.CreateCourse(t, env.CourseRepo, "Go 101")
	testutil.CreateEnrollment(t, env.EnrollmentRepo, enrolled.ID, crs.ID, enrollment.StatusEnrolled)
	token := env.token(t, admin)
	path := "/api/courses/" + crs.ID + "/grades"

	env.run(t, []httpTest{
		{
			name:     "instructors cannot grade",
			method:   http.MethodPost,
			path:     path,
			token:    env.token(t, instructor),
			body:     marshallObj(t, map[string]interface{}{"user_id": enrolled.ID, "score": 50}),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "score required",
			method:   http.MethodPost,
			path:     path,
			token:    token,
			body:     marshallObj(t, map[string]interface{}{"user_id": enrolled.ID}),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"score": "this field is required"}),
		},
		{
			name:     "score out of range",
			method:   http.MethodPost,
			path:     path,
			token:    token,
			body:     marshallObj(t, map[string]interface{}{"user_id": enrolled.ID, "score": 101}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown source",
			method:   http.MethodPost,
			path:     path,
			token:    token,
			body:     marshallObj(t, map[string]interface{}{"user_id": enrolled.ID, "score": 50, "source": "GUESS"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "not a student",
			method:   http.MethodPost,
			path:     path,
			token:    token,
			body:     marshallObj(t, map[string]interface{}{"user_id": instructor.ID, "score": 50}),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "Invalid student"}),
		},
		{
			name:     "unknown student",
			method:   http.MethodPost,
			path:     path,
			token:    token,
			body:     marshallObj(t, map[string]interface{}{"user_id": "unknown", "score": 50}),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "Invalid student"}),
		},
		{
			name:     "not enrolled",
			method:   http.MethodPost,
			path:     path,
			token:    token,
			body:     marshallObj(t, map[string]interface{}{"user_id": outsider.ID, "score": 50}),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "Student not enrolled"}),
		},
	})

	rec := env.do(http.MethodPost, path, token, marshallObj(t, map[string]interface{}{"user_id": enrolled.ID, "score": 60}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var grade grading.Grade
	unmarshall(t, rec, &grade)
	assert.Equal(t, grading.GradeManual, grade.Source)

	// grading again overwrites the grade
	rec = env.do(http.MethodPost, path, token, marshallObj(t, map[string]interface{}{"user_id": enrolled.ID, "score": 80, "source": "OMR"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var regrade grading.Grade
	unmarshall(t, rec, &regrade)
	assert.Equal(t, grade.ID, regrade.ID)

	rec = env.do(http.MethodGet, "/api/my-grades", env.token(t, enrolled))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var grades []grading.MyGrade
	unmarshall(t, rec, &grades)
	require.Len(t, grades, 1)
	assert.Equal(t, grading.MyGrade{
		ID:          grade.ID,
		CourseID:    crs.ID,
		CourseTitle: "Go 101",
		Score:       80,
		Source:      grading.GradeOMR,
	}, grades[0])

	rec = env.do(http.MethodGet, "/api/my-grades", env.token(t, outsider))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/my-grades", token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func Test_gradingApi_examResults(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Admin", "admin@test.cd", "", user.RoleAdmin)
	student := env.createUser(t, "Student", "student@test.cd", "2024001", user.RoleStudent)
	crs := testutil.CreateCourse(t, env.CourseRepo, "Go 101")
	testutil.CreateEnrollment(t, env.EnrollmentRepo, student.ID, crs.ID, enrollment.StatusEnrolled)
	token := env.token(t, admin)
	studentToken := env.token(t, student)
	path := "/api/courses/" + crs.ID + "/exam-results"

	env.run(t, []httpTest{
		{
			name:     "no result yet",
			method:   http.MethodGet,
			path:     path + "/me",
			token:    studentToken,
			wantCode: http.StatusOK,
			wantData: []byte(`{"id": null, "calculated_score": null}`),
		},
		{
			name:     "empty list",
			method:   http.MethodGet,
			path:     path,
			token:    token,
			wantCode: http.StatusOK,
			wantData: []byte(`[]`),
		},
		{
			name:     "user required",
			method:   http.MethodPost,
			path:     path,
			token:    token,
			body:     []byte(`{"calculated_score": 50}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "students cannot record",
			method:   http.MethodPost,
			path:     path,
			token:    studentToken,
			body:     marshallObj(t, map[string]interface{}{"user_id": student.ID, "calculated_score": 50}),
			wantCode: http.StatusForbidden,
		},
	})

	rec := env.do(http.MethodPost, path, token, marshallObj(t, map[string]interface{}{
		"user_id":          student.ID,
		"calculated_score": 72.5,
		"raw_data":         map[string]int{"correct": 29},
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res grading.ExamResult
	unmarshall(t, rec, &res)
	assert.Equal(t, grading.ResultManual, res.Source)

	// partial update keeps the score
	rec = env.do(http.MethodPost, path, token, marshallObj(t, map[string]interface{}{
		"user_id":  student.ID,
		"raw_data": map[string]int{"correct": 30},
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var updated grading.ExamResult
	unmarshall(t, rec, &updated)
	assert.Equal(t, res.ID, updated.ID)
	require.NotNil(t, updated.CalculatedScore)
	assert.Equal(t, 72.5, *updated.CalculatedScore)
	assert.JSONEq(t, `{"correct": 30}`, string(updated.RawData))

	rec = env.do(http.MethodGet, path+"/me", studentToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine grading.MyResult
	unmarshall(t, rec, &mine)
	require.NotNil(t, mine.ID)
	assert.Equal(t, res.ID, *mine.ID)

	rec = env.do(http.MethodGet, path, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var results []grading.CourseResult
	unmarshall(t, rec, &results)
	require.Len(t, results, 1)
	assert.Equal(t, student.ID, results[0].User.ID)
	require.NotNil(t, results[0].User.StudentNumber)
	assert.Equal(t, "2024001", *results[0].User.StudentNumber)
}

func Test_gradingApi_metrics(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Admin", "admin@test.cd", "", user.RoleAdmin)
	first := env.createUser(t, "First", "first@test.cd", "2024001", user.RoleStudent)
	second := env.createUser(t, "Second", "second@test.cd", "2024002", user.RoleStudent)
	env.createUser(t, "Third", "third@test.cd", "2024003", user.RoleStudent)
	c1 := testutil.CreateCourse(t, env.CourseRepo, "Go 101")
	c2 := testutil.CreateCourse(t, env.CourseRepo, "Go 201")
	testutil.CreateEnrollment(t, env.EnrollmentRepo, first.ID, c1.ID, enrollment.StatusEnrolled)
	testutil.CreateEnrollment(t, env.EnrollmentRepo, first.ID, c2.ID, enrollment.StatusEnrolled)
	testutil.CreateEnrollment(t, env.EnrollmentRepo, second.ID, c1.ID, enrollment.StatusPending)
	token := env.token(t, admin)

	env.run(t, []httpTest{
		{
			name:     "students cannot see metrics",
			method:   http.MethodGet,
			path:     "/api/admin/metrics",
			token:    env.token(t, first),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "no grades",
			method:   http.MethodGet,
			path:     "/api/admin/metrics",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, grading.Metrics{TotalCourses: 2, TotalStudents: 3, TotalEnrolledStudents: 1}),
		},
	})

	for courseID, score := range map[string]float64{c1.ID: 40, c2.ID: 90} {
		rec := env.do(http.MethodPost, "/api/courses/"+courseID+"/grades", token,
			marshallObj(t, map[string]interface{}{"user_id": first.ID, "score": score}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	avg := 65.0
	env.run(t, []httpTest{
		{
			name:     "average grade",
			method:   http.MethodGet,
			path:     "/api/admin/metrics",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, grading.Metrics{TotalCourses: 2, TotalStudents: 3, TotalEnrolledStudents: 1, AverageGrade: &avg}),
		},
	})
}
