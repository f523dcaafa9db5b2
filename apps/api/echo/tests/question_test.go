package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/grading"
	"github.com/trezcool/darasa/core/question"
	"github.com/trezcool/darasa/core/user"
	testutil "github.com/trezcool/darasa/tests"
)

func Test_questionApi(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Admin", "admin@test.cd", "", user.RoleAdmin)
	student := env.createUser(t, "Student", "student@test.cd", "2024001", user.RoleStudent)
	crs := testutil.CreateCourse(t, env.CourseRepo, "Go 101")
	other := testutil.CreateCourse(t, env.CourseRepo, "Go 201")
	foreignModule, err := env.CourseSvc.CreateModule(testContext(), other.ID, course.NewModule{Title: "Elsewhere"})
	require.NoError(t, err)
	token := env.token(t, admin)
	studentToken := env.token(t, student)
	path := "/api/courses/" + crs.ID + "/questions"

	newQuestion := func(text string, answer int) []byte {
		return marshallObj(t, map[string]interface{}{
			"text":    text,
			"options": []string{"a", "b", "c"},
			"answer":  answer,
			"source":  question.SourceManual,
		})
	}

	env.run(t, []httpTest{
		{
			name:     "students cannot add questions",
			method:   http.MethodPost,
			path:     path,
			token:    studentToken,
			body:     newQuestion("What?", 0),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "answer out of range",
			method:   http.MethodPost,
			path:     path,
			token:    token,
			body:     newQuestion("What?", 3),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"answer": "answer is out of range"}),
		},
		{
			name:     "one option",
			method:   http.MethodPost,
			path:     path,
			token:    token,
			body:     []byte(`{"text": "What?", "options": ["a"], "answer": 0, "source": "MANUAL"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "blank text",
			method:   http.MethodPost,
			path:     path,
			token:    token,
			body:     newQuestion("  ", 0),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"text": "this field may not be blank"}),
		},
		{
			name:     "module of another course",
			method:   http.MethodPost,
			path:     path,
			token:    token,
			body:     []byte(`{"text": "What?", "options": ["a", "b"], "answer": 0, "source": "PDF", "module_id": "` + foreignModule.ID + `"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "Invalid module"}),
		},
		{
			name:     "unknown course",
			method:   http.MethodPost,
			path:     "/api/courses/unknown/questions",
			token:    token,
			body:     newQuestion("What?", 0),
			wantCode: http.StatusNotFound,
		},
	})

	var questions []question.Question
	for i, text := range []string{"Q1", "Q2", "Q3"} {
		rec := env.do(http.MethodPost, path, token, newQuestion(text, i))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var q question.Question
		unmarshall(t, rec, &q)
		require.NotNil(t, q.Answer)
		questions = append(questions, q)
	}

	// answers are only listed to admins
	rec := env.do(http.MethodGet, path, studentToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []question.Question
	unmarshall(t, rec, &listed)
	require.Len(t, listed, 3)
	for _, q := range listed {
		assert.Nil(t, q.Answer)
	}
	rec = env.do(http.MethodGet, path, token)
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshall(t, rec, &listed)
	for _, q := range listed {
		assert.NotNil(t, q.Answer)
	}

	env.run(t, []httpTest{
		{
			name:     "limit not a number",
			method:   http.MethodGet,
			path:     path + "/random?limit=abc",
			token:    studentToken,
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "limit must be between 1 and 50"}),
		},
		{
			name:     "limit too high",
			method:   http.MethodGet,
			path:     path + "/random?limit=51",
			token:    studentToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "limit zero",
			method:   http.MethodGet,
			path:     path + "/random?limit=0",
			token:    studentToken,
			wantCode: http.StatusBadRequest,
		},
	})

	rec = env.do(http.MethodGet, path+"/random?limit=2", studentToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var drawn []question.Question
	unmarshall(t, rec, &drawn)
	require.Len(t, drawn, 2)
	assert.NotEqual(t, drawn[0].ID, drawn[1].ID)
	assert.Nil(t, drawn[0].Answer)

	rec = env.do(http.MethodGet, path+"/random", studentToken)
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshall(t, rec, &drawn)
	assert.Len(t, drawn, 3)

	// submission
	submitPath := "/api/courses/" + crs.ID + "/exams/submit"
	answer := func(q question.Question, a int) map[string]interface{} {
		return map[string]interface{}{"question_id": q.ID, "answer": a}
	}
	env.run(t, []httpTest{
		{
			name:     "admins do not submit",
			method:   http.MethodPost,
			path:     submitPath,
			token:    token,
			body:     marshallObj(t, map[string]interface{}{"answers": []interface{}{answer(questions[0], 0)}}),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "unknown question",
			method:   http.MethodPost,
			path:     submitPath,
			token:    studentToken,
			body:     []byte(`{"answers": [{"question_id": "unknown", "answer": 0}]}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "Invalid questions"}),
		},
		{
			name:     "question of another course",
			method:   http.MethodPost,
			path:     "/api/courses/" + other.ID + "/exams/submit",
			token:    studentToken,
			body:     marshallObj(t, map[string]interface{}{"answers": []interface{}{answer(questions[0], 0)}}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing answer",
			method:   http.MethodPost,
			path:     submitPath,
			token:    studentToken,
			body:     []byte(`{"answers": [{"question_id": "` + questions[0].ID + `"}]}`),
			wantCode: http.StatusBadRequest,
		},
	})

	// Q1 and Q2 right, Q3 wrong
	rec = env.do(http.MethodPost, submitPath, studentToken, marshallObj(t, map[string]interface{}{
		"answers": []interface{}{answer(questions[0], 0), answer(questions[1], 1), answer(questions[2], 0)},
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res question.SubmissionResult
	unmarshall(t, rec, &res)
	assert.Equal(t, 2, res.Score)
	assert.Equal(t, 3, res.Total)
	assert.NotEmpty(t, res.ID)

	grades, err := env.GradingSvc.MyGrades(testContext(), student.ID)
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, grading.GradeExam, grades[0].Source)
	assert.Equal(t, float64(67), grades[0].Score)

	mine, err := env.GradingSvc.MyResult(testContext(), student.ID, crs.ID)
	require.NoError(t, err)
	require.NotNil(t, mine.ID)
	assert.Equal(t, res.ID, *mine.ID)
}
