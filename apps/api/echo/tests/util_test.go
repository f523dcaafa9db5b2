package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core/omr"
	"github.com/trezcool/darasa/core/user"
	testutil "github.com/trezcool/darasa/tests"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}

	strongPwd = "Tr0ub4dor&3xyz!"
)

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

// stubScanner returns `result` for every scan.
type stubScanner struct {
	result omr.ScanResult
}

func (s *stubScanner) Scan(_ context.Context, _ omr.Mode, _ []byte) (omr.ScanResult, error) {
	return s.result, nil
}

type testEnv struct {
	*testutil.App
	server  *echoapi.Server
	scanner *stubScanner
}

func setup(t *testing.T) *testEnv {
	scanner := new(stubScanner)
	app := testutil.NewApp(t, scanner)
	app.Reset()
	server := echoapi.NewServer(app.Conf, app.Logger, &echoapi.ServerDeps{
		Validate:      app.Validate,
		Translator:    app.Translator,
		UserSvc:       app.UserSvc,
		CourseSvc:     app.CourseSvc,
		EnrollmentSvc: app.EnrollmentSvc,
		GradingSvc:    app.GradingSvc,
		QuestionSvc:   app.QuestionSvc,
		ExamSvc:       app.ExamSvc,
		FileSvc:       app.FileSvc,
		OMRSvc:        app.OMRSvc,
	})
	return &testEnv{App: app, server: server, scanner: scanner}
}

func (env *testEnv) createUser(t *testing.T, firstName, email, studentNumber, role string) user.User {
	return testutil.CreateUser(t, env.UserRepo, firstName, "Test", email, studentNumber, strongPwd, role, true)
}

func (env *testEnv) token(t *testing.T, usr user.User) string {
	token, err := env.server.GenerateToken(usr)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}
	return token
}

// do serves one request and returns its recorder.
func (env *testEnv) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	env.server.ServeHTTP(rec, req)
	return rec
}

// run serves each test case and checks its code and data.
func (env *testEnv) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func marshallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marshallList(): %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("json.Unmarshal(%s): %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, "code; body %s", rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func testContext() context.Context {
	return context.Background()
}
