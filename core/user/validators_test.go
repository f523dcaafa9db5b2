package user

import (
	"sort"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
)

func TestPasswordPolicyViolation(t *testing.T) {
	saved := commonPasswords
	defer func() { commonPasswords = saved }()
	LoadCommonPasswords(fstest.MapFS{
		"common.txt": {Data: []byte("Password1\n\nletmein123\n")},
	}, "common.txt", core.NopLogger{})
	assert.True(t, sort.StringsAreSorted(commonPasswords))

	tests := []struct {
		name  string
		pwd   string
		attrs []string
		want  string
	}{
		{name: "too short", pwd: "aB3$", want: pwdMinLenTag},
		{name: "runes are counted", pwd: "ééééééé", want: pwdMinLenTag},
		{name: "whitespace", pwd: "correct horse", want: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", want: pwdNotAllNumTag},
		{name: "like first name", pwd: "Alexandra1", attrs: []string{"Alexandra"}, want: pwdAttrSimTag},
		{name: "like email local part", pwd: "jdoe2024x", attrs: []string{"", "jdoe2024@test.cd"}, want: pwdAttrSimTag},
		{name: "common", pwd: "LetMeIn123", want: pwdNoCommonTag},
		{name: "ok", pwd: "Tr0ub4dor&3xyz!", attrs: []string{"Student", "Test", "student@test.cd"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, passwordPolicyViolation(tt.pwd, tt.attrs...))
		})
	}
}

func TestCheckPasswordPolicy(t *testing.T) {
	err := checkPasswordPolicy("short", User{})
	var verr *core.ValidationError
	if assert.ErrorAs(t, err, &verr) {
		assert.Equal(t, []core.FieldError{{Field: "password", Error: pwdMinLenText}}, verr.Fields)
	}
	assert.NoError(t, checkPasswordPolicy("Tr0ub4dor&3xyz!", User{FirstName: "Ada", Email: "ada@test.cd"}))
}
