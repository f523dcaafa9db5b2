package user

import (
	"bufio"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/darasa/core"
)

var (
	userRoleTag  = "userrole"
	userRoleText = "invalid role"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"

	pwdNoCommonTag  = "pwdnocommon"
	pwdNoCommonText = "password is too common"
	commonPasswords []string

	policyTexts = map[string]string{
		pwdMinLenTag:    pwdMinLenText,
		pwdNoSpaceTag:   pwdNoSpaceText,
		pwdNotAllNumTag: pwdNotAllNumText,
		pwdAttrSimTag:   pwdAttrSimText,
		pwdNoCommonTag:  pwdNoCommonText,
	}
)

// InitValidators registers user validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(userRoleTag, userRoleValidation)
	core.RegisterCustomTranslation(validate, translator, userRoleTag, userRoleText)

	validate.RegisterStructValidation(userStructValidation, NewStudent{}, NewUser{}, UpdateUser{})
	for tag, text := range policyTexts {
		core.RegisterCustomTranslation(validate, translator, tag, text)
	}
}

// LoadCommonPasswords reads the common passwords list, one password per line.
func LoadCommonPasswords(fsys fs.FS, name string, logger core.Logger) {
	file, err := fsys.Open(name)
	if err != nil {
		logger.Error(fmt.Sprintf("user.LoadCommonPasswords: %v", err), err)
		return
	}
	defer func() { _ = file.Close() }()

	pwds := make([]string, 0, 128)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
			pwds = append(pwds, strings.ToLower(pwd))
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Error(fmt.Sprintf("user.LoadCommonPasswords: %v", err), err)
	}
	sort.Strings(pwds)
	commonPasswords = pwds
}

// Custom Validators

func userRoleValidation(fl validator.FieldLevel) bool {
	return IsValidRole(fl.Field().String())
}

// userStructValidation does struct level validation on NewStudent, NewUser and UpdateUser structs.
func userStructValidation(sl validator.StructLevel) {
	reportErr := func(pwd, tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	switch usr := sl.Current().Interface().(type) {
	case NewStudent:
		if tag := passwordPolicyViolation(usr.Password, usr.FirstName, usr.LastName, usr.Email); tag != "" {
			reportErr(usr.Password, tag)
		}
	case NewUser:
		if tag := passwordPolicyViolation(usr.Password, usr.FirstName, usr.LastName, usr.Email); tag != "" {
			reportErr(usr.Password, tag)
		}
	case UpdateUser:
		if usr.Password == "" {
			return
		}
		if tag := passwordPolicyViolation(usr.Password, usr.FirstName, usr.LastName, usr.Email); tag != "" {
			reportErr(usr.Password, tag)
		}
	}
}

// passwordPolicyViolation applies the password policy to provided password and returns the tag of the
// first violated rule, "" when the password is fine:
// - minLen: 8
// - no whitespace
// - no all numeric
// - no user attrs similarity
// - no common password
func passwordPolicyViolation(pwd string, attrs ...string) string {
	pwdLen := len([]rune(pwd))
	if pwdLen < pwdMinLen {
		return pwdMinLenTag
	}

	var digitCount int
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			return pwdNoSpaceTag
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == pwdLen {
		return pwdNotAllNumTag
	}

	lpwd := strings.ToLower(pwd)
	for _, attr := range attrs {
		attr = strings.ToLower(attr)
		if attr == "" {
			continue
		}
		if similarity(lpwd, attr) >= pwdMaxSim {
			return pwdAttrSimTag
		}
		// also compare with the local part of emails
		if i := strings.Index(attr, "@"); i > 0 && similarity(lpwd, attr[:i]) >= pwdMaxSim {
			return pwdAttrSimTag
		}
	}

	if idx := sort.SearchStrings(commonPasswords, lpwd); idx < len(commonPasswords) && commonPasswords[idx] == lpwd {
		return pwdNoCommonTag
	}
	return ""
}

func similarity(a, b string) float64 {
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).QuickRatio()
}

// checkPasswordPolicy returns a ValidationError on the "password" field when pwd violates the policy.
func checkPasswordPolicy(pwd string, usr User) error {
	if tag := passwordPolicyViolation(pwd, usr.FirstName, usr.LastName, usr.Email); tag != "" {
		return core.NewValidationError(nil, core.FieldError{Field: "password", Error: policyTexts[tag]})
	}
	return nil
}
