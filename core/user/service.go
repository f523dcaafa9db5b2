package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound            = core.NotFound("user not found")
	ErrEmailExists         = core.Conflict("Email already exists")
	ErrStudentNumberExists = core.Conflict("Student number already exists")
	ErrInvalidCredentials  = core.Unauthorized("Invalid credentials")
	ErrAccountDeactivated  = core.Forbidden("account deactivated")
	ErrInvalidResetLink    = core.Invalid("invalid or expired password reset link")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrEmailExists or ErrStudentNumberExists when another User holds them.
		CheckUniqueness(ctx context.Context, email, studentNumber string, excludedUsers []User, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Email, User.FirstName, User.LastName or User.StudentNumber.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		CountUsers(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) (int, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error
	}

	Service interface {
		CheckUniqueness(email, studentNumber string, exclUsers ...User) error
		Register(ctx context.Context, ns NewStudent) (User, error)
		Create(ctx context.Context, nu NewUser) (User, error)
		Authenticate(ctx context.Context, email, pwd string) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		Count(ctx context.Context, filter *QueryFilter) (int, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		GetByStudentNumber(ctx context.Context, studentNumber string) (User, error)
		Update(ctx context.Context, usr User, uu UpdateUser) (User, error)
		UpdateProfile(ctx context.Context, usr User, up UpdateProfile) (User, error)
		Delete(ctx context.Context, ids ...string) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) error
	}

	service struct {
		repo     Repository
		mailSvc  core.EmailService
		tokenGen *tokenGenerator
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(conf *core.Config, repo Repository, mailSvc core.EmailService, logger core.Logger) Service {
	return &service{
		repo:     repo,
		mailSvc:  mailSvc,
		tokenGen: newTokenGenerator(conf.SecretKey, conf.Server.PasswordResetTimeoutDelta),
		logger:   logger,
	}
}

func (svc *service) CheckUniqueness(email, studentNumber string, exclUsers ...User) error {
	err := svc.repo.CheckUniqueness(context.Background(), email, studentNumber, exclUsers)
	return errors.Wrap(err, "checking user uniqueness")
}

func (svc *service) Register(ctx context.Context, ns NewStudent) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Email:         ns.Email,
		FirstName:     ns.FirstName,
		LastName:      ns.LastName,
		StudentNumber: ns.StudentNumber,
		Role:          RoleStudent,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := usr.SetPassword(ns.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	return usr, errors.Wrap(err, "creating user")
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Email:         nu.Email,
		FirstName:     nu.FirstName,
		LastName:      nu.LastName,
		StudentNumber: nu.StudentNumber,
		Role:          nu.Role,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	return usr, errors.Wrap(err, "creating user")
}

func (svc *service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}
	usr, err = svc.SetLastLogin(ctx, usr)
	return usr, errors.Wrap(err, "setting lastLogin")
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	usr, err := svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	users, err := svc.repo.QueryUsers(ctx, filter, ordering)
	return users, errors.Wrap(err, "querying users")
}

func (svc *service) Count(ctx context.Context, filter *QueryFilter) (int, error) {
	n, err := svc.repo.CountUsers(ctx, filter)
	return n, errors.Wrap(err, "counting users")
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) GetByStudentNumber(ctx context.Context, studentNumber string) (User, error) {
	studentNumber = core.CleanString(studentNumber)
	if studentNumber == "" {
		return User{}, ErrNotFound
	}
	return svc.repo.GetUser(ctx, GetFilter{StudentNumber: studentNumber})
}

// Update applies a validated UpdateUser on usr.
func (svc *service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	usr.Email = uu.Email
	usr.FirstName = uu.FirstName
	usr.LastName = uu.LastName
	usr.Role = uu.Role
	if uu.StudentNumber != nil {
		usr.StudentNumber = *uu.StudentNumber
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	usr, err := svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

// UpdateProfile changes the names of usr. The student number is only kept for students.
func (svc *service) UpdateProfile(ctx context.Context, usr User, up UpdateProfile) (User, error) {
	usr.FirstName = up.FirstName
	usr.LastName = up.LastName
	if !usr.IsStudent() {
		usr.StudentNumber = ""
	} else if up.StudentNumber != nil {
		usr.StudentNumber = *up.StudentNumber
	}
	usr.UpdatedAt = time.Now().UTC()
	usr, err := svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return errors.Wrap(svc.repo.DeleteUsersByID(ctx, ids), "deleting users")
}

// RequestPasswordReset mails a password reset link to the active User owning `email`.
func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return nil
	}
	svc.mailSvc.SendMessages(svc.passwordResetMessage(usr))
	return nil
}

func (svc *service) passwordResetMessage(usr User) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name(), Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Name":  usr.FirstName,
			"UID":   EncodeUID(usr),
			"Token": svc.tokenGen.makeToken(usr),
		},
	}
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	id, err := decodeUID(rp.UID)
	if err != nil {
		return ErrInvalidResetLink
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return ErrInvalidResetLink
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err = svc.tokenGen.verifyToken(usr, rp.Token); err != nil {
		svc.logger.Debug(fmt.Sprintf("password reset rejected: %v", err), usr)
		return ErrInvalidResetLink
	}
	if err = checkPasswordPolicy(rp.Password, usr); err != nil {
		return err
	}

	if err = usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating user")
}
