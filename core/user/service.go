package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/shuleos/shule/core"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) (int, error)
	}

	Service interface {
		CheckUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		Create(ctx context.Context, nu NewUser) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Update(ctx context.Context, id string, uu UpdateUser) (User, error)
		Delete(ctx context.Context, ids ...string) error
		SetLastLogin(ctx context.Context, usr User) (User, error)

		RequestActivation(ctx context.Context, email string) error
		ConfirmActivation(ctx context.Context, au ActivateUser) (User, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) error
	}

	service struct {
		repo            Repository
		mailSvc         core.EmailService
		conf            *core.Config
		logger          core.Logger
		activationToken *tokenGenerator
		resetToken      *tokenGenerator
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger, conf *core.Config) Service {
	return &service{
		repo:            repo,
		mailSvc:         mailSvc,
		conf:            conf,
		logger:          logger,
		activationToken: newTokenGenerator(conf.SecretKey, conf.ActivationTimeoutDelta),
		resetToken:      newTokenGenerator(conf.SecretKey, conf.PasswordResetTimeoutDelta),
	}
}

func (svc *service) CheckUniqueness(ctx context.Context, email string, excludedUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excludedUsers...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Create registers a new inactive account and emails an activation link; the
// password is set when the user activates.
func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		RoleName:  nu.RoleName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(false)

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}
	svc.sendActivationMail(usr)
	return usr, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	usr.Name = uu.Name
	if uu.Email != usr.Email {
		usr.Email = uu.Email
		usr.EmailVerified = false
	}
	if uu.IsActive != nil {
		usr.IsActive = uu.IsActive
	}
	if uu.Password != "" {
		if err = usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteUsersByID(ctx, ids...)
	return err
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// RequestActivation re-sends the activation email for a not-yet-active account.
func (svc *service) RequestActivation(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if usr.Active() {
		return nil
	}
	svc.sendActivationMail(usr)
	return nil
}

// ConfirmActivation verifies the activation token, sets the account's first
// password and flips it active. The token is single-use: it is bound to the
// (empty) password hash it was minted against.
func (svc *service) ConfirmActivation(ctx context.Context, au ActivateUser) (User, error) {
	usr, err := svc.getByUID(ctx, au.UID)
	if err != nil {
		return User{}, err
	}
	if err = svc.activationToken.VerifyToken(usr, au.Token); err != nil {
		return User{}, core.NewValidationError(err)
	}
	if err = usr.SetPassword(au.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.SetActive(true)
	usr.EmailVerified = true
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	usr, err := svc.getByUID(ctx, rp.UID)
	if err != nil {
		return err
	}
	if err = svc.resetToken.VerifyToken(usr, rp.Token); err != nil {
		return core.NewValidationError(err)
	}
	if err = usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	if _, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "updating user")
	}
	return nil
}

func (svc *service) getByUID(ctx context.Context, uid string) (User, error) {
	id, err := DecodeUID(uid)
	if err != nil {
		return User{}, core.NewValidationError(errInvalidToken)
	}
	return svc.GetByID(ctx, id)
}

func (svc *service) sendActivationMail(usr User) {
	token, err := svc.activationToken.MakeToken(usr)
	if err != nil {
		svc.logger.Error("generating activation token", err)
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Activate your account",
		TemplateName: "user-activation",
		TemplateData: struct{ Name, UID, Token string }{usr.Name, EncodeUID(usr), token},
	})
}

func (svc *service) sendPasswordResetMail(usr User) {
	token, err := svc.resetToken.MakeToken(usr)
	if err != nil {
		svc.logger.Error("generating password reset token", err)
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password reset",
		TemplateName: "password-reset",
		TemplateData: struct{ Name, UID, Token string }{usr.Name, EncodeUID(usr), token},
	})
}
