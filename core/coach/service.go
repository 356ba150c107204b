package coach

import (
	"context"
	"net/mail"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/practrac/practrac/core"
)

// DefaultUsername is the built-in account used in single-coach mode.
const DefaultUsername = "coach"

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("coach")
	ErrCoachExists    = errors.New("a coach with this username or email already exists")
	ErrEmailExists    = errors.New("a coach with this email already exists")
	ErrUsernameExists = errors.New("a coach with this username already exists")
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
)

type (
	Repository interface {
		// CheckUsernameUniqueness returns ErrCoachExists when the username or the email is taken by a coach
		// other than the excluded ones.
		CheckUsernameUniqueness(ctx context.Context, username, email string, excluded []Coach, exec ...core.DBExecutor) error
		CreateCoach(ctx context.Context, c Coach, exec ...core.DBExecutor) (Coach, error)
		// QueryCoaches applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Coach.Name, Coach.Username or Coach.Email.
		// QueryFilter.Roles matches coaches having any role starting with one of the provided roles.
		QueryCoaches(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Coach, error)
		GetCoach(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Coach, error)
		UpdateCoach(ctx context.Context, c Coach, exec ...core.DBExecutor) (Coach, error)
		DeleteCoachesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		CheckUniqueness(uname, email string, exclCoaches ...Coach) error
		Create(ctx context.Context, nc NewCoach) (Coach, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Coach, error)
		GetByID(ctx context.Context, id string) (Coach, error)
		GetByUsername(ctx context.Context, uname string) (Coach, error)
		GetByEmail(ctx context.Context, email string) (Coach, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (Coach, error)
		Update(ctx context.Context, c Coach, uc UpdateCoach) (Coach, error)
		SetLastLogin(ctx context.Context, c Coach) (Coach, error)
		SetPassword(ctx context.Context, c Coach, pwd string) (Coach, error)
		Delete(ctx context.Context, ids ...string) error
		EnsureDefaultCoach(ctx context.Context) (Coach, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetCoachPassword) (Coach, error)
	}

	service struct {
		db      core.DB
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
		tokens  tokenGenerator
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(db, "db"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	return newService(db, repo, mailSvc, conf)
}

func newService(db core.DB, repo Repository, mailSvc core.EmailService, conf *core.Config) *service {
	return &service{
		db:      db,
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
		tokens:  newTokenGenerator(conf.SecretKey, conf.Server.PasswordResetTimeoutDelta),
	}
}

func (svc *service) CheckUniqueness(uname, email string, exclCoaches ...Coach) error {
	ctx := context.Background()
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, exclCoaches); err != nil {
		if errors.Cause(err) != ErrCoachExists {
			return errors.Wrap(err, "checking uniqueness")
		}

		var flds []core.FieldError
		if uname != "" {
			if _, err := svc.repo.GetCoach(ctx, GetFilter{Username: uname}); err == nil && !isExcluded(uname, "", exclCoaches) {
				flds = append(flds, core.FieldError{Field: "username", Error: ErrUsernameExists.Error()})
			}
		}
		if email != "" {
			if _, err := svc.repo.GetCoach(ctx, GetFilter{Email: email}); err == nil && !isExcluded("", email, exclCoaches) {
				flds = append(flds, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
			}
		}
		return core.NewValidationError(ErrCoachExists, flds...)
	}
	return nil
}

func isExcluded(uname, email string, coaches []Coach) bool {
	for _, c := range coaches {
		if (uname != "" && c.Username == uname) || (email != "" && c.Email == email) {
			return true
		}
	}
	return false
}

func (svc *service) Create(ctx context.Context, nc NewCoach) (Coach, error) {
	now := core.Now()
	c := Coach{
		Name:      nc.Name,
		Username:  nc.Username,
		Email:     nc.Email,
		IsActive:  true,
		Roles:     nc.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.SetPassword(nc.Password); err != nil {
		return Coach{}, errors.Wrap(err, "setting password")
	}
	c, err := svc.repo.CreateCoach(ctx, c)
	return c, errors.Wrap(err, "creating coach")
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Coach, error) {
	ordering = core.AllowedOrderings(ordering, "name", "username", "email", "is_active", "created_at", "last_login")
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	coaches, err := svc.repo.QueryCoaches(ctx, filter, ordering)
	return coaches, errors.Wrap(err, "querying coaches")
}

func (svc *service) GetByID(ctx context.Context, id string) (Coach, error) {
	return svc.repo.GetCoach(ctx, GetFilter{ID: id})
}

func (svc *service) GetByUsername(ctx context.Context, uname string) (Coach, error) {
	return svc.repo.GetCoach(ctx, GetFilter{Username: core.CleanString(uname, true /* lower */)})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (Coach, error) {
	return svc.repo.GetCoach(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, uname string) (Coach, error) {
	return svc.repo.GetCoach(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

// Update applies a validated UpdateCoach to c.
func (svc *service) Update(ctx context.Context, c Coach, uc UpdateCoach) (Coach, error) {
	c.Name = uc.Name
	c.Username = uc.Username
	c.Email = uc.Email
	if uc.Roles != nil {
		c.Roles = uc.Roles
	}
	if uc.IsActive != nil {
		c.IsActive = *uc.IsActive
	}
	if uc.Password != "" {
		if err := c.SetPassword(uc.Password); err != nil {
			return Coach{}, errors.Wrap(err, "setting password")
		}
	}
	c.UpdatedAt = core.Now()
	c, err := svc.repo.UpdateCoach(ctx, c)
	return c, errors.Wrap(err, "updating coach")
}

func (svc *service) SetLastLogin(ctx context.Context, c Coach) (Coach, error) {
	c.LastLogin = null.TimeFrom(core.Now())
	c, err := svc.repo.UpdateCoach(ctx, c)
	return c, errors.Wrap(err, "setting last login")
}

func (svc *service) SetPassword(ctx context.Context, c Coach, pwd string) (Coach, error) {
	if err := c.SetPassword(pwd); err != nil {
		return Coach{}, errors.Wrap(err, "setting password")
	}
	c.UpdatedAt = core.Now()
	c, err := svc.repo.UpdateCoach(ctx, c)
	return c, errors.Wrap(err, "updating coach")
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := svc.repo.DeleteCoachesByID(ctx, ids)
	return errors.Wrap(err, "deleting coaches")
}

// EnsureDefaultCoach returns the single-coach mode account, creating it on first use.
func (svc *service) EnsureDefaultCoach(ctx context.Context) (Coach, error) {
	var c Coach
	err := core.InTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		c, err = svc.repo.GetCoach(ctx, GetFilter{Username: DefaultUsername}, tx)
		if err == nil {
			return nil
		}
		if !core.IsNotFound(err) {
			return errors.Wrap(err, "finding default coach")
		}

		now := core.Now()
		c, err = svc.repo.CreateCoach(ctx, Coach{
			Name:      "Coach",
			Username:  DefaultUsername,
			IsActive:  true,
			Roles:     core.StringList{RoleAdminOwner},
			CreatedAt: now,
			UpdatedAt: now,
		}, tx)
		return errors.Wrap(err, "creating default coach")
	})
	return c, err
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	c, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !c.IsActive {
		return ErrNotFound
	}
	msg, err := svc.passwordResetMessage(c)
	if err != nil {
		return errors.Wrap(err, "preparing password reset email")
	}
	svc.mailSvc.SendMessages(msg)
	return nil
}

func (svc *service) passwordResetMessage(c Coach) (*core.EmailMessage, error) {
	token, err := svc.tokens.MakeToken(c)
	if err != nil {
		return nil, err
	}
	return &core.EmailMessage{
		To:              []mail.Address{{Name: c.Name, Address: c.Email}},
		Subject:         "Password Reset",
		TemplateName:    "password_reset",
		FrontendBaseURL: svc.conf.FrontendBaseURL,
		TemplateData: map[string]interface{}{
			"Name":     c.Name,
			"Username": c.Username,
			"UID":      EncodeUID(c),
			"Token":    token,
		},
	}, nil
}

func (svc *service) ResetPassword(ctx context.Context, data ResetCoachPassword) (Coach, error) {
	id, err := decodeUID(data.UID)
	if err != nil {
		return Coach{}, core.NewValidationError(ErrInvalidToken, core.FieldError{Field: "uid", Error: ErrInvalidToken.Error()})
	}
	if _, err := uuid.Parse(id); err != nil {
		return Coach{}, core.NewValidationError(ErrInvalidToken, core.FieldError{Field: "uid", Error: ErrInvalidToken.Error()})
	}

	c, err := svc.GetByID(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return Coach{}, core.NewValidationError(ErrInvalidToken, core.FieldError{Field: "uid", Error: ErrInvalidToken.Error()})
		}
		return Coach{}, errors.Wrap(err, "finding coach by ID")
	}

	if err := svc.tokens.VerifyToken(c, data.Token); err != nil {
		return Coach{}, core.NewValidationError(err, core.FieldError{Field: "token", Error: err.Error()})
	}
	if err := validatePasswordPolicy(data.Password, c.Name, c.Username, c.Email); err != "" {
		return Coach{}, core.NewValidationError(nil, core.FieldError{Field: "password", Error: err})
	}

	c, err = svc.SetPassword(ctx, c, data.Password)
	if err != nil {
		return Coach{}, err
	}
	return c, nil
}
