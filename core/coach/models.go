package coach

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/practrac/practrac/core"
)

// Roles
const (
	// Admin
	RoleAdmin      = "admin:"
	RoleAdminOwner = "admin:owner"

	// Coach
	RoleCoach          = "coach:"
	RoleCoachHead      = "coach:head"
	RoleCoachAssistant = "coach:assistant"
)

var (
	AdminRoles = []string{RoleAdmin, RoleAdminOwner}
	CoachRoles = []string{RoleCoachHead, RoleCoachAssistant}
	AllRoles   = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminOwner: 30,
		RoleAdmin:      21,

		// Coaches: 20 - 11
		RoleCoachHead:      12,
		RoleCoachAssistant: 11,
	}

	Roles = []Role{
		{Name: "Assistant Coach", Value: RoleCoachAssistant},
		{Name: "Head Coach", Value: RoleCoachHead},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Admin Owner", Value: RoleAdminOwner},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 4)
	all = append(all, AdminRoles...)
	all = append(all, CoachRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Coach struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Username     string          `json:"username"`
	Email        string          `json:"email"`
	IsActive     bool            `json:"is_active"`
	Roles        core.StringList `json:"roles"`
	PasswordHash []byte          `json:"-"`
	CreatedAt    time.Time       `json:"created_at"` // UTC
	UpdatedAt    time.Time       `json:"updated_at"` // UTC
	LastLogin    null.Time       `json:"last_login"` // UTC
}

func (c *Coach) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	c.PasswordHash = hash
	return nil
}

func (c *Coach) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(c.PasswordHash, []byte(pwd))
}

func (c *Coach) RoleStartsWith(prefix string) bool {
	for _, role := range c.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (c *Coach) IsAdmin() bool {
	return c.RoleStartsWith(RoleAdmin)
}

func (c *Coach) IsHeadCoach() bool {
	for _, role := range c.Roles {
		if role == RoleCoachHead {
			return true
		}
	}
	return false
}

// CanManage reports whether the coach may see resources owned by ownerID.
func (c *Coach) CanManage(ownerID string) bool {
	return c.ID == ownerID || c.IsAdmin()
}

func (c Coach) PersonID() string       { return c.ID }
func (c Coach) PersonUsername() string { return c.Username }
func (c Coach) PersonEmail() string    { return c.Email }

// NewCoach contains information needed to create a new Coach.
type NewCoach struct {
	Name            string   `json:"name" validate:"required"`
	Username        string   `json:"username" validate:"omitempty,min=4,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (nc *NewCoach) Validate(validate *validator.Validate, svc Service) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Username = core.CleanString(nc.Username, true /* lower */)
	nc.Email = core.CleanString(nc.Email, true /* lower */)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckUniqueness(nc.Username, nc.Email)
}

// UpdateCoach defines what information may be provided to modify an existing Coach.
type UpdateCoach struct {
	Name            string   `json:"name"`
	Username        string   `json:"username" validate:"omitempty,min=4,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	IsActive        *bool    `json:"is_active"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
	Password        string   `json:"password" validate:"omitempty"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uc *UpdateCoach) Validate(orig Coach, validate *validator.Validate, svc Service) error {
	name := core.CleanString(uc.Name)
	if name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}

	uname := core.CleanString(uc.Username, true /* lower */)
	if uname != "" {
		uc.Username = uname
	} else {
		uc.Username = orig.Username
	}

	email := core.CleanString(uc.Email, true /* lower */)
	if email != "" {
		uc.Email = email
	} else {
		uc.Email = orig.Email
	}

	if err := validate.Struct(uc); err != nil {
		return err
	}
	return svc.CheckUniqueness(uc.Username, uc.Email, orig)
}

type ResetCoachPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp *ResetCoachPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []string  `query:"role"`
	IsActive    *bool     `query:"-"` // bound by the handler
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter selects a single Coach. Only the first non-empty field is used.
type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail string
}
