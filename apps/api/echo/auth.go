package echoapi

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/practrac/practrac/core"
	"github.com/practrac/practrac/core/coach"
)

const (
	ctxTokenKey   = "coachToken"
	ctxCoachKey   = "coach"
	tokenAudience = "PracTrac"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	IsAdmin      bool     `json:"is_admin,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

// NewClaims returns the claims of a fresh token for c.
// origIat keeps the original issue time (unix seconds) across refreshes.
func NewClaims(conf *core.Config, c coach.Coach, origIat ...int64) *Claims {
	now := time.Now()

	oriat := now.Unix()
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    conf.AppName,
			Subject:   c.ID,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(conf.Server.JWTExpirationDelta)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrigIssuedAt: oriat,
		Username:     c.Username,
		Email:        c.Email,
		IsAdmin:      c.IsAdmin(),
		Roles:        c.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the coach Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func jwtMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: echojwt.AlgorithmHS256,
		ContextKey:    ctxTokenKey,
		NewClaimsFunc: func(echo.Context) jwt.Claims { return new(Claims) },
		ErrorHandler: func(ctx echo.Context, err error) error {
			if ctx.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return errMissingToken
			}
			return errInvalidToken.WithInternal(err)
		},
	})
}

func authenticate(ctx context.Context, uname, pwd string, svc coach.Service) (coach.Coach, error) {
	c, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if core.IsNotFound(err) {
			return coach.Coach{}, errAuthenticationFailed
		}
		return coach.Coach{}, errors.Wrap(err, "finding coach by username or email")
	}
	if len(c.PasswordHash) == 0 || c.CheckPassword(pwd) != nil {
		return coach.Coach{}, errAuthenticationFailed
	}
	if !c.IsActive {
		return coach.Coach{}, errAccountDeactivated
	}
	c, err = svc.SetLastLogin(ctx, c)
	return c, errors.Wrap(err, "setting lastLogin")
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(ctxTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextCoach returns the coach loaded by contextCoachMiddleware.
func getContextCoach(ctx echo.Context) (coach.Coach, error) {
	if c, ok := ctx.Get(ctxCoachKey).(coach.Coach); ok {
		return c, nil
	}
	return coach.Coach{}, errUnauthorized
}

// contextCoachMiddleware loads the authenticated coach into the echo.Context.
// Deleted and deactivated accounts are refused even with a valid token.
func contextCoachMiddleware(svc coach.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			c, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
			if err != nil {
				if core.IsNotFound(err) {
					return errUnauthorized
				}
				return errors.Wrap(err, "finding coach by ID")
			}
			if !c.IsActive {
				return errAccountDeactivated
			}
			ctx.Set(ctxCoachKey, c)
			return next(ctx)
		}
	}
}

func refreshToken(ctx echo.Context, conf *core.Config) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}
	c, err := getContextCoach(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context coach")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := GenerateToken(conf, NewClaims(conf, c, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}

// singleCoachMiddleware authenticates every tokenless request as the built-in coach.
func singleCoachMiddleware(conf *core.Config, svc coach.Service) echo.MiddlewareFunc {
	var (
		mu    sync.Mutex
		token string
		exp   time.Time
	)
	getToken := func(ctx context.Context) (string, error) {
		mu.Lock()
		defer mu.Unlock()

		if token != "" && time.Now().Before(exp) {
			return token, nil
		}
		c, err := svc.EnsureDefaultCoach(ctx)
		if err != nil {
			return "", errors.Wrap(err, "ensuring default coach")
		}
		claims := NewClaims(conf, c)
		if token, err = GenerateToken(conf, claims); err != nil {
			return "", err
		}
		// renew well before expiry
		exp = claims.ExpiresAt.Time.Add(-conf.Server.JWTExpirationDelta / 2)
		return token, nil
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			req := ctx.Request()
			if strings.TrimSpace(req.Header.Get(echo.HeaderAuthorization)) == "" {
				t, err := getToken(req.Context())
				if err != nil {
					return err
				}
				req.Header.Set(echo.HeaderAuthorization, "Bearer "+t)
			}
			return next(ctx)
		}
	}
}
