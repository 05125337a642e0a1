package echoapi

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/shuleos/shule/core"
	"github.com/shuleos/shule/core/role"
	"github.com/shuleos/shule/core/user"
)

const (
	tokenContextKey = "userToken"
	userContextKey  = "user"
)

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT. The
// role's resolved privilege names ride along so guards never hit the store.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Email        string   `json:"email,omitempty"`
	RoleName     string   `json:"role_name,omitempty"`
	Privileges   []string `json:"privileges,omitempty"`
}

func GetUserClaims(conf *core.Config, usr user.User, privileges []string, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  "Shule",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        usr.Email,
		RoleName:     usr.RoleName,
		Privileges:   privileges,
	}
}

func authenticate(ctx context.Context, email, pwd string, opts *Options) (*Claims, error) {
	usr, err := opts.UserSvc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	if usr.IsActive != nil && !*usr.IsActive {
		return nil, errAccountDeactivated
	}
	usr, err = opts.UserSvc.SetLastLogin(ctx, usr)
	if err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	privileges, err := resolvePrivileges(ctx, usr.RoleName, opts)
	if err != nil {
		return nil, err
	}
	return GetUserClaims(opts.Conf, usr, privileges), nil
}

// resolvePrivileges flattens the user's role into privilege names; a user
// with no role gets none (default deny).
func resolvePrivileges(ctx context.Context, roleName string, opts *Options) ([]string, error) {
	if roleName == "" {
		return nil, nil
	}
	privileges, err := opts.RoleSvc.PrivilegeNames(ctx, roleName)
	if err != nil {
		if errors.Cause(err) == role.ErrRoleNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(err, "resolving role privileges")
	}
	return privileges, nil
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthenticated
}

func getContextUser(ctx echo.Context, opts *Options, clms ...Claims) (user.User, error) {
	if usr, ok := ctx.Get(userContextKey).(user.User); ok {
		return usr, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return user.User{}, errors.Wrap(err, "getting context claims")
		}
	}

	usr, err := opts.UserSvc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(userContextKey, usr)
	return usr, nil
}

func refreshToken(ctx echo.Context, opts *Options) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	usr, err := getContextUser(ctx, opts, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	// check if user is still active
	if usr.IsActive != nil && !*usr.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(opts.Conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	// privileges may have changed since the original token was issued
	privileges, err := resolvePrivileges(ctx.Request().Context(), usr.RoleName, opts)
	if err != nil {
		return "", err
	}

	newClaims := GetUserClaims(opts.Conf, usr, privileges, claims.OrigIssuedAt)
	token, err := GenerateToken(opts.Conf, newClaims)
	return token, errors.Wrap(err, "generating token")
}
