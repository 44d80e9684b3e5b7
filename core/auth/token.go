package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
	"github.com/capitalizelearning/CapitalizeWebsite/core/account"
)

const (
	AudienceAdmin = "admin"
	AudienceUser  = "user"
)

var (
	ErrInvalidToken   = core.NewAuthenticationError("invalid token")
	ErrTokenExpired   = core.NewAuthenticationError("token has expired")
	ErrUnknownSubject = core.NewAuthenticationError("token subject not found")
	ErrRefreshExpired = core.NewPermissionError("refresh has expired")
)

var signingMethod = jwt.SigningMethodHS256

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	OrigIssuedAt int64 `json:"oriat,omitempty"`
}

func (c Claims) IsAdmin() bool {
	for _, aud := range c.Audience {
		if aud == AudienceAdmin {
			return true
		}
	}
	return false
}

// UserID returns the id held by the subject claim.
func (c Claims) UserID() (int, error) {
	id, err := strconv.Atoi(c.Subject)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

type (
	UserGetter interface {
		GetByID(ctx context.Context, id int) (account.User, error)
	}

	// TokenService issues and verifies the bearer tokens of the API.
	TokenService struct {
		users UserGetter
		conf  *core.Config
		now   func() time.Time
	}
)

func NewTokenService(users UserGetter, conf *core.Config) *TokenService {
	return &TokenService{users: users, conf: conf, now: time.Now}
}

// Encode returns a signed token for usr and its expiry time.
func (svc *TokenService) Encode(usr account.User) (string, time.Time, error) {
	return svc.encode(usr, 0)
}

func (svc *TokenService) encode(usr account.User, oriat int64) (string, time.Time, error) {
	now := svc.now().UTC()
	if oriat == 0 {
		oriat = now.Unix()
	}
	aud := AudienceUser
	if usr.IsStaff {
		aud = AudienceAdmin
	}
	expiresAt := now.Add(svc.conf.JWTExpirationDelta())

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    svc.conf.AppName,
			Subject:   strconv.Itoa(usr.ID),
			Audience:  jwt.ClaimStrings{aud},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrigIssuedAt: oriat,
	}
	token, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(svc.conf.SecretKey))
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "signing token")
	}
	return token, expiresAt, nil
}

// ParseClaims verifies the token signature, expiry and audience.
func (svc *TokenService) ParseClaims(token string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(*jwt.Token) (interface{}, error) { return []byte(svc.conf.SecretKey), nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(svc.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	var validAud bool
	for _, aud := range claims.Audience {
		if aud == AudienceAdmin || aud == AudienceUser {
			validAud = true
		}
	}
	if !validAud {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Resolve returns the active user the claims were issued to.
func (svc *TokenService) Resolve(ctx context.Context, claims *Claims) (account.User, error) {
	id, err := claims.UserID()
	if err != nil {
		return account.User{}, err
	}
	usr, err := svc.users.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return account.User{}, ErrUnknownSubject
		}
		return account.User{}, errors.Wrap(err, "finding token user")
	}
	if !usr.IsActive {
		return account.User{}, account.ErrAccountDeactivated
	}
	return usr, nil
}

// Decode verifies token and returns its user.
// Signature, expiry and audience failures are distinct from a subject that does not resolve (ErrUnknownSubject).
func (svc *TokenService) Decode(ctx context.Context, token string) (account.User, error) {
	claims, err := svc.ParseClaims(token)
	if err != nil {
		return account.User{}, err
	}
	return svc.Resolve(ctx, claims)
}

// Refresh issues a new token for a valid one, as long as the original token was issued
// less than the refresh expiration delta ago.
func (svc *TokenService) Refresh(ctx context.Context, token string) (string, time.Time, error) {
	claims, err := svc.ParseClaims(token)
	if err != nil {
		return "", time.Time{}, err
	}
	usr, err := svc.Resolve(ctx, claims)
	if err != nil {
		return "", time.Time{}, err
	}

	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(svc.conf.JWT.RefreshExpirationDelta)
	if svc.now().After(expTime) {
		return "", time.Time{}, ErrRefreshExpired
	}
	return svc.encode(usr, claims.OrigIssuedAt)
}
