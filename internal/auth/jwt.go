package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStaff    Role = "staff"
	RoleCustomer Role = "customer"
	RoleDevice   Role = "device"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleCustomer, RoleDevice:
		return true
	}
	return false
}

// Principal is the authenticated caller of a request.
type Principal struct {
	Subject string
	Role    Role
}

const (
	tokenIssuer   = "coldchain"
	tokenAudience = "coldchain-dashboard"
)

// JWTService verifies bearer tokens issued for dashboard users. Issuing is
// only used by tooling and tests; sessions live elsewhere.
type JWTService struct {
	secret []byte
}

func NewJWT(secret []byte) *JWTService {
	return &JWTService{secret: secret}
}

func (j *JWTService) GenerateToken(sub string, role Role, expires time.Duration) (string, error) {
	if sub == "" {
		return "", errors.New("token subject is required")
	}
	if !role.Valid() || role == RoleDevice {
		return "", fmt.Errorf("cannot issue a token for role %q", role)
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":  tokenIssuer,
		"aud":  tokenAudience,
		"sub":  sub,
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  now.Add(expires).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

func (j *JWTService) ParseToken(tokenStr string) (Principal, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil {
		return Principal{}, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Principal{}, errors.New("invalid token")
	}
	if !claims.VerifyAudience(tokenAudience, true) {
		return Principal{}, errors.New("token audience mismatch")
	}

	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	p := Principal{Subject: sub, Role: Role(role)}
	if p.Subject == "" {
		return Principal{}, errors.New("token has no subject")
	}
	if !p.Role.Valid() || p.Role == RoleDevice {
		return Principal{}, fmt.Errorf("token role %q is not allowed", role)
	}
	return p, nil
}
