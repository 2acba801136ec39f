package jwt

import (
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Service verifies the access tokens minted by the identity service and
// issues the short-lived tokens the SSE stream uses, since EventSource
// cannot send an Authorization header.
type Service interface {
	JWTAuth() *jwtauth.JWTAuth
	GenerateSSEToken(employeeID string) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string) (employeeID string, err error)
}

type jwtService struct {
	tokenAuth *jwtauth.JWTAuth
}

func NewService(secretKey string) Service {
	return &jwtService{
		tokenAuth: jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *jwtService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

// GenerateSSEToken generates a short-lived token for SSE connections
func (j *jwtService) GenerateSSEToken(employeeID string) (token string, expiresIn int, err error) {
	expiresIn = 300 // 5 minutes
	expiresAt := time.Now().Add(5 * time.Minute).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"employee_id": employeeID,
		"type":        "sse",
		"exp":         expiresAt,
	})
	if err != nil {
		return "", 0, err
	}

	return tokenString, expiresIn, nil
}

// ValidateSSEToken validates an SSE token and returns the employee ID
func (j *jwtService) ValidateSSEToken(tokenString string) (employeeID string, err error) {
	token, err := j.tokenAuth.Decode(tokenString)
	if err != nil {
		return "", err
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != "sse" {
		return "", jwt.ErrInvalidJWT()
	}

	idVal, ok := token.Get("employee_id")
	if !ok {
		return "", jwt.ErrInvalidJWT()
	}
	id, ok := idVal.(string)
	if !ok {
		return "", jwt.ErrInvalidJWT()
	}

	return id, nil
}
