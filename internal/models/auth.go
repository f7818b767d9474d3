package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload issued by the identity service.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	StudentID string   `json:"student_id,omitempty"`
	Email     string   `json:"email"`
	FullName  string   `json:"full_name"`
	jwt.RegisteredClaims
}

// ActorID returns the identifier used for ownership checks: the student id
// for student accounts, the user id otherwise.
func (c *JWTClaims) ActorID() string {
	if c == nil {
		return ""
	}
	if c.Role == RoleStudent && c.StudentID != "" {
		return c.StudentID
	}
	return c.UserID
}
