package domain

import "time"

// Principal is a stakeholder account. Only the argon2id hash of the secret
// is ever stored or carried; the plaintext exists in memory during login only.
type Principal struct {
	ID         string
	Username   string
	SecretHash string // argon2id PHC encoded
	Role       Role
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Identity is the verified (principal, role) pair extracted from an access
// token. It flows as an explicit argument into every guard and lifecycle
// call; nothing reads the current caller from ambient state.
type Identity struct {
	PrincipalID string
	Role        Role
}
