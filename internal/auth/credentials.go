package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var ErrUnknownScheme = errors.New("unknown password scheme")

// Verifier хеширует и проверяет пароли. Позволяет заменить схему хранения
// без изменения остального кода.
type Verifier interface {
	Hash(password string) (string, error)
	Verify(stored, password string) bool
}

// Plain хранит пароль как есть и сравнивает на равенство.
type Plain struct{}

func (Plain) Hash(password string) (string, error) { return password, nil }

func (Plain) Verify(stored, password string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

// Bcrypt хранит bcrypt-хеш пароля.
type Bcrypt struct {
	Cost int
}

func (b Bcrypt) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (Bcrypt) Verify(stored, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}

// NewVerifier выбирает схему по имени из конфигурации.
func NewVerifier(scheme string) (Verifier, error) {
	switch scheme {
	case "", "plain":
		return Plain{}, nil
	case "bcrypt":
		return Bcrypt{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownScheme, scheme)
	}
}
