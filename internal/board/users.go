package board

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/UkralStul/noticeboard/internal/auth"
	"github.com/UkralStul/noticeboard/internal/domain"
)

// Users регистрирует пользователей и проверяет их учетные данные.
type Users struct {
	base
	verifier auth.Verifier
}

func (u *Users) Signup(ctx context.Context, name string, email domain.Identity, password string) (*domain.User, error) {
	if email.Blank() || password == "" {
		return nil, fmt.Errorf("email and password are required: %w", domain.ErrInvalidInput)
	}

	hash, err := u.verifier.Hash(password)
	if err != nil {
		return nil, err
	}
	user, err := u.store.CreateUser(ctx, &domain.User{
		Name:     strings.TrimSpace(name),
		Email:    email.Canonical(),
		Password: hash,
	})
	if err != nil {
		return nil, err
	}

	u.logger.Info("user signed up", "id", user.ID, "email", user.Email)
	return user, nil
}

// Login возвращает пользователя, если пароль совпадает.
func (u *Users) Login(ctx context.Context, email domain.Identity, password string) (*domain.User, error) {
	if email.Blank() || password == "" {
		return nil, fmt.Errorf("email and password are required: %w", domain.ErrInvalidInput)
	}

	user, err := u.store.GetUserByEmail(ctx, email.Canonical())
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("invalid email or password: %w", domain.ErrUnauthenticated)
	}
	if err != nil {
		return nil, err
	}
	if !u.verifier.Verify(user.Password, password) {
		return nil, fmt.Errorf("invalid email or password: %w", domain.ErrUnauthenticated)
	}
	return user, nil
}
