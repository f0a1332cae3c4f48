package auth

import (
	"fmt"

	"github.com/UkralStul/noticeboard/internal/domain"
)

// Authorize решает, может ли заявленный пользователь менять ресурс автора recorded.
// Пустая идентичность дает ErrUnauthenticated, несовпадение - ErrForbidden.
func Authorize(claimed, recorded domain.Identity) error {
	if claimed.Blank() {
		return domain.ErrUnauthenticated
	}
	if !claimed.Equal(recorded) {
		return fmt.Errorf("%s is not the author: %w", claimed, domain.ErrForbidden)
	}
	return nil
}

// Owner возвращает проверку автора для передачи в хранилище.
func Owner(claimed domain.Identity) func(domain.Identity) error {
	return func(recorded domain.Identity) error {
		return Authorize(claimed, recorded)
	}
}
