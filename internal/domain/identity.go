package domain

import "strings"

// Identity - email пользователя. Хранится как есть, сравнивается без учета
// регистра и пробелов по краям.
type Identity string

// Normalized возвращает каноническую форму для сравнения.
func (i Identity) Normalized() string {
	return strings.ToLower(strings.TrimSpace(string(i)))
}

// Canonical - нормализованная идентичность. В этой форме хранятся ключи
// лайков и пользователей.
func (i Identity) Canonical() Identity {
	return Identity(i.Normalized())
}

// Blank сообщает, что идентичность не передана.
func (i Identity) Blank() bool {
	return strings.TrimSpace(string(i)) == ""
}

func (i Identity) Equal(other Identity) bool {
	return i.Normalized() == other.Normalized()
}

func (i Identity) String() string { return string(i) }
