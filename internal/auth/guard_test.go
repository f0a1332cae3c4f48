package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/noticeboard/internal/domain"
)

func TestAuthorize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		claimed  domain.Identity
		recorded domain.Identity
		want     error
	}{
		{"absent", "", "alice@x.com", domain.ErrUnauthenticated},
		{"whitespace only", "   ", "alice@x.com", domain.ErrUnauthenticated},
		{"mismatch", "bob@x.com", "alice@x.com", domain.ErrForbidden},
		{"exact", "alice@x.com", "alice@x.com", nil},
		{"case and whitespace", "A@B.com", " a@b.com ", nil},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := Authorize(tc.claimed, tc.recorded)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestOwner(t *testing.T) {
	check := Owner("ALICE@x.com")
	assert.NoError(t, check("alice@x.com"))
	assert.ErrorIs(t, check("bob@x.com"), domain.ErrForbidden)
}

func TestVerifiers(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		v, err := NewVerifier("plain")
		require.NoError(t, err)

		stored, err := v.Hash("secret")
		require.NoError(t, err)
		assert.Equal(t, "secret", stored)
		assert.True(t, v.Verify(stored, "secret"))
		assert.False(t, v.Verify(stored, "Secret"))
	})

	t.Run("bcrypt", func(t *testing.T) {
		v := Bcrypt{Cost: 4}

		stored, err := v.Hash("secret")
		require.NoError(t, err)
		assert.NotEqual(t, "secret", stored)
		assert.True(t, v.Verify(stored, "secret"))
		assert.False(t, v.Verify(stored, "wrong"))
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewVerifier("md5")
		assert.ErrorIs(t, err, ErrUnknownScheme)
	})
}
