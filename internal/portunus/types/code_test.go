package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BrandonDHaskell/Portunus/keypad/internal/portunus/types"
)

func TestValidateCode(t *testing.T) {
	cases := []struct {
		code string
		ok   bool
	}{
		{"123", true},
		{"12345678", true},
		{"12", false},
		{"123456789", false},
		{"12a4", false},
		{"", false},
		{" 1234", false},
	}
	for _, tc := range cases {
		err := types.ValidateCode(tc.code)
		if tc.ok {
			assert.NoError(t, err, "code %q", tc.code)
		} else {
			assert.ErrorIs(t, err, types.ErrInvalidCode, "code %q", tc.code)
		}
	}
}

func TestDecisionAccess(t *testing.T) {
	assert.Equal(t, types.AccessDenied, types.Denied().Access())
	assert.Equal(t, types.AccessGrantedPointCode, types.GrantedByPointCode("front").Access())

	d := types.GrantedByUser(7)
	assert.Equal(t, types.AccessGrantedUser, d.Access())
	if assert.NotNil(t, d.UserID) {
		assert.Equal(t, int64(7), *d.UserID)
	}
	assert.True(t, types.IsGrantedAccess(d.Access()))
	assert.False(t, types.IsGrantedAccess(types.AccessDenied))
}
