package utils_test

import (
	"testing"

	"github.com/jrsteele09/go-auth-bff/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestStringList(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"space separated", "openid  profile write:roles", []string{"openid", "profile", "write:roles"}},
		{"json array", []any{"read:users", 42, "write:roles"}, []string{"read:users", "write:roles"}},
		{"string slice", []string{"a"}, []string{"a"}},
		{"missing", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, utils.StringList(tt.in))
		})
	}
}
