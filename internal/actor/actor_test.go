package actor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "worker", want: RoleWorker},
		{in: " Employer ", want: RoleEmployer},
		{in: "employeer", want: RoleEmployer},
		{in: "admin", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestActor_Valid(t *testing.T) {
	assert.True(t, Actor{ID: "u1", Role: RoleWorker}.Valid())
	assert.False(t, Actor{Role: RoleWorker}.Valid())
	assert.False(t, Actor{ID: "u1", Role: "admin"}.Valid())
}
