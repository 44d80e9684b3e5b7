package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "wrapped", err: NewValidationError(errors.New("bad input")), want: "bad input"},
		{name: "fields", err: NewValidationError(nil, FieldError{Field: "email", Error: "invalid"}), want: "email: invalid"},
		{name: "empty", err: NewValidationError(nil), want: "validation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}
