package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"invalid amount is invalid input", ErrInvalidAmount, KindInvalidInput},
		{"wrapped insufficient funds", fmt.Errorf("purchase plan: %w", ErrInsufficientFunds), KindInsufficientFunds},
		{"double wrapped not found", fmt.Errorf("a: %w", fmt.Errorf("b: %w", ErrNotFound)), KindNotFound},
		{"rate limited", ErrRateLimited, KindRateLimited},
		{"unknown is internal", errors.New("connection reset"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIsDomain(t *testing.T) {
	assert.True(t, IsDomain(fmt.Errorf("x: %w", ErrDuplicateUser)))
	assert.False(t, IsDomain(errors.New("boom")))
	assert.False(t, IsDomain(nil))
}
