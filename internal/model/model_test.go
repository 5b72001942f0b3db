package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsernameFor(t *testing.T) {
	cases := map[string]string{
		"alice.id":   "alice",
		"bob.test":   "bob.test",
		"sub.bob.id": "sub.bob",
		"plain":      "plain",
		"id":         "id",
	}
	for input, want := range cases {
		assert.Equal(t, want, UsernameFor(input), "input %q", input)
	}
}
