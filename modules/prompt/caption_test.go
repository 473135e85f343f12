package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveCaption(t *testing.T) {
	cases := []struct {
		explicit, title, want string
	}{
		{"  big news ", "ignored", "BIG NEWS"},
		{"", "I Built a Robot That Cooks Dinner", "BUILT ROBOT COOKS"},
		{"", "How to learn Go in 2025!", "LEARN GO 2025"},
		{"", "The Truth", "THE TRUTH"},
		{"", "Why?", "MUST WATCH"},
		{"", "", "MUST WATCH"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, DeriveCaption(c.explicit, c.title), c.title)
	}
}
