package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeQueryTranslatesTagalog(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"masakit po ang ngipin ko", "painful tooth ko"},
		{"magkano ang paglinis?", "price cleaning"},
		{"pwede ba bukas ng hapon", "can tomorrow afternoon"},
		{"my tooth hurts", "my tooth hurts"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeQuery(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeQueryDropsFillerOnly(t *testing.T) {
	assert.Equal(t, "", NormalizeQuery("po ba naman lang"))
}
