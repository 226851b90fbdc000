package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	items := []struct {
		in, out string
	}{
		{"Sunset", "Sunset"},
		{"  padded  ", "padded"},
		{"<b>Bold</b> move", "Bold move"},
		{"<script>alert(1)</script>", ""},
		{"Tom & Jerry", "Tom & Jerry"},
		{"", ""},
	}
	for _, item := range items {
		assert.Equal(t, item.out, SanitizeText(item.in), item.in)
	}
}
