package storage

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateName(t *testing.T) {
	re := regexp.MustCompile(`^\d{13}-\d{1,9}\.png$`)

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		name := GenerateName(".PNG")
		assert.Regexp(t, re, name)
		seen[name] = struct{}{}
	}
	assert.Greater(t, len(seen), 990)
}

func TestSanitizeExt(t *testing.T) {
	assert.Equal(t, ".pdf", SanitizeExt(".pdf"))
	assert.Equal(t, ".jpeg", SanitizeExt("JPEG"))
	assert.Equal(t, "", SanitizeExt(""))
	assert.Equal(t, "", SanitizeExt("./"))
	assert.Equal(t, ".mp4", ExtOf("../../clip.MP4"))
	assert.Equal(t, "", ExtOf("README"))
}
