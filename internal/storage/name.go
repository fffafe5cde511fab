package storage

import (
	"math/rand/v2"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const maxExtLen = 16

// GenerateName returns "<unix millis>-<random>" followed by a sanitized ext.
func GenerateName(ext string) string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" +
		strconv.Itoa(rand.IntN(1_000_000_000)) + SanitizeExt(ext)
}

// ExtOf returns the sanitized extension of a client supplied filename.
func ExtOf(filename string) string {
	return SanitizeExt(filepath.Ext(filename))
}

// SanitizeExt keeps a leading dot and lowercase ASCII letters and digits only.
func SanitizeExt(ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	var b strings.Builder
	for _, r := range ext {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == maxExtLen {
			break
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "." + b.String()
}
