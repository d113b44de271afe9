package domain

import "strings"

const (
	fullwidthLo      = 0xFF01 // ！
	fullwidthHi      = 0xFF5E // ～
	fullwidthOffset  = 0xFEE0
	ideographicSpace = '　'
)

// Normalize maps full-width ASCII-range characters to their half-width
// equivalents and the full-width space to an ordinary space, so that
// "＋３　小明" typed through a CJK input method matches the same patterns
// as "+3 小明". Everything else passes through unchanged.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r >= fullwidthLo && r <= fullwidthHi:
			b.WriteRune(r - fullwidthOffset)
		case r == ideographicSpace:
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
