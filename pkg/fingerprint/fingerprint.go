// Package fingerprint computes cheap content fingerprints used to detect
// whether a document changed since it was last indexed. The fingerprint is
// not collision resistant and must not be used for integrity checks.
package fingerprint

import (
	"strconv"
	"unicode/utf16"
)

// Sum32 folds text into a signed 32-bit rolling hash. Each UTF-16 code unit c
// updates the accumulator as h = h*31 + c, wrapping on overflow.
func Sum32(text string) int32 {
	var h int32
	for _, r := range text {
		if utf16.RuneLen(r) == 2 {
			r1, r2 := utf16.EncodeRune(r)
			h = (h << 5) - h + r1
			h = (h << 5) - h + r2
			continue
		}
		h = (h << 5) - h + r
	}
	return h
}

// Hash returns the base-36 rendering of Sum32. Negative sums keep their
// leading minus sign.
func Hash(text string) string {
	return strconv.FormatInt(int64(Sum32(text)), 36)
}
