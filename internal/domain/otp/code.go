package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const CodeLength = 6

var codeSpace = big.NewInt(1_000_000)

// GenerateCode devuelve un código uniforme en 000000..999999 con ceros a la izquierda.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// NormalizeCode quita todo lo que no sea dígito y exige exactamente 6.
func NormalizeCode(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) != CodeLength {
		return "", false
	}
	return out, true
}
