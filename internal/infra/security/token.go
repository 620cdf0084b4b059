package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"

	domainuser "pingme/internal/domain/user"
)

type RandomTokenGenerator struct {
	Size int
}

func (g RandomTokenGenerator) NewToken() (string, error) {
	size := g.Size
	if size <= 0 {
		size = 32
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token: entropy read failed: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// PublicIDGenerator draws short shareable ids from the uppercase+digits
// alphabet using a cryptographically strong source.
type PublicIDGenerator struct {
	Length int
}

func (g PublicIDGenerator) NewPublicID() (string, error) {
	length := g.Length
	if length <= 0 {
		length = domainuser.PublicIDLength
	}
	alphabet := domainuser.PublicIDAlphabet
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("public id: entropy read failed: %w", err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}
