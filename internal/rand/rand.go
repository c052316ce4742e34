package rand

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

func Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	nRead, err := rand.Read(b)
	if err != nil {
		return nil, fmt.Errorf("bytes: %w", err)
	}
	if nRead < n {
		return nil, fmt.Errorf("could not read enough bytes: %d < %d", nRead, n)
	}
	return b, nil
}

// n is the number of bytes used to generate a random string
func String(n int) (string, error) {
	b, err := Bytes(n)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// NumericCode returns a code of n decimal digits with no leading zero.
func NumericCode(n int) (string, error) {
	if n < 1 {
		return "", fmt.Errorf("numeric code length must be positive: %d", n)
	}
	low := int64(1)
	for i := 1; i < n; i++ {
		low *= 10
	}
	span := low*10 - low
	offset, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return "", fmt.Errorf("numeric code: %w", err)
	}
	return fmt.Sprintf("%d", low+offset.Int64()), nil
}
