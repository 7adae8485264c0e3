package devapi

import (
	"crypto/rand"
	"math/big"
)

const (
	otpLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	otpDigits  = "0123456789"
)

// GenerateOTP returns a five character code of two uppercase letters and
// three digits in random positions.
func GenerateOTP() (string, error) {
	code := make([]byte, 0, 5)
	for i := 0; i < 2; i++ {
		c, err := pick(otpLetters)
		if err != nil {
			return "", err
		}
		code = append(code, c)
	}
	for i := 0; i < 3; i++ {
		c, err := pick(otpDigits)
		if err != nil {
			return "", err
		}
		code = append(code, c)
	}

	// Fisher-Yates
	for i := len(code) - 1; i > 0; i-- {
		j, err := randInt(i + 1)
		if err != nil {
			return "", err
		}
		code[i], code[j] = code[j], code[i]
	}
	return string(code), nil
}

func pick(alphabet string) (byte, error) {
	i, err := randInt(len(alphabet))
	if err != nil {
		return 0, err
	}
	return alphabet[i], nil
}

func randInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
