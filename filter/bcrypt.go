package filter

import (
	"fmt"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

// bcryptFilter hashes with a fresh salt, or verifies against stored.
//
// x/crypto does not expose hashing with a caller-supplied salt, so when stored
// is set the filter returns stored on a match and "" otherwise.
func bcryptFilter(param, value, stored string) (string, error) {
	if stored != "" {
		if _, err := bcrypt.Cost([]byte(stored)); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedStored, err)
		}
		if bcrypt.CompareHashAndPassword([]byte(stored), []byte(value)) == nil {
			return stored, nil
		}
		return "", nil
	}

	cost := bcrypt.DefaultCost
	if param != "" {
		n, err := strconv.Atoi(param)
		if err != nil || n < bcrypt.MinCost || n > bcrypt.MaxCost {
			return "", fmt.Errorf("%w: bcrypt cost %q", ErrInvalidParam, param)
		}
		cost = n
	}
	out, err := bcrypt.GenerateFromPassword([]byte(value), cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
