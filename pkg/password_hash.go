package pkg

import "golang.org/x/crypto/bcrypt"

// bcrypt cost is fixed; changing it only affects newly stored hashes,
// existing ones keep the cost they were created with.
const bcryptCost = 14

func HashPassword(password string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return BytesToString(hashBytes), nil
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
