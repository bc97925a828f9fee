package validation

import (
	"fmt"
	"unicode"
)

const minPasswordLength = 8

// ValidatePassword проверяет пароль: минимум 8 символов, хотя бы одна
// заглавная буква, одна строчная и одна цифра.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("пароль должен быть не менее %d символов", minPasswordLength)
	}

	var hasUpper, hasLower, hasDigit bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}

	switch {
	case !hasUpper:
		return fmt.Errorf("пароль должен содержать хотя бы одну заглавную букву")
	case !hasLower:
		return fmt.Errorf("пароль должен содержать хотя бы одну строчную букву")
	case !hasDigit:
		return fmt.Errorf("пароль должен содержать хотя бы одну цифру")
	}

	return nil
}
