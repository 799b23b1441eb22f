package service

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	pkgerrors "codequest/pkg/errors"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

const (
	minFirstNameLength = 3
	maxFirstNameLength = 20
	minPasswordLength  = 8
	maxPasswordLength  = 128
	maxAge             = 120
)

func validateFirstName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < minFirstNameLength || n > maxFirstNameLength {
		return pkgerrors.New(pkgerrors.InvalidUsername).
			WithMessagef("first name must be %d to %d characters", minFirstNameLength, maxFirstNameLength)
	}
	return nil
}

func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return pkgerrors.New(pkgerrors.InvalidEmail)
	}
	return nil
}

func validateAge(age int) error {
	if age < 0 || age > maxAge {
		return pkgerrors.ValidationError("age", "out of range")
	}
	return nil
}

// validatePassword requires upper and lower case letters, a digit and a symbol.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return pkgerrors.New(pkgerrors.PasswordTooWeak)
	}
	if len(password) > maxPasswordLength {
		return pkgerrors.New(pkgerrors.InvalidPassword)
	}
	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	if !(upper && lower && digit && symbol) {
		return pkgerrors.New(pkgerrors.PasswordTooWeak)
	}
	return nil
}
