package utils

import (
	"fmt"
	"strings"

	"github.com/yukikurage/timesheet-management-api/internal/constants"
)

const specialCharacters = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?`~"

// PasswordProblems lists the complexity rules password breaks.
func PasswordProblems(password string) []string {
	var problems []string
	if len(password) < constants.MinPasswordLength {
		problems = append(problems, fmt.Sprintf("Password must be at least %d characters long", constants.MinPasswordLength))
	}
	if !strings.ContainsAny(password, specialCharacters) {
		problems = append(problems, "Password must contain at least one special character")
	}
	return problems
}
