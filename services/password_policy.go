package services

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"justice_flow_go/models"
)

// PasswordPolicy is the rule set applied to one account
type PasswordPolicy struct {
	MinLength    int
	RequireMixed bool // upper, lower, digit and symbol
}

// Password length floors per tier
const (
	CitizenPasswordLength = 8
	StaffPasswordLength   = 12
	AdminPasswordLength   = 14
)

// PasswordPolicyFor returns the policy of a role. Citizens keep the basic floor;
// staff accounts get the strong rules when the platform settings ask for them,
// and administrators always do.
func PasswordPolicyFor(role string, requireStrong bool) PasswordPolicy {
	switch {
	case role == models.RoleAdmin:
		return PasswordPolicy{MinLength: AdminPasswordLength, RequireMixed: true}
	case role == models.RoleCitizen || !requireStrong:
		return PasswordPolicy{MinLength: CitizenPasswordLength}
	default:
		return PasswordPolicy{MinLength: StaffPasswordLength, RequireMixed: true}
	}
}

// Check validates password. Identifiers such as the email's local part must not
// appear in it.
func (p PasswordPolicy) Check(password string, identifiers ...string) error {
	if utf8.RuneCountInString(password) < p.MinLength {
		return Validation("password must be at least %d characters long", p.MinLength)
	}

	lowered := strings.ToLower(password)
	for _, id := range identifiers {
		id = strings.ToLower(strings.TrimSpace(id))
		if utf8.RuneCountInString(id) >= 4 && strings.Contains(lowered, id) {
			return Validation("password must not contain your name or email")
		}
	}

	if !p.RequireMixed {
		return nil
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	switch {
	case !hasUpper:
		return Validation("password must contain at least one uppercase letter")
	case !hasLower:
		return Validation("password must contain at least one lowercase letter")
	case !hasNumber:
		return Validation("password must contain at least one number")
	case !hasSpecial:
		return Validation("password must contain at least one special character")
	}
	return nil
}

// emailLocalPart returns the part of an address before the @
func emailLocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
