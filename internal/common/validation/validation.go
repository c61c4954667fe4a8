// Package validation contains input validation helpers shared by the CLI
// and the Graph-facing packages.
package validation

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ValidateGUID validates that a string is a well-formed GUID
// (for example a tenant ID, client ID or application object ID).
func ValidateGUID(guid, fieldName string) error {
	guid = strings.TrimSpace(guid)
	if guid == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	if _, err := uuid.Parse(guid); err != nil {
		return fmt.Errorf("%s should be a GUID (format: 12345678-1234-1234-1234-123456789012): %w", fieldName, err)
	}
	return nil
}

// ValidateUPN performs basic user-principal-name format validation.
func ValidateUPN(upn, fieldName string) error {
	upn = strings.TrimSpace(upn)
	if upn == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	parts := strings.Split(upn, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("%s has invalid format: %s", fieldName, upn)
	}
	return nil
}

// MatchesWildcard reports whether value matches the shell-style pattern
// (supporting * and ?), case-insensitively. Patterns without wildcard
// characters degrade to a case-insensitive equality check, so malformed
// bracket expressions never silently match everything.
func MatchesWildcard(pattern, value string) bool {
	p := strings.ToLower(pattern)
	v := strings.ToLower(value)
	if !strings.ContainsAny(p, "*?[") {
		return p == v
	}
	ok, err := path.Match(p, v)
	if err != nil {
		return false
	}
	return ok
}
