package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/fatih/color"
	"github.com/golang-jwt/jwt/v5"

	"entrareport/internal/common/security"
)

// TokenClaims holds the claims this tool displays from Entra ID JWT tokens.
type TokenClaims struct {
	AppDisplayName       string   `json:"app_displayname"`
	Roles                []string `json:"roles"`
	jwt.RegisteredClaims          // exp, iss, and friends
}

// printTokenInfo displays token metadata and selected JWT claims. The token
// itself is always masked.
func printTokenInfo(token azcore.AccessToken) {
	fmt.Println()
	fmt.Println("Token Information:")
	fmt.Println("------------------")
	fmt.Printf("Expires at: %s\n", token.ExpiresOn.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Valid for: %s\n", time.Until(token.ExpiresOn).Round(time.Second))
	fmt.Printf("Token (masked): %s\n", security.MaskAccessToken(token.Token))

	fmt.Println()
	fmt.Println("JWT Claims:")
	appName, roles, err := parseTokenClaims(token.Token)
	if err != nil {
		fmt.Printf("  (Could not parse JWT claims: %v)\n", err)
	} else {
		fmt.Printf("  Application Name: %s\n", appName)
		fmt.Printf("  Assigned Roles: %s\n", roles)
	}
	fmt.Println()
}

// parseTokenClaims extracts the application name and assigned roles from an
// access token. The token is parsed without verification; the Azure SDK
// already validated it.
func parseTokenClaims(tokenString string) (string, string, error) {
	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, &TokenClaims{})
	if err != nil {
		return "", "", fmt.Errorf("failed to parse JWT: %w", err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok {
		return "", "", fmt.Errorf("failed to extract claims from token")
	}

	appName := claims.AppDisplayName
	if appName == "" {
		appName = "(not available)"
	}

	rolesStr := "(none)"
	if len(claims.Roles) > 0 {
		rolesStr = strings.Join(claims.Roles, ", ")
	}

	return appName, rolesStr, nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// confirmPrompt asks a yes/no question on the terminal and returns the
// answer. Anything other than y/yes declines.
func confirmPrompt(question string) bool {
	color.New(color.FgYellow).Printf("%s [y/N]: ", question)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// joinNames renders a name list for text output.
func joinNames(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}

func formatTimePtr(t *time.Time, layout string) string {
	if t == nil {
		return ""
	}
	return t.Format(layout)
}
