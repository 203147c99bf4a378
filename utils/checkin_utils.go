package utils

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
)

// GenerateSecureToken returns length random bytes hex encoded.
func GenerateSecureToken(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("invalid token length")
	}
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// BuildWaiverLink prefills the waiver form with the order number, as
// {formURL}?typeA={order}&order={order}.
func BuildWaiverLink(formURL, orderNumber string) string {
	formURL = strings.TrimSpace(formURL)
	// Built by hand: url.Values.Encode would sort order before typeA.
	enc := "typeA=" + url.QueryEscape(orderNumber) + "&order=" + url.QueryEscape(orderNumber)
	sep := "?"
	if strings.Contains(formURL, "?") {
		sep = "&"
	}
	return formURL + sep + enc
}

// BuildLoginLink points at the dashboard sign-in page.
func BuildLoginLink(frontendURL string) string {
	if frontendURL == "" {
		frontendURL = "http://localhost:5173"
	}
	return strings.TrimRight(frontendURL, "/") + "/login"
}

// MaskEmail returns masked email for safe display
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}
	local := parts[0]
	domain := parts[1]

	maskedLocal := local
	if len(local) > 2 {
		maskedLocal = local[:1] + strings.Repeat("*", len(local)-2) + local[len(local)-1:]
	} else if len(local) == 2 {
		maskedLocal = local[:1] + "*"
	}

	domainParts := strings.Split(domain, ".")
	if len(domainParts) >= 2 {
		if len(domainParts[0]) > 1 {
			domainParts[0] = domainParts[0][:1] + strings.Repeat("*", len(domainParts[0])-1)
		}
	}

	return maskedLocal + "@" + strings.Join(domainParts, ".")
}
