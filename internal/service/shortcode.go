package service

import (
	"crypto/rand"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// codeAlphabet leaves out 0, 1, i, l and o, which are easy to misread.
const codeAlphabet = "23456789abcdefghjkmnpqrstuvwxyz"

// maxURLLength is the longest destination accepted.
const maxURLLength = 2048

var (
	customCodePattern = regexp.MustCompile(`^[a-z0-9_-]{3,20}$`)
	lookupCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

// reservedCodes collide with routes or would be confusing as links.
var reservedCodes = map[string]struct{}{
	"api": {}, "auth": {}, "dashboard": {}, "admin": {}, "login": {},
	"logout": {}, "signin": {}, "signup": {}, "register": {}, "settings": {},
	"health": {}, "ready": {}, "live": {}, "static": {}, "assets": {},
	"expired": {}, "limit-reached": {}, "not-found": {}, "error": {},
	"www": {}, "app": {}, "qr": {},
}

// generateCode returns length characters drawn uniformly from codeAlphabet.
func generateCode(length int) (string, error) {
	// Bytes at or above limit are rejected so every symbol is equally likely.
	const limit = 256 - 256%len(codeAlphabet)

	code := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for len(code) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			code = append(code, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(code) == length {
				break
			}
		}
	}
	return string(code), nil
}

// NormalizeCustomCode trims a requested code and checks it against the
// allowed pattern and the reserved words. Upper-case input is rejected,
// not folded.
func NormalizeCustomCode(raw string) (string, error) {
	code := strings.TrimSpace(raw)
	if !customCodePattern.MatchString(code) {
		return "", ErrInvalidCode
	}
	if _, reserved := reservedCodes[code]; reserved {
		return "", ErrReservedCode
	}
	return code, nil
}

// validLookupCode filters out paths that cannot be a stored code before
// they reach storage.
func validLookupCode(code string) bool {
	return lookupCodePattern.MatchString(code)
}

// NormalizeURL turns user input into an absolute http(s) URL. Input
// without a scheme gets https:// prepended.
func NormalizeURL(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" || len(candidate) > maxURLLength {
		return "", ErrInvalidURL
	}

	lower := strings.ToLower(candidate)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		if strings.Contains(candidate, "://") {
			return "", ErrInvalidURL
		}
		candidate = "https://" + candidate
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", ErrInvalidURL
	}
	host := parsed.Hostname()
	if host == "" || strings.ContainsAny(host, " \t") {
		return "", ErrInvalidURL
	}
	if !strings.Contains(host, ".") && host != "localhost" && !strings.Contains(host, ":") {
		return "", ErrInvalidURL
	}
	if parsed.User != nil {
		return "", ErrInvalidURL
	}

	return parsed.String(), nil
}
