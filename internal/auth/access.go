package auth

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

// accessChars avoids look-alikes (no O/0/I/1/L)
const accessChars = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// GenerateAccessCode creates a readable judge access code in the form
// XXXX-XXXX from the given random source
func GenerateAccessCode(r io.Reader) (string, error) {
	buf := make([]byte, 8)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("failed to generate access code: %w", err)
	}
	code := make([]byte, len(buf))
	for i, b := range buf {
		code[i] = accessChars[int(b)%len(accessChars)]
	}
	return fmt.Sprintf("%s-%s", code[:4], code[4:]), nil
}

// LoginURL returns the judge login link for an access code
func LoginURL(baseURL, code string) string {
	return fmt.Sprintf("%s/judge/login?code=%s", strings.TrimSuffix(baseURL, "/"), url.QueryEscape(code))
}

// LoginQR renders the judge login link as a PNG QR code
func LoginQR(baseURL, code string) ([]byte, error) {
	return qrcode.Encode(LoginURL(baseURL, code), qrcode.Medium, 256)
}
