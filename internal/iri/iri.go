// Package iri converts internationalized resource identifiers to plain
// ASCII URIs.
package iri

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/net/idna"
	"golang.org/x/text/unicode/norm"
)

// ErrInvalidURL is returned when a value cannot be turned into a URI.
var ErrInvalidURL = errors.New("invalid url")

// ToURI normalizes raw into an ASCII URI: the host is IDNA encoded and every
// other component is percent-encoded. When raw does not parse, the part
// before the first whitespace is tried instead.
func ToURI(raw string) (string, error) {
	s := norm.NFC.String(strings.TrimSpace(raw))
	if s == "" {
		return "", ErrInvalidURL
	}
	if uri, err := convert(s); err == nil {
		return uri, nil
	}
	if i := strings.IndexFunc(s, unicode.IsSpace); i > 0 {
		if uri, err := convert(s[:i]); err == nil {
			return uri, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
}

func convert(s string) (string, error) {
	u, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	if u.Host != "" {
		host, port := u.Hostname(), u.Port()
		if !isASCII(host) {
			if host, err = idna.Lookup.ToASCII(host); err != nil {
				return "", err
			}
		}
		if port != "" {
			host = net.JoinHostPort(host, port)
		}
		u.Host = host
	}
	u.RawQuery = quote(u.RawQuery)
	return u.String(), nil
}

const hexDigits = "0123456789ABCDEF"

// quote percent-encodes bytes outside printable ASCII, leaving existing
// escapes and reserved characters alone.
func quote(s string) string {
	if isPrintableASCII(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c > ' ' && c < 0x7f {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0f])
	}
	return b.String()
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] <= ' ' || s[i] >= 0x7f {
			return false
		}
	}
	return true
}
