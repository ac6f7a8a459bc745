// Package service builds the canonical request string, computes HMAC-SHA256
// signatures over it and inspects requests for suspicious content.
package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/allisson/sentinel/internal/errors"
	signingDomain "github.com/allisson/sentinel/internal/signing/domain"
)

// CanonicalRequest builds the newline-separated string both signer and verifier MAC:
//
//	METHOD
//	/path?sorted-query
//	name:value;name:value  (allow-listed headers, lower-cased, sorted)
//	hex(sha256(body))      (empty when there is no body)
//	timestamp (epoch ms)
//	nonce
func CanonicalRequest(
	method, rawURL string,
	headers http.Header,
	body []byte,
	timestamp int64,
	nonce string,
) (string, error) {
	canonicalURL, err := canonicalURL(rawURL)
	if err != nil {
		return "", err
	}

	parts := []string{
		strings.ToUpper(method),
		canonicalURL,
		canonicalHeaders(headers),
		BodyHash(body),
		strconv.FormatInt(timestamp, 10),
		nonce,
	}
	return strings.Join(parts, "\n"), nil
}

// canonicalURL keeps the escaped path and sorts query parameters by key, then value.
func canonicalURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInvalidInput, "invalid request url")
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}

	// Pairs url.Query would silently drop (semicolons, bad escapes) must not
	// escape the signature, so the whole query is rejected instead.
	query, err := url.ParseQuery(parsed.RawQuery)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInvalidInput, "invalid request query")
	}
	if len(query) == 0 {
		return path, nil
	}

	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		values := append([]string(nil), query[key]...)
		sort.Strings(values)
		for _, value := range values {
			pairs = append(pairs, url.QueryEscape(key)+"="+url.QueryEscape(value))
		}
	}
	return path + "?" + strings.Join(pairs, "&"), nil
}

// canonicalHeaders folds the allow-listed headers present on the request.
func canonicalHeaders(headers http.Header) string {
	pairs := make([]string, 0, len(signingDomain.SignedHeaders))
	for _, name := range signingDomain.SignedHeaders {
		if signingDomain.IsSignatureHeader(name) {
			continue
		}
		values := headers.Values(name)
		if len(values) == 0 {
			continue
		}
		pairs = append(pairs, name+":"+strings.TrimSpace(strings.Join(values, ",")))
	}
	return strings.Join(pairs, ";")
}

// BodyHash returns the hex SHA-256 of body, or "" when body is empty.
func BodyHash(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// ComputeSignature returns the base64 HMAC-SHA256 of canonical keyed with key.
func ComputeSignature(key []byte, canonical string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(canonical))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// SignatureMatches compares a provided base64 signature against the expected MAC
// in constant time. Malformed input never matches.
func SignatureMatches(key []byte, canonical, provided string) bool {
	providedRaw, err := base64.StdEncoding.DecodeString(provided)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(canonical))
	return hmac.Equal(providedRaw, mac.Sum(nil))
}
