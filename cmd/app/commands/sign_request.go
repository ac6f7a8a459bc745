package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	signingDomain "github.com/allisson/sentinel/internal/signing/domain"
	signingUseCase "github.com/allisson/sentinel/internal/signing/usecase"
)

// parseHeaders converts "Name: value" pairs into an http.Header.
func parseHeaders(pairs []string) (http.Header, error) {
	headers := make(http.Header, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q (expected \"Name: value\")", pair)
		}
		headers.Add(name, strings.TrimSpace(value))
	}
	return headers, nil
}

// RunSignRequest signs a request with the active signing key and prints the headers a
// client must attach. Useful for calling the signed API with curl.
func RunSignRequest(
	ctx context.Context,
	signer signingUseCase.Signer,
	writer io.Writer,
	method string,
	url string,
	body string,
	headerPairs []string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	headers, err := parseHeaders(headerPairs)
	if err != nil {
		return err
	}

	result, err := signer.Sign(ctx, signingDomain.SignInput{
		Method:  strings.ToUpper(method),
		URL:     url,
		Headers: headers,
		Body:    []byte(body),
	})
	if err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"key_id":    result.KeyID,
			"signature": result.Signature,
			"timestamp": result.Timestamp,
			"nonce":     result.Nonce,
			"headers":   result.Headers,
		})
	}

	names := make([]string, 0, len(result.Headers))
	for name := range result.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(writer, "%s: %s\n", name, result.Headers[name])
	}
	return nil
}
