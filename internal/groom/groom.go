// Package groom reshapes an OAuth token endpoint response into a smaller,
// human readable document.
//
// The transform is forward only: its output no longer carries the
// string-encoded issued_at/expires_in of the upstream response, so running
// it twice does not give the same result.
package groom

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// isoMillis matches JavaScript's Date.prototype.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z"

type upstream struct {
	AccessToken        json.RawMessage `json:"access_token"`
	IssuedAt           json.RawMessage `json:"issued_at"`
	ExpiresIn          json.RawMessage `json:"expires_in"`
	APIProductListJSON json.RawMessage `json:"api_product_list_json"`
}

// Response is the groomed token response. Field order is output order.
// IssuedAt is epoch milliseconds, ExpiresIn is seconds.
type Response struct {
	AccessToken json.RawMessage `json:"access_token"`
	IssuedAt    int64           `json:"issued_at"`
	ExpiresIn   int64           `json:"expires_in"`
	APIProducts json.RawMessage `json:"api_products,omitempty"`
	Issued      string          `json:"issued"`
	Expires     string          `json:"expires"`
}

// Groom rewrites body when it carries an access token and reports whether
// it did. Without one, body is returned as is.
func Groom(body []byte) ([]byte, bool, error) {
	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return nil, false, errors.New("token response is null")
	}

	var in upstream
	if err := json.Unmarshal(body, &in); err != nil {
		// Valid JSON that is not an object has no access token either.
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return body, false, nil
		}
		return nil, false, fmt.Errorf("failed to parse token response: %w", err)
	}
	if !truthy(in.AccessToken) {
		return body, false, nil
	}

	issuedAt, err := parseInt(in.IssuedAt)
	if err != nil {
		return nil, false, fmt.Errorf("invalid issued_at: %w", err)
	}
	expiresIn, err := parseInt(in.ExpiresIn)
	if err != nil {
		return nil, false, fmt.Errorf("invalid expires_in: %w", err)
	}

	out := Response{
		AccessToken: in.AccessToken,
		IssuedAt:    issuedAt,
		ExpiresIn:   expiresIn,
		APIProducts: in.APIProductListJSON,
		Issued:      formatMillis(issuedAt),
		Expires:     formatMillis(issuedAt + expiresIn*1000),
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, false, fmt.Errorf("failed to marshal groomed response: %w", err)
	}
	return buf.Bytes(), true, nil
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(isoMillis)
}

// truthy reports whether a JSON value would be truthy in JavaScript.
func truthy(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	default:
		return true
	}
}

var errNotANumber = errors.New("not a number")

// parseInt reads a JSON string or number the way parseInt(x, 10) would:
// leading whitespace and sign are accepted, parsing stops at the first
// non-digit, and at least one digit is required.
func parseInt(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, errNotANumber
	}

	var s string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
	case 'n', 't', 'f', '[', '{':
		return 0, fmt.Errorf("%w: %s", errNotANumber, raw)
	default:
		// Numbers are read through their shortest decimal form, so 1.7e12
		// is 1700000000000 and not 1.
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return 0, err
		}
		s = strconv.FormatFloat(f, 'f', -1, 64)
	}

	s = trimLeftSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, fmt.Errorf("%w: %q", errNotANumber, s)
	}
	return strconv.ParseInt(s[:end], 10, 64)
}

func trimLeftSpace(s string) string {
	for len(s) > 0 {
		switch s[0] {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			s = s[1:]
		default:
			return s
		}
	}
	return s
}
