package secrets

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Credentials are the optional fields of a database credential payload.
// A nil field means the key was absent or null.
type Credentials struct {
	Username *string
	Password *string
	DBName   *string
}

// DecodeCredentials parses a JSON object payload such as the ones RDS
// managed secrets carry. Scalar non-string values are stringified.
func DecodeCredentials(payload string) (Credentials, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if fields == nil {
		return Credentials{}, ErrMalformedPayload
	}

	var creds Credentials
	var err error
	if creds.Username, err = field(fields, "username"); err != nil {
		return Credentials{}, err
	}
	if creds.Password, err = field(fields, "password"); err != nil {
		return Credentials{}, err
	}
	if creds.DBName, err = field(fields, "dbname"); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

func field(fields map[string]any, key string) (*string, error) {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return nil, nil
	}

	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(v)
	default:
		return nil, fmt.Errorf("%w: key %q holds a %T", ErrMalformedPayload, key, raw)
	}
	return &s, nil
}

// StringOr returns *p, or fallback when p is nil.
func StringOr(p *string, fallback string) string {
	if p == nil {
		return fallback
	}
	return *p
}
