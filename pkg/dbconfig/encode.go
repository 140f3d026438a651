package dbconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output formats understood by Encode.
const (
	FormatEnv  = "env"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var ErrUnknownFormat = errors.New("unknown output format")

// Encode writes s to w in the requested format. The env format emits
// shell-sourceable assignments using the same variable names the fallback
// path reads, so the output can be fed back into a later start.
func Encode(w io.Writer, format string, s Settings) error {
	switch strings.ToLower(format) {
	case "", FormatEnv:
		return encodeEnv(w, s)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(s)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func encodeEnv(w io.Writer, s Settings) error {
	pairs := []struct{ key, value string }{
		{"AWS_REGION", s.Region},
		{"DB_SECRET_ARN", s.SecretID},
		{"DB_HOST", s.Endpoint},
		{"DB_NAME", s.Database},
		{"DB_USER", s.Username},
		{"DB_PASSWORD", s.Password},
	}
	for _, p := range pairs {
		if _, err := fmt.Fprintf(w, "%s=%s\n", p.key, shellQuote(p.value)); err != nil {
			return err
		}
	}
	return nil
}

// shellQuote wraps v in single quotes, escaping embedded single quotes.
func shellQuote(v string) string {
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}
