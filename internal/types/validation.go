package types

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidArgument is wrapped by every client-side validation failure.
var ErrInvalidArgument = errors.New("invalid argument")

// ValidateNoteID rejects ids the backend can never have issued.
func ValidateNoteID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: note id must be positive, got %d", ErrInvalidArgument, id)
	}
	return nil
}

// ValidateSourceURL checks that a link is present and parses as an absolute URL.
// Whether it points at a supported video host is left to the server.
func ValidateSourceURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: source url is required", ErrInvalidArgument)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: source url %q is not an absolute url", ErrInvalidArgument, raw)
	}
	return nil
}

// ValidateCredentials checks login input presence.
func ValidateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidArgument)
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidArgument)
	}
	return nil
}
