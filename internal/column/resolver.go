// Package column picks the worksheet column that holds image links.
package column

import (
	"errors"
	"strings"
)

// ErrAmbiguous means no header looked like an image column and no override
// was supplied; the caller has to ask the user which column to use.
var ErrAmbiguous = errors.New("no column containing image links found")

// keywords are tried in priority order, each with its own left-to-right scan.
var keywords = []string{"image", "background"}

// Resolve returns the first header containing "image" (case-insensitive),
// else the first containing "background", else override when non-empty.
// Only header text is inspected; override is returned unchecked.
func Resolve(columns []string, override string) (string, error) {
	for _, kw := range keywords {
		for _, col := range columns {
			if strings.Contains(strings.ToLower(col), kw) {
				return col, nil
			}
		}
	}

	if override != "" {
		return override, nil
	}
	return "", ErrAmbiguous
}
