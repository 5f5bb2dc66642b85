package helper

import (
	"fmt"
	"net/url"
	"strings"
)

// SerialFromKey extracts the device serial from an evidence object
// key, shaped raw/<tenant>/<serial>/<id>.txt. S3 event notifications
// deliver keys URL-encoded.
func SerialFromKey(key string) (string, error) {
	decoded, err := url.QueryUnescape(key)
	if err != nil {
		decoded = key
	}

	parts := strings.Split(decoded, "/")
	if len(parts) != 4 || parts[0] != "raw" || parts[2] == "" {
		return "", fmt.Errorf("unexpected evidence key %q", key)
	}
	return parts[2], nil
}
