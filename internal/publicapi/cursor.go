package publicapi

import (
	"encoding/base64"
	"fmt"
	"strconv"
)

// encodeCursor builds an opaque pagination token from an int64 position —
// a candle timestamp for /candles, an alert id for /alerts. The caller
// never needs to know it's base64(n), only that passing it back resumes
// from that point.
func encodeCursor(before int64) string {
	raw := strconv.FormatInt(before, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("invalid cursor: %w", err)
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid cursor: %w", err)
	}
	return ms, nil
}
