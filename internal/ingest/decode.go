package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/goccy/go-json"
)

var errPayload = errors.New("unrecognised payload")

// sheet is the range export shape: the first row holds headers.
type sheet struct {
	Values [][]any           `json:"values"`
	Data   []json.RawMessage `json:"data"`
}

// decodeRecords accepts either a JSON array of objects, an object wrapping
// that array under "data", or a sheet range under "values".
func decodeRecords[T any](body []byte) ([]T, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", errPayload)
	}
	var out []T
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		return out, nil
	case '{':
		var s sheet
		if err := json.Unmarshal(body, &s); err != nil {
			return nil, fmt.Errorf("decode envelope: %w", err)
		}
		if s.Data != nil {
			out = make([]T, 0, len(s.Data))
			for i, raw := range s.Data {
				var rec T
				if err := json.Unmarshal(raw, &rec); err != nil {
					return nil, fmt.Errorf("decode record %d: %w", i, err)
				}
				out = append(out, rec)
			}
			return out, nil
		}
		if s.Values != nil {
			return decodeRows[T](s.Values)
		}
	}
	return nil, errPayload
}

// decodeRows maps each row onto the header row and decodes it as an object.
// Headers are matched to JSON fields ignoring case, spaces and punctuation.
func decodeRows[T any](values [][]any) ([]T, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := make([]string, len(values[0]))
	for i, h := range values[0] {
		headers[i] = normalizeHeader(cellString(h))
	}
	out := make([]T, 0, len(values)-1)
	for n, row := range values[1:] {
		obj := make(map[string]string, len(headers))
		blank := true
		for i, h := range headers {
			if h == "" || i >= len(row) {
				continue
			}
			v := cellString(row[i])
			if v != "" {
				blank = false
			}
			obj[h] = v
		}
		if blank {
			continue
		}
		b, err := json.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("encode row %d: %w", n+1, err)
		}
		var rec T
		if err := json.Unmarshal(b, &rec); err != nil {
			return nil, fmt.Errorf("decode row %d: %w", n+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// normalizeHeader turns "Member ID" into "memberid", which matches the
// memberId field since decoding ignores case.
func normalizeHeader(h string) string {
	var b strings.Builder
	for _, r := range h {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
