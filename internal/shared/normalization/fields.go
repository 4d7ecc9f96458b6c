package normalization

import "strings"

// Field returns the first present value among the given keys. Keys are
// matched exactly first, then case-insensitively, so backends that emit
// "_id", "ID" or "shelterId" resolve to the same field.
func Field(record map[string]any, keys ...string) (any, bool) {
	if len(record) == 0 {
		return nil, false
	}
	for _, key := range keys {
		if value, ok := record[key]; ok && value != nil {
			return value, true
		}
	}
	for recordKey, value := range record {
		if value == nil {
			continue
		}
		for _, key := range keys {
			if strings.EqualFold(recordKey, key) {
				return value, true
			}
		}
	}
	return nil, false
}

// StringField is Field followed by AsString.
func StringField(record map[string]any, keys ...string) string {
	value, ok := Field(record, keys...)
	if !ok {
		return ""
	}
	return AsString(value)
}

// FirstNonEmpty returns the first value that is not blank.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
