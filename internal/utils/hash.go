package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// ContentHash digests a roadmap title and content document into a stable hex
// string used for de-duplicating retried save requests. Map keys are ordered
// before hashing so two encodings of the same document always collide.
func ContentHash(title string, content interface{}) (string, error) {
	canonical, err := canonicalize(content)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write([]byte(title))
	h.Write([]byte{0})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ForkHash derives the digest stored on a forked copy. Salting with the
// source id keeps the fork out of the owner's dedup space: the same user can
// hold a fork and an identically-titled original side by side, while a second
// fork of the same source still collides.
func ForkHash(sourceID, contentHash string) string {
	h := sha256.New()
	h.Write([]byte("fork"))
	h.Write([]byte{0})
	h.Write([]byte(sourceID))
	h.Write([]byte{0})
	h.Write([]byte(contentHash))
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalize produces deterministic JSON: objects with sorted keys,
// arrays in order, scalars via encoding/json.
func canonicalize(v interface{}) ([]byte, error) {
	// Round-trip through encoding/json to reduce everything to
	// maps, slices, and scalars.
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return appendCanonical(nil, generic)
}

func appendCanonical(buf []byte, v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf = append(buf, '{')
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, _ := json.Marshal(k)
			buf = append(buf, kb...)
			buf = append(buf, ':')
			var err error
			buf, err = appendCanonical(buf, t[k])
			if err != nil {
				return nil, err
			}
		}
		return append(buf, '}'), nil
	case []interface{}:
		buf = append(buf, '[')
		for i, item := range t {
			if i > 0 {
				buf = append(buf, ',')
			}
			var err error
			buf, err = appendCanonical(buf, item)
			if err != nil {
				return nil, err
			}
		}
		return append(buf, ']'), nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("unencodable content value: %w", err)
		}
		return append(buf, b...), nil
	}
}
