// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package registry

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// IdentifierType classifies an input identifier.
type IdentifierType int

const (
	TypeUnknown IdentifierType = iota
	TypeURL
	TypePath
)

func (t IdentifierType) String() string {
	switch t {
	case TypeURL:
		return "url"
	case TypePath:
		return "path"
	default:
		return "unknown"
	}
}

// Classify determines whether an identifier is a fetchable URL or a local
// file path, and returns the normalized form.
func Classify(identifier string) (IdentifierType, string) {
	identifier = strings.TrimSpace(identifier)

	if u, err := url.Parse(identifier); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return TypeURL, identifier
	}

	if _, err := os.Stat(identifier); err == nil {
		return TypePath, identifier
	}

	return TypeUnknown, identifier
}

// Slug returns a filesystem-safe filename stem for the identifier.
func Slug(idType IdentifierType, normalized string) string {
	switch idType {
	case TypeURL:
		u, err := url.Parse(normalized)
		if err != nil {
			return urlHashSlug(normalized)
		}
		base := strings.TrimSuffix(filepath.Base(u.Path), filepath.Ext(u.Path))
		if base == "" || base == "." || base == "/" {
			return urlHashSlug(normalized)
		}
		return base
	case TypePath:
		base := filepath.Base(normalized)
		return strings.TrimSuffix(base, filepath.Ext(base))
	default:
		return "unknown"
	}
}

func urlHashSlug(rawURL string) string {
	h := sha256.Sum256([]byte(rawURL))
	return fmt.Sprintf("url-%x", h[:8])
}
