// Package ident derives stable clip identifiers from video URLs and from
// processed audio file names.
package ident

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrUnresolvableIdentifier indicates no identifier could be derived from the input.
var ErrUnresolvableIdentifier = errors.New("unresolvable identifier")

// FilenameIDLen is the length of the identifier that prefixes processed file names.
const FilenameIDLen = 11

// shortLinkHost is the host of the short-link URL form (https://youtu.be/<id>).
const shortLinkHost = "youtu.be"

// idCharsRe matches the character set of a filename identifier.
var idCharsRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// FromURL extracts the identifier from a video URL.
//
// Shapes are tried in order: short link (youtu.be/<id>), query parameter
// (?v=<id>), then shorts path (/shorts/<id>).
func FromURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty url", ErrUnresolvableIdentifier)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrUnresolvableIdentifier, raw, err)
	}

	parts := pathParts(u.Path)

	if strings.Contains(strings.ToLower(u.Host), shortLinkHost) && len(parts) > 0 {
		if id := strings.TrimSpace(parts[0]); id != "" {
			return id, nil
		}
	}

	if v := strings.TrimSpace(u.Query().Get("v")); v != "" {
		return v, nil
	}

	if len(parts) >= 2 && parts[0] == "shorts" {
		if id := strings.TrimSpace(parts[1]); id != "" {
			return id, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnresolvableIdentifier, raw)
}

// FromFilename extracts the fixed-length identifier that prefixes a processed
// file name such as "dQw4w9WgXcQ_Deputy Name - Topic.wav". A single leading
// underscore left by the downloader is skipped.
func FromFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "_")
	if len(name) < FilenameIDLen {
		return "", fmt.Errorf("%w: %q shorter than %d characters", ErrUnresolvableIdentifier, name, FilenameIDLen)
	}

	id := name[:FilenameIDLen]
	if !idCharsRe.MatchString(id) {
		return "", fmt.Errorf("%w: %q has no leading identifier", ErrUnresolvableIdentifier, name)
	}
	return id, nil
}

// pathParts splits a URL path into its non-empty elements.
func pathParts(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
