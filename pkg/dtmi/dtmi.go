/*******************************************************************************
* Copyright (C) 2026 the Eclipse Ibeji Authors
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

// Package dtmi implements parsing, validation and comparison of Digital Twin
// Model Identifiers (DTMI), the versioned IRI-like identifier scheme used
// throughout DTDL. A Dtmi is an immutable value type: it is constructed only
// through Parse, which rejects malformed input, and is never mutated afterwards.
package dtmi

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// dtmiPattern captures the three structural parts of a DTMI: the colon
// separated path, the optional ";major[.minor]" version suffix and the
// optional "#fragment".
var dtmiPattern = regexp.MustCompile(`^dtmi:(?P<path>[^;#]+)(?:;(?P<version>[0-9.]+))?(?:#(?P<fragment>.*))?$`)

// labelPattern validates a single path segment. Segments start with a letter
// or underscore and never end in an underscore.
var labelPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// versionSegmentPattern enforces the no-leading-zero rule on version numbers.
var versionSegmentPattern = regexp.MustCompile(`^[1-9][0-9]*$`)

// noVersion marks an absent major or minor version component.
const noVersion = -1

// Dtmi is a parsed Digital Twin Model Identifier.
//
// Two Dtmi values are equal iff their underlying identifier strings are
// equal; all other fields are derived from the identifier during Parse.
type Dtmi struct {
	value        string
	majorVersion int64
	minorVersion int64
	versionless  string
	labels       []string
	absolutePath string
	fragment     string
}

// Parse validates text against the DTMI grammar and returns the parsed
// identifier. It returns a descriptive error when the scheme is missing, the
// path is empty or contains invalid labels, the version suffix has more than
// two dot separated parts, or a version component is not an unsigned integer
// without leading zeros.
func Parse(text string) (Dtmi, error) {
	match := dtmiPattern.FindStringSubmatch(text)
	if match == nil {
		return Dtmi{}, fmt.Errorf("invalid DTMI %q: does not match dtmi:<path>(;major[.minor])?(#fragment)?", text)
	}

	path := match[dtmiPattern.SubexpIndex("path")]
	version := match[dtmiPattern.SubexpIndex("version")]
	fragment := match[dtmiPattern.SubexpIndex("fragment")]

	labels := strings.Split(path, ":")
	for _, label := range labels {
		if !labelPattern.MatchString(label) {
			return Dtmi{}, fmt.Errorf("invalid DTMI %q: path segment %q is not a valid label", text, label)
		}
	}

	major := int64(noVersion)
	minor := int64(noVersion)
	if version != "" {
		parts := strings.Split(version, ".")
		if len(parts) > 2 {
			return Dtmi{}, fmt.Errorf("invalid DTMI %q: version %q has more than two parts", text, version)
		}
		var err error
		if major, err = parseVersionSegment(parts[0]); err != nil {
			return Dtmi{}, fmt.Errorf("invalid DTMI %q: %w", text, err)
		}
		if len(parts) == 2 {
			if minor, err = parseVersionSegment(parts[1]); err != nil {
				return Dtmi{}, fmt.Errorf("invalid DTMI %q: %w", text, err)
			}
		}
	}

	absolutePath := "dtmi:" + path
	if version != "" {
		absolutePath += ";" + version
	}

	return Dtmi{
		value:        text,
		majorVersion: major,
		minorVersion: minor,
		versionless:  "dtmi:" + path,
		labels:       labels,
		absolutePath: absolutePath,
		fragment:     fragment,
	}, nil
}

func parseVersionSegment(segment string) (int64, error) {
	if !versionSegmentPattern.MatchString(segment) {
		return noVersion, fmt.Errorf("version segment %q is not an unsigned integer without leading zeros", segment)
	}
	n, err := strconv.ParseUint(segment, 10, 32)
	if err != nil {
		return noVersion, fmt.Errorf("version segment %q: %w", segment, err)
	}
	return int64(n), nil
}

// MustParse is Parse for identifiers known to be valid, such as the canonical
// DTDL metaclass ids. It panics on malformed input and is intended for
// package level constants and tests only.
func MustParse(text string) Dtmi {
	id, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return id
}

// Value returns the original identifier string.
func (d Dtmi) Value() string { return d.value }

// String returns the original identifier string.
func (d Dtmi) String() string { return d.value }

// IsZero reports whether d is the zero Dtmi, i.e. not produced by Parse.
func (d Dtmi) IsZero() bool { return d.value == "" }

// MajorVersion returns the major version and whether one was present.
func (d Dtmi) MajorVersion() (uint, bool) {
	if d.majorVersion == noVersion {
		return 0, false
	}
	return uint(d.majorVersion), true
}

// MinorVersion returns the minor version and whether one was present.
func (d Dtmi) MinorVersion() (uint, bool) {
	if d.minorVersion == noVersion {
		return 0, false
	}
	return uint(d.minorVersion), true
}

// Versionless returns the identifier without its version suffix and fragment.
func (d Dtmi) Versionless() string { return d.versionless }

// Labels returns the colon separated path segments in order. The returned
// slice must not be modified.
func (d Dtmi) Labels() []string { return d.labels }

// AbsolutePath returns the identifier without its fragment.
func (d Dtmi) AbsolutePath() string { return d.absolutePath }

// Fragment returns the fragment part, or the empty string when absent.
func (d Dtmi) Fragment() string { return d.fragment }

// CompleteVersion combines major and minor versions into a single numeric
// measure that totally orders versions: major + minor*1e-6. Minor versions at
// or above 1,000,000 do not round-trip exactly through this measure; that is
// a documented precision ceiling of the scheme, not a defect.
func (d Dtmi) CompleteVersion() float64 {
	v := 0.0
	if d.majorVersion != noVersion {
		v += float64(d.majorVersion)
	}
	if d.minorVersion != noVersion {
		v += float64(d.minorVersion) / 1e6
	}
	return v
}

// Equal reports whether two identifiers are the same DTMI. Equality is
// structural over the identifier string.
func (d Dtmi) Equal(other Dtmi) bool { return d.value == other.value }

// MarshalJSON encodes the identifier as its string form.
func (d Dtmi) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.value)
}

// UnmarshalJSON decodes and re-validates an identifier from its string form.
func (d *Dtmi) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	parsed, err := Parse(text)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
