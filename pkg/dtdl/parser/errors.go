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

package parser

import "errors"

// Error kinds surfaced by Parse. Every parse failure wraps exactly one of
// these sentinels, so callers can distinguish author errors from I/O errors
// with errors.Is without matching message text.
var (
	// ErrInvalidJSON marks input that is not parseable JSON.
	ErrInvalidJSON = errors.New("document is not valid JSON")
	// ErrContextUnavailable marks a registered context file that cannot be
	// read or parsed.
	ErrContextUnavailable = errors.New("context unavailable")
	// ErrExpansion marks a JSON-LD expansion failure.
	ErrExpansion = errors.New("JSON-LD expansion failed")
	// ErrMissingProperty marks a node lacking a required DTDL property.
	ErrMissingProperty = errors.New("required property missing")
	// ErrInvalidDTMI marks a malformed model identifier.
	ErrInvalidDTMI = errors.New("invalid DTMI")
	// ErrUnresolvedReference marks a schema or interface reference that does
	// not resolve against the dictionary.
	ErrUnresolvedReference = errors.New("unresolved reference")
	// ErrUnrecognizedKind marks a node whose @type set contains no known
	// DTDL metaclass.
	ErrUnrecognizedKind = errors.New("unrecognized entity kind")
)
