/*
 * This file is part of Sona (https://github.com/sonalabs/sona).
 * Copyright (C) 2026 Sona Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package rag

import (
	"errors"
	"fmt"
)

// ErrorKind classifies RAG query failures. Each kind maps to one spoken
// fallback and one log outcome; none of them is retried automatically.
type ErrorKind string

const (
	// KindTimeout - the call exceeded the configured timeout
	KindTimeout ErrorKind = "timeout"
	// KindUnreachable - transport failure (connection refused, DNS)
	KindUnreachable ErrorKind = "unreachable"
	// KindRemoteRejected - the endpoint answered with a non-success status
	KindRemoteRejected ErrorKind = "remote_rejected"
	// KindMalformed - the response body misses the expected answer field
	KindMalformed ErrorKind = "malformed_response"
)

// QueryError describes a failed RAG query
type QueryError struct {
	Kind       ErrorKind
	StatusCode int // Set for KindRemoteRejected
	Err        error
}

func (e *QueryError) Error() string {
	switch e.Kind {
	case KindRemoteRejected:
		return fmt.Sprintf("rag: remote rejected request with status %d", e.StatusCode)
	default:
		if e.Err != nil {
			return fmt.Sprintf("rag: %s: %v", e.Kind, e.Err)
		}
		return fmt.Sprintf("rag: %s", e.Kind)
	}
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// KindOf returns the error kind of a failed query, or an empty kind for
// errors that did not originate from the client.
func KindOf(err error) ErrorKind {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return ""
}
