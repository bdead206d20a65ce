package testutil

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"memberd/pkg/requestcontext"
)

// WithMemberID marks the request as authenticated for the given member,
// simulating what the auth middleware does after verifying credentials.
// Invalid UUIDs are silently ignored and the request stays anonymous.
func WithMemberID(req *http.Request, memberID string) *http.Request {
	id, err := uuid.Parse(memberID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithMemberID(req.Context(), id))
}

// WithRequestTime pins the request's logical clock so handlers and services
// compute dates deterministically.
func WithRequestTime(req *http.Request, at time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), at))
}
