package service

import (
	"errors"
)

// FailureKind classifies why a request could not be served.
type FailureKind int

const (
	// FailureBadRequest means required input was missing.
	FailureBadRequest FailureKind = iota + 1
	// FailureNotFound means the conversation does not exist or belongs to someone else.
	FailureNotFound
	// FailureUpstream means the provider call failed or yielded no reply.
	FailureUpstream
)

func (k FailureKind) String() string {
	switch k {
	case FailureBadRequest:
		return "bad_request"
	case FailureNotFound:
		return "not_found"
	case FailureUpstream:
		return "upstream_failure"
	default:
		return "unknown"
	}
}

// Messages shown to callers. Upstream failures share one message whatever the cause.
const (
	msgNoMessages           = "No messages provided"
	msgNoMessage            = "No message provided"
	msgConversationNotFound = "conversation not found"
	msgGenerationFailed     = "failed to generate reply"
)

// Failure is the error half of every service result. Message is safe to
// show to callers; Err keeps the underlying cause for logs.
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return f.Message + ": " + f.Err.Error()
	}
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// AsFailure reports whether err carries a *Failure.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func badRequest(message string) *Failure {
	return &Failure{Kind: FailureBadRequest, Message: message}
}

func notFound(err error) *Failure {
	return &Failure{Kind: FailureNotFound, Message: msgConversationNotFound, Err: err}
}

func upstreamFailure(err error) *Failure {
	return &Failure{Kind: FailureUpstream, Message: msgGenerationFailed, Err: err}
}
