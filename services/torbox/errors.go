package torbox

import (
	"errors"
	"fmt"
)

// FailureKind classifies why an operation produced no result.
type FailureKind string

const (
	// FailureCredentialMissing means no API key is configured; nothing
	// was sent over the network.
	FailureCredentialMissing FailureKind = "credential_missing"
	// FailureTransport covers connect failures, timeouts, and non-2xx
	// responses without a usable vendor payload.
	FailureTransport FailureKind = "transport"
	// FailureDecode means the payload was not well-formed JSON.
	FailureDecode FailureKind = "decode"
	// FailureRemoteRejection means TorBox answered with a well-formed
	// payload whose success flag was false or whose error/detail
	// fields were populated.
	FailureRemoteRejection FailureKind = "remote_rejection"
	// FailureNotReady means the job was absent from the listing, or
	// the listing call itself failed.
	FailureNotReady FailureKind = "not_ready"
	// FailureNoPlayableFiles means the pipeline ran to completion but
	// zero files could be exchanged for links.
	FailureNoPlayableFiles FailureKind = "no_playable_files"
)

// ResolveError is the classified outcome of a failed operation. The
// Message is user-visible; vendor-supplied text is surfaced verbatim
// when available.
type ResolveError struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (e *ResolveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ResolveError) Unwrap() error { return e.Err }

func failf(kind FailureKind, format string, args ...any) *ResolveError {
	return &ResolveError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapFailure(kind FailureKind, err error, message string) *ResolveError {
	return &ResolveError{Kind: kind, Message: message, Err: err}
}

// remoteFailure classifies a failed round trip. A non-2xx body that
// still decodes into a vendor envelope with a message becomes a
// RemoteRejection carrying that message; everything else keeps the
// caller's stage-appropriate kind.
func remoteFailure(kind FailureKind, body []byte, err error) *ResolveError {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && len(body) > 0 {
		if env, decErr := decodePayload[errorEnvelope](body); decErr == nil {
			if msg := firstNonEmpty(env.Message, env.Error, env.Detail); msg != "" {
				return &ResolveError{Kind: FailureRemoteRejection, Message: msg, Err: err}
			}
		}
	}
	return &ResolveError{Kind: kind, Message: "torbox call failed", Err: err}
}

// asResolveError returns err as a *ResolveError, wrapping it under
// fallback when it is not one already.
func asResolveError(err error, fallback FailureKind, message string) *ResolveError {
	var resolveErr *ResolveError
	if errors.As(err, &resolveErr) {
		return resolveErr
	}
	return wrapFailure(fallback, err, message)
}
