package mailer

import (
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"strings"
)

// Kind classifies a delivery failure
type Kind string

const (
	KindAuth           Kind = "AUTH"
	KindConnection     Kind = "CONNECTION"
	KindEnvelope       Kind = "ENVELOPE"
	KindTimeout        Kind = "TIMEOUT"
	KindNoConfig       Kind = "NO_CONFIG"
	KindInvalidAddress Kind = "INVALID_ADDRESS"
	KindUnknown        Kind = "UNKNOWN"
)

// DeliveryError is a classified mail failure. Kind drives the caller's
// handling, Hint is a human-readable pointer at the likely fix.
type DeliveryError struct {
	Kind Kind
	Hint string
	Err  error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mail delivery failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("mail delivery failed (%s): %s", e.Kind, e.Hint)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// classify maps a raw transport error onto the delivery taxonomy. SMTP reply
// codes are checked first, network-level failures after.
func classify(host string, err error) *DeliveryError {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		switch {
		case tpErr.Code == 530 || tpErr.Code == 534 || tpErr.Code == 535:
			return &DeliveryError{Kind: KindAuth, Hint: authHint(host), Err: err}
		case tpErr.Code == 501 || tpErr.Code == 550 || tpErr.Code == 551 || tpErr.Code == 553:
			return &DeliveryError{Kind: KindEnvelope, Hint: "the recipient address was rejected by the server", Err: err}
		case tpErr.Code >= 400 && tpErr.Code < 500:
			return &DeliveryError{Kind: KindConnection, Hint: "the server refused the message temporarily, try again later", Err: err}
		}
		return &DeliveryError{Kind: KindUnknown, Hint: "unexpected SMTP reply", Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &DeliveryError{Kind: KindTimeout, Hint: "the SMTP server did not respond in time", Err: err}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &DeliveryError{Kind: KindConnection, Hint: "could not reach the SMTP server", Err: err}
	}

	return &DeliveryError{Kind: KindUnknown, Hint: "unexpected delivery failure", Err: err}
}

// authHint tailors the credential-rejected hint for providers that require
// application-specific passwords.
func authHint(host string) string {
	h := strings.ToLower(host)
	switch {
	case strings.Contains(h, "gmail"):
		return "Gmail rejected the credentials; use an app password, not the account password"
	case strings.Contains(h, "office365") || strings.Contains(h, "outlook"):
		return "Outlook rejected the credentials; use an app password, not the account password"
	default:
		return "the SMTP server rejected the credentials"
	}
}
