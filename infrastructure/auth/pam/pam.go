// Package pam implements application.Authenticator against the local PAM
// stack via github.com/msteinert/pam, following that library's own
// documented StartFunc/Authenticate/AcctMgmt/End conversation flow.
package pam

import (
	"fmt"

	"github.com/msteinert/pam"

	"rush/application"
	"rush/domain/protocol"
)

// ServiceName is the PAM service rush authenticates against: the system's
// "login" stack. No dedicated rush policy is looked up.
const ServiceName = "login"

// Authenticator implements application.Authenticator using the system PAM
// stack. One Authenticator may be reused across many Authenticate calls;
// each call opens and tears down its own PAM transaction.
type Authenticator struct{}

func NewAuthenticator() Authenticator { return Authenticator{} }

// Authenticate runs a non-interactive PAM conversation for username,
// answering every PAM_PROMPT_ECHO_OFF prompt with password and every other
// message (PAM_PROMPT_ECHO_ON, PAM_ERROR_MSG, PAM_TEXT_INFO) with an empty
// response, matching the "password-only" conversation a remote shell login
// expects.
func (Authenticator) Authenticate(username, password string) error {
	tx, err := pam.StartFunc(ServiceName, username, conversationFunc(password))
	if err != nil {
		return authErr("start transaction for %q: %w", username, err)
	}
	defer tx.End()

	if err := tx.Authenticate(0); err != nil {
		return authErr("authenticate %q: %w", username, err)
	}
	if err := tx.AcctMgmt(0); err != nil {
		return authErr("account management for %q: %w", username, err)
	}
	return nil
}

// conversationFunc answers a PAM conversation with password for every
// PAM_PROMPT_ECHO_OFF message (the password prompt), leaves
// PAM_PROMPT_ECHO_ON, PAM_ERROR_MSG and PAM_TEXT_INFO unanswered (empty
// response), and returns an error for any other style.
func conversationFunc(password string) func(pam.Style, string) (string, error) {
	return func(style pam.Style, _ string) (string, error) {
		switch style {
		case pam.PromptEchoOff:
			return password, nil
		case pam.PromptEchoOn, pam.ErrorMsg, pam.TextInfo:
			return "", nil
		default:
			return "", fmt.Errorf("unsupported PAM conversation style %v", style)
		}
	}
}

var _ application.Authenticator = Authenticator{}

func authErr(format string, args ...any) error {
	return protocol.NewTunnelError(protocol.KindAuthFailure, fmt.Errorf(format, args...))
}
