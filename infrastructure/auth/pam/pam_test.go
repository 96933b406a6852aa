package pam

import (
	"testing"

	"github.com/msteinert/pam"
)

func TestConversationFunc_AnswersEchoOffWithPassword(t *testing.T) {
	conv := conversationFunc("hunter2")

	got, err := conv(pam.PromptEchoOff, "Password: ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hunter2" {
		t.Fatalf("got %q, want password", got)
	}
}

func TestConversationFunc_LeavesOtherStylesUnanswered(t *testing.T) {
	conv := conversationFunc("hunter2")

	for _, style := range []pam.Style{pam.PromptEchoOn, pam.ErrorMsg, pam.TextInfo} {
		got, err := conv(style, "some message")
		if err != nil {
			t.Fatalf("style %v: unexpected error: %v", style, err)
		}
		if got != "" {
			t.Fatalf("style %v: got %q, want empty response", style, got)
		}
	}
}
