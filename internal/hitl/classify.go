package hitl

import "strings"

var approvalWords = []string{
	"yes", "y", "approve", "approved", "ok", "okay", "confirm", "confirmed",
	"si", "sí", "aprobar", "apruebo", "dale", "confirmo",
}

var rejectionWords = []string{
	"no", "n", "reject", "rejected", "deny", "denied", "cancel", "cancelled",
	"niego", "rechazar", "rechazo", "cancelar",
}

// IsApproval reports whether text is a free-text or literal-command
// approval, per spec §6: "/approve... semantically equivalent to sending
// arbitrary text that the coordinator classifies as approval".
func IsApproval(text string) bool {
	if text == TimeoutSentinel {
		return false
	}
	return matchesAny(text, approvalWords) || normalize(text) == "/approve"
}

// IsRejection reports whether text is a free-text or literal-command
// rejection.
func IsRejection(text string) bool {
	return matchesAny(text, rejectionWords) || normalize(text) == "/reject"
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func matchesAny(text string, words []string) bool {
	norm := normalize(text)
	for _, w := range words {
		if norm == w {
			return true
		}
	}
	return false
}
