package dispatcher

import (
	"context"
	"strings"

	"github.com/relaymind/conduit/internal/repository"
)

// handleCommand dispatches the small set of slash commands the core
// understands directly (spec §6, "User commands relevant to the core").
// Anything else is a no-op reply, since unknown commands aren't this
// package's concern (a higher-level command registry may own them).
func (d *Dispatcher) handleCommand(ctx context.Context, handle, text string) error {
	cmd := strings.ToLower(strings.Fields(strings.TrimSpace(text))[0])

	switch cmd {
	case "/cancel":
		if d.sessions == nil {
			return nil
		}
		err := d.sessions.CancelSession(ctx, handle)
		if err != nil && err != repository.ErrNotFound {
			return err
		}
		if err == repository.ErrNotFound {
			_, sendErr := d.messaging.SendMessage(ctx, handle, "No active session to cancel.")
			return sendErr
		}
		_, sendErr := d.messaging.SendMessage(ctx, handle, "Session cancelled.")
		return sendErr

	case "/approve":
		if d.hitlCoord.Resolve(handle, "approve") {
			return nil
		}
		_, sendErr := d.messaging.SendMessage(ctx, handle, "Nothing pending to approve.")
		return sendErr

	case "/reject":
		if d.hitlCoord.Resolve(handle, "reject") {
			return nil
		}
		_, sendErr := d.messaging.SendMessage(ctx, handle, "Nothing pending to reject.")
		return sendErr

	default:
		return nil
	}
}
