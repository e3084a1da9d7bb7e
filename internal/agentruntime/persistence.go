package agentruntime

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/relaymind/conduit/internal/obslog"
)

// RoundRecord is one line appended to a session's JSONL transcript after
// every reactive-mode round.
type RoundRecord struct {
	Round           int       `json:"round"`
	Iteration       int       `json:"iteration"`
	ToolCalls       []string  `json:"tool_calls"`
	ReplyPreview    string    `json:"reply_preview"`
	TaskPlanSnapshot string   `json:"task_plan_snapshot,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// SessionLog appends RoundRecords to {dir}/{handle}_{sessionID}.jsonl.
// Writes are best-effort: failures are logged, never returned to the
// caller, since persistence must not abort a running session (spec §4.7.4).
type SessionLog struct {
	path string
	log  *obslog.Logger
}

// NewSessionLog builds the append-only transcript for one session.
func NewSessionLog(dir, handle, sessionID string, log *obslog.Logger) *SessionLog {
	return &SessionLog{
		path: filepath.Join(dir, fmt.Sprintf("%s_%s.jsonl", handle, sessionID)),
		log:  log.WithFields("component", "agentruntime.sessionlog"),
	}
}

const replyPreviewMaxChars = 200

// Append writes record as one JSON line, opening the file in append mode.
func (s *SessionLog) Append(ctx context.Context, record RoundRecord) {
	if len(record.ReplyPreview) > replyPreviewMaxChars {
		record.ReplyPreview = record.ReplyPreview[:replyPreviewMaxChars]
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.log.Warn(ctx, "agentruntime: mkdir session log dir failed", "error", err)
		return
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.log.Warn(ctx, "agentruntime: open session log failed", "error", err)
		return
	}
	defer f.Close()

	line, err := json.Marshal(record)
	if err != nil {
		s.log.Warn(ctx, "agentruntime: marshal session round failed", "error", err)
		return
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		s.log.Warn(ctx, "agentruntime: write session round failed", "error", err)
	}
}
