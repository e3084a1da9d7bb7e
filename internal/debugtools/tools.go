// Package debugtools implements the "debugging" tool category (spec §4.3):
// read access to the native trace/span recorder (spec §4.10) and the
// application's own log file, for a worker diagnosing its own prior runs.
package debugtools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/relaymind/conduit/internal/obslog"
	"github.com/relaymind/conduit/internal/repository"
	"github.com/relaymind/conduit/internal/toolrouter"
	"github.com/relaymind/conduit/pkg/models"
)

func handleFrom(ctx context.Context) string {
	handle, _ := ctx.Value(obslog.HandleKey).(string)
	return handle
}

// GetTraceTool returns one trace's metadata and its full span tree.
type GetTraceTool struct {
	repo repository.TraceRepository
}

func NewGetTraceTool(repo repository.TraceRepository) *GetTraceTool {
	return &GetTraceTool{repo: repo}
}

func (t *GetTraceTool) Name() string        { return "get_trace" }
func (t *GetTraceTool) Description() string { return "Get a trace's input/output/status and its spans by trace id." }
func (t *GetTraceTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"trace_id":{"type":"string"}},"required":["trace_id"]}`)
}

func (t *GetTraceTool) Execute(ctx context.Context, raw json.RawMessage) (*models.ToolResult, error) {
	var args struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(raw, &args); err != nil || args.TraceID == "" {
		return &models.ToolResult{Content: "trace_id is required", IsError: true}, nil
	}
	trace, err := t.repo.GetTrace(ctx, args.TraceID)
	if err != nil {
		if err == repository.ErrNotFound {
			return &models.ToolResult{Content: "no such trace", IsError: true}, nil
		}
		return &models.ToolResult{Content: fmt.Sprintf("lookup failed: %v", err), IsError: true}, nil
	}
	spans, err := t.repo.SpansForTrace(ctx, args.TraceID)
	if err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("span lookup failed: %v", err), IsError: true}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "trace %s [%s] status=%s\ninput: %s\noutput: %s\n", trace.ID, trace.MessageType, trace.Status, trace.Input, trace.Output)
	for _, sp := range spans {
		fmt.Fprintf(&b, "  span %s (%s) %s: %dms\n", sp.Name, sp.Kind, sp.Status, sp.DurationMS)
	}
	return &models.ToolResult{Content: b.String()}, nil
}

// GetRecentTracesTool lists the calling handle's most recent traces.
type GetRecentTracesTool struct {
	repo repository.TraceRepository
}

func NewGetRecentTracesTool(repo repository.TraceRepository) *GetRecentTracesTool {
	return &GetRecentTracesTool{repo: repo}
}

func (t *GetRecentTracesTool) Name() string        { return "get_recent_traces" }
func (t *GetRecentTracesTool) Description() string { return "List the user's most recent traces." }
func (t *GetRecentTracesTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"limit":{"type":"integer"}}}`)
}

func (t *GetRecentTracesTool) Execute(ctx context.Context, raw json.RawMessage) (*models.ToolResult, error) {
	handle := handleFrom(ctx)
	if handle == "" {
		return &models.ToolResult{Content: "no conversation handle in context", IsError: true}, nil
	}
	var args struct {
		Limit int `json:"limit"`
	}
	_ = json.Unmarshal(raw, &args)
	traces, err := t.repo.RecentTraces(ctx, handle, args.Limit)
	if err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("lookup failed: %v", err), IsError: true}, nil
	}
	if len(traces) == 0 {
		return &models.ToolResult{Content: "no traces"}, nil
	}
	var b strings.Builder
	for _, tr := range traces {
		fmt.Fprintf(&b, "%s [%s] %s\n", tr.ID, tr.Status, tr.StartedAt.Format("2006-01-02T15:04:05Z"))
	}
	return &models.ToolResult{Content: b.String()}, nil
}

// GetLogsTool tails the application's own rotated log file (lumberjack
// destination configured via obslog.Config.File), for a worker debugging
// its own runtime behavior.
type GetLogsTool struct {
	path string
}

func NewGetLogsTool(path string) *GetLogsTool {
	return &GetLogsTool{path: path}
}

func (t *GetLogsTool) Name() string        { return "get_logs" }
func (t *GetLogsTool) Description() string { return "Tail the most recent application log lines." }
func (t *GetLogsTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"lines":{"type":"integer"}}}`)
}

const maxLogBytes = 64 * 1024

func (t *GetLogsTool) Execute(ctx context.Context, raw json.RawMessage) (*models.ToolResult, error) {
	if t.path == "" {
		return &models.ToolResult{Content: "no log file configured (logging to stdout)"}, nil
	}
	var args struct {
		Lines int `json:"lines"`
	}
	_ = json.Unmarshal(raw, &args)
	if args.Lines <= 0 {
		args.Lines = 100
	}

	data, err := os.ReadFile(t.path)
	if err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("read failed: %v", err), IsError: true}, nil
	}
	if len(data) > maxLogBytes {
		data = data[len(data)-maxLogBytes:]
	}
	all := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(all) > args.Lines {
		all = all[len(all)-args.Lines:]
	}
	return &models.ToolResult{Content: strings.Join(all, "\n")}, nil
}

var (
	_ toolrouter.Tool = (*GetTraceTool)(nil)
	_ toolrouter.Tool = (*GetRecentTracesTool)(nil)
	_ toolrouter.Tool = (*GetLogsTool)(nil)
)
