// Package selfcodetools implements the "selfcode" tool category (spec
// §4.3, the coder worker's category in §4.7): read/grep/write access to a
// source tree rooted at a fixed directory, so an agent session can inspect
// and, when write access is enabled, modify its own source.
package selfcodetools

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/relaymind/conduit/internal/toolrouter"
	"github.com/relaymind/conduit/pkg/models"
)

const (
	maxListedFiles = 500
	maxFileBytes   = 200 * 1024
	maxGrepHits    = 200
)

// resolve joins root and rel, refusing any path that escapes root.
func resolve(root, rel string) (string, error) {
	clean := filepath.Join(root, filepath.Clean("/"+rel))
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	absClean, err := filepath.Abs(clean)
	if err != nil {
		return "", err
	}
	if absClean != absRoot && !strings.HasPrefix(absClean, absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes root", rel)
	}
	return absClean, nil
}

// ListSourceFilesTool walks the source root and lists regular files,
// skipping .git and node_modules and stopping after maxListedFiles entries.
type ListSourceFilesTool struct {
	root string
}

func NewListSourceFilesTool(root string) *ListSourceFilesTool { return &ListSourceFilesTool{root: root} }

func (t *ListSourceFilesTool) Name() string        { return "list_source_files" }
func (t *ListSourceFilesTool) Description() string { return "List source files under a subdirectory (default: the whole tree)." }
func (t *ListSourceFilesTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"}}}`)
}

func (t *ListSourceFilesTool) Execute(ctx context.Context, raw json.RawMessage) (*models.ToolResult, error) {
	var args struct {
		Path string `json:"path"`
	}
	_ = json.Unmarshal(raw, &args)
	start, err := resolve(t.root, args.Path)
	if err != nil {
		return &models.ToolResult{Content: err.Error(), IsError: true}, nil
	}

	var files []string
	walkErr := filepath.Walk(start, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if info.Name() == ".git" || info.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(t.root, p)
		if relErr != nil {
			return nil
		}
		files = append(files, rel)
		if len(files) >= maxListedFiles {
			return fmt.Errorf("stop")
		}
		return nil
	})
	_ = walkErr
	if len(files) == 0 {
		return &models.ToolResult{Content: "no files"}, nil
	}
	return &models.ToolResult{Content: strings.Join(files, "\n")}, nil
}

// ReadSourceFileTool returns one file's contents.
type ReadSourceFileTool struct {
	root string
}

func NewReadSourceFileTool(root string) *ReadSourceFileTool { return &ReadSourceFileTool{root: root} }

func (t *ReadSourceFileTool) Name() string        { return "read_source_file" }
func (t *ReadSourceFileTool) Description() string { return "Read the contents of a source file." }
func (t *ReadSourceFileTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`)
}

func (t *ReadSourceFileTool) Execute(ctx context.Context, raw json.RawMessage) (*models.ToolResult, error) {
	var args struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(raw, &args); err != nil || args.Path == "" {
		return &models.ToolResult{Content: "path is required", IsError: true}, nil
	}
	full, err := resolve(t.root, args.Path)
	if err != nil {
		return &models.ToolResult{Content: err.Error(), IsError: true}, nil
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("read failed: %v", err), IsError: true}, nil
	}
	if len(data) > maxFileBytes {
		data = data[:maxFileBytes]
	}
	return &models.ToolResult{Content: string(data)}, nil
}

// GrepSourceTool searches for a literal substring across the source tree,
// line by line.
type GrepSourceTool struct {
	root string
}

func NewGrepSourceTool(root string) *GrepSourceTool { return &GrepSourceTool{root: root} }

func (t *GrepSourceTool) Name() string        { return "grep_source" }
func (t *GrepSourceTool) Description() string { return "Search source files for a literal substring, returning matching lines." }
func (t *GrepSourceTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"},"path":{"type":"string"}},"required":["query"]}`)
}

func (t *GrepSourceTool) Execute(ctx context.Context, raw json.RawMessage) (*models.ToolResult, error) {
	var args struct {
		Query string `json:"query"`
		Path  string `json:"path"`
	}
	if err := json.Unmarshal(raw, &args); err != nil || args.Query == "" {
		return &models.ToolResult{Content: "query is required", IsError: true}, nil
	}
	start, err := resolve(t.root, args.Path)
	if err != nil {
		return &models.ToolResult{Content: err.Error(), IsError: true}, nil
	}

	var hits []string
	_ = filepath.Walk(start, func(p string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() || len(hits) >= maxGrepHits {
			return nil
		}
		f, openErr := os.Open(p)
		if openErr != nil {
			return nil
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		lineNo := 0
		rel, _ := filepath.Rel(t.root, p)
		for scanner.Scan() {
			lineNo++
			if bytes.Contains(scanner.Bytes(), []byte(args.Query)) {
				hits = append(hits, fmt.Sprintf("%s:%d: %s", rel, lineNo, scanner.Text()))
				if len(hits) >= maxGrepHits {
					break
				}
			}
		}
		return nil
	})
	if len(hits) == 0 {
		return &models.ToolResult{Content: "no matches"}, nil
	}
	return &models.ToolResult{Content: strings.Join(hits, "\n")}, nil
}

// WriteSourceFileTool overwrites (or creates) one file. Gated by
// writeEnabled, mirroring shellexec.RunCommandTool's write gate (spec
// §4.8: destructive actions require the write flag).
type WriteSourceFileTool struct {
	root         string
	writeEnabled func() bool
}

func NewWriteSourceFileTool(root string, writeEnabled func() bool) *WriteSourceFileTool {
	return &WriteSourceFileTool{root: root, writeEnabled: writeEnabled}
}

func (t *WriteSourceFileTool) Name() string        { return "write_source_file" }
func (t *WriteSourceFileTool) Description() string { return "Overwrite or create a source file with new contents." }
func (t *WriteSourceFileTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"},"content":{"type":"string"}},"required":["path","content"]}`)
}

func (t *WriteSourceFileTool) Execute(ctx context.Context, raw json.RawMessage) (*models.ToolResult, error) {
	if t.writeEnabled != nil && !t.writeEnabled() {
		return &models.ToolResult{Content: "write access is disabled", IsError: true}, nil
	}
	var args struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &args); err != nil || args.Path == "" {
		return &models.ToolResult{Content: "path is required", IsError: true}, nil
	}
	full, err := resolve(t.root, args.Path)
	if err != nil {
		return &models.ToolResult{Content: err.Error(), IsError: true}, nil
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("mkdir failed: %v", err), IsError: true}, nil
	}
	if err := os.WriteFile(full, []byte(args.Content), 0o644); err != nil {
		return &models.ToolResult{Content: fmt.Sprintf("write failed: %v", err), IsError: true}, nil
	}
	return &models.ToolResult{Content: fmt.Sprintf("wrote %s", args.Path)}, nil
}

var (
	_ toolrouter.Tool = (*ListSourceFilesTool)(nil)
	_ toolrouter.Tool = (*ReadSourceFileTool)(nil)
	_ toolrouter.Tool = (*GrepSourceTool)(nil)
	_ toolrouter.Tool = (*WriteSourceFileTool)(nil)
)
