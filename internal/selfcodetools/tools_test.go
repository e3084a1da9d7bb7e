package selfcodetools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestListSourceFilesTool_WalksTree(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "main.go", "package main\n")
	writeFixture(t, root, "pkg/util.go", "package pkg\n")

	tool := NewListSourceFilesTool(root)
	result, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Contains(t, result.Content, "main.go")
	require.Contains(t, result.Content, filepath.Join("pkg", "util.go"))
}

func TestReadSourceFileTool_RejectsEscapingPath(t *testing.T) {
	root := t.TempDir()
	tool := NewReadSourceFileTool(root)
	result, err := tool.Execute(context.Background(), json.RawMessage(`{"path":"../../etc/passwd"}`))
	require.NoError(t, err)
	require.True(t, result.IsError)
}

func TestReadSourceFileTool_ReadsFile(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "main.go", "package main\n\nfunc main() {}\n")

	tool := NewReadSourceFileTool(root)
	result, err := tool.Execute(context.Background(), json.RawMessage(`{"path":"main.go"}`))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Contains(t, result.Content, "func main()")
}

func TestGrepSourceTool_FindsMatchingLines(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "main.go", "package main\n\nfunc main() {\n\tprintln(\"hello\")\n}\n")

	tool := NewGrepSourceTool(root)
	result, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"println"}`))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Contains(t, result.Content, "main.go")
	require.Contains(t, result.Content, "println")
}

func TestWriteSourceFileTool_RespectsWriteGate(t *testing.T) {
	root := t.TempDir()
	tool := NewWriteSourceFileTool(root, func() bool { return false })

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"path":"new.go","content":"package main\n"}`))
	require.NoError(t, err)
	require.True(t, result.IsError)
	require.Contains(t, result.Content, "disabled")
}

func TestWriteSourceFileTool_WritesWhenEnabled(t *testing.T) {
	root := t.TempDir()
	tool := NewWriteSourceFileTool(root, func() bool { return true })

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"path":"sub/new.go","content":"package sub\n"}`))
	require.NoError(t, err)
	require.False(t, result.IsError)

	data, err := os.ReadFile(filepath.Join(root, "sub", "new.go"))
	require.NoError(t, err)
	require.Equal(t, "package sub\n", string(data))
}
