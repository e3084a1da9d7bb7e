package agentruntime

import (
	"os"
	"path/filepath"

	"github.com/relaymind/conduit/internal/llmclient"
	"github.com/relaymind/conduit/pkg/models"
)

// bootstrapFiles are loaded, in order, from the workspace root if present,
// and prepended to a session's message history as system messages.
var bootstrapFiles = []string{"SOUL.md", "USER.md", "TOOLS.md"}

// LoadBootstrapMessages reads whichever of bootstrapFiles exist under dir
// and returns one system message per file found, in bootstrapFiles order.
// A missing file is silently skipped; it is not an error condition.
func LoadBootstrapMessages(dir string) []llmclient.Message {
	var messages []llmclient.Message
	for _, name := range bootstrapFiles {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		messages = append(messages, llmclient.Message{Role: models.RoleSystem, Content: string(content)})
	}
	return messages
}
