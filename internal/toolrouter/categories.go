package toolrouter

// StaticCategories is the ordered category -> tool-name mapping wired at
// startup, mirroring spec §4.3's TOOL_CATEGORIES table. Dynamic categories
// (e.g. "fetch" from an MCP manager) are added at runtime via
// Registry.AddToCategory and are treated identically by Select.
var StaticCategories = map[string][]string{
	"selfcode": {
		"list_source_files",
		"read_source_file",
		"grep_source",
		"write_source_file",
	},
	"conversation": {
		"get_recent_messages",
		"get_conversation_summary",
		"search_memories",
	},
	"agent": {
		"create_session",
	},
	"notes": {
		"search_notes",
		"create_note",
		"list_notes",
	},
	"evaluation": {
		"get_dataset_stats",
		"add_dataset_entry",
		"list_eval_entries",
		"activate_prompt_version",
	},
	"debugging": {
		"get_trace",
		"get_recent_traces",
		"get_logs",
	},
	"shell": {
		"run_command",
		"manage_process",
	},
	"projects": {
		"list_projects",
		"get_project_notes",
		"search_project",
		"create_project_note",
		"get_project_status",
		"list_project_files",
		"read_project_file",
		"get_project_config",
		"list_project_tasks",
		"create_project_task",
	},
	"github": {
		"github_search_issues",
		"github_get_issue",
		"github_create_issue",
		"github_list_prs",
		"github_get_pr",
		"github_comment",
		"github_search_code",
		"github_get_repo",
		"github_list_branches",
		"github_get_file",
	},
}

// RegisterStaticCategories loads every StaticCategories entry into r, in a
// stable order, whether or not the named tool is registered; Select skips
// names with no registered tool. Categories with no registered tools still
// appear in Registry.Categories() (the model may still request them —
// Select simply returns nothing for such a category).
func RegisterStaticCategories(r *Registry) {
	for _, cat := range orderedCategoryNames() {
		for _, name := range StaticCategories[cat] {
			r.AddToCategory(cat, name)
		}
	}
}

func orderedCategoryNames() []string {
	return []string{
		"selfcode", "conversation", "agent", "notes", "evaluation", "debugging",
		"shell", "projects", "github",
	}
}
