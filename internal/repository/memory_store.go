package repository

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relaymind/conduit/pkg/models"
)

// InMemory is a goroutine-safe, process-local Repository used by tests and
// by local/dev runs started without a configured database driver.
type InMemory struct {
	mu sync.Mutex

	conversations    map[string]*models.Conversation // handle -> conversation
	conversationByID map[string]*models.Conversation
	messages         map[string][]models.Message // conversationID -> messages
	summaries        map[string]*models.ConversationSummary
	sticky           map[string]*models.StickyCategories
	seenExternalIDs  map[string]bool

	memories  map[string][]memoryRecord // handle -> memories
	notes     []noteRecord
	sessions  map[string]*models.AgentSession
	traces    map[string]*models.Trace
	spans     []models.Span
	scores    []models.Score
	auditLog  []models.CommandAuditEntry
	processes map[string]*models.ShellProcessRecord
	cronJobs  map[string]*CronJob
	evalEntries []models.EvalDatasetEntry
	promptVersions map[string][]models.PromptVersion
}

type memoryRecord struct {
	mem       models.Memory
	embedding []float64
}

type noteRecord struct {
	note      models.Note
	embedding []float64
}

// NewInMemory builds an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		conversations:    make(map[string]*models.Conversation),
		conversationByID: make(map[string]*models.Conversation),
		messages:         make(map[string][]models.Message),
		summaries:        make(map[string]*models.ConversationSummary),
		sticky:           make(map[string]*models.StickyCategories),
		seenExternalIDs:  make(map[string]bool),
		memories:         make(map[string][]memoryRecord),
		sessions:         make(map[string]*models.AgentSession),
		traces:           make(map[string]*models.Trace),
		processes:        make(map[string]*models.ShellProcessRecord),
		cronJobs:         make(map[string]*CronJob),
		promptVersions:   make(map[string][]models.PromptVersion),
	}
}

func (s *InMemory) Close() error { return nil }

// --- ConversationRepository ---

func (s *InMemory) GetOrCreateConversation(ctx context.Context, handle string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conversations[handle]; ok {
		return c, nil
	}
	c := &models.Conversation{ID: uuid.NewString(), Handle: handle, CreatedAt: time.Now()}
	s.conversations[handle] = c
	s.conversationByID[c.ID] = c
	return c, nil
}

func (s *InMemory) AppendMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], *msg)
	return nil
}

func (s *InMemory) RecentMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.messages[conversationID]
	if limit <= 0 || limit >= len(all) {
		out := make([]models.Message, len(all))
		copy(out, all)
		return out, nil
	}
	start := len(all) - limit
	out := make([]models.Message, limit)
	copy(out, all[start:])
	return out, nil
}

func (s *InMemory) MessageCount(ctx context.Context, conversationID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages[conversationID]), nil
}

func (s *InMemory) SaveSummary(ctx context.Context, summary *models.ConversationSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *summary
	s.summaries[summary.ConversationID] = &cp
	return nil
}

func (s *InMemory) LatestSummary(ctx context.Context, conversationID string) (*models.ConversationSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary, ok := s.summaries[conversationID]
	if !ok {
		return nil, ErrNotFound
	}
	return summary, nil
}

func (s *InMemory) SetStickyCategories(ctx context.Context, sc *models.StickyCategories) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sc
	s.sticky[sc.ConversationID] = &cp
	return nil
}

func (s *InMemory) GetStickyCategories(ctx context.Context, conversationID string) (*models.StickyCategories, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.sticky[conversationID]
	if !ok {
		return nil, ErrNotFound
	}
	return sc, nil
}

func (s *InMemory) SeenExternalID(ctx context.Context, externalID string) (bool, error) {
	if externalID == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seenExternalIDs[externalID] {
		return true, nil
	}
	s.seenExternalIDs[externalID] = true
	return false, nil
}

// --- MemoryRepository ---

func (s *InMemory) SaveMemory(ctx context.Context, mem *models.Memory, embedding []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mem.ID == "" {
		mem.ID = uuid.NewString()
	}
	if mem.CreatedAt.IsZero() {
		mem.CreatedAt = time.Now()
	}
	s.memories[mem.Handle] = append(s.memories[mem.Handle], memoryRecord{mem: *mem, embedding: embedding})
	return nil
}

func (s *InMemory) DeactivateMemory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for handle, records := range s.memories {
		for i := range records {
			if records[i].mem.ID == id {
				records[i].mem.Active = false
				s.memories[handle] = records
				return nil
			}
		}
	}
	return ErrNotFound
}

func (s *InMemory) PruneExpiredSelfCorrections(ctx context.Context, maxAge time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-maxAge)
	pruned := 0
	for handle, records := range s.memories {
		for i := range records {
			if records[i].mem.Category != models.CategorySelfCorrection {
				continue
			}
			if !records[i].mem.Active {
				continue
			}
			if records[i].mem.CreatedAt.Before(cutoff) {
				records[i].mem.Active = false
				pruned++
			}
		}
		s.memories[handle] = records
	}
	return pruned, nil
}

func (s *InMemory) ActiveMemories(ctx context.Context, handle string) ([]models.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Memory
	for _, r := range s.memories[handle] {
		if r.mem.Active {
			out = append(out, r.mem)
		}
	}
	return out, nil
}

func (s *InMemory) SearchMemories(ctx context.Context, handle string, queryEmbedding []float64, topK int) ([]models.ScoredMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var scored []models.ScoredMemory
	for _, r := range s.memories[handle] {
		if !r.mem.Active {
			continue
		}
		scored = append(scored, models.ScoredMemory{
			Content:  r.mem.Content,
			Distance: l2Distance(queryEmbedding, r.embedding),
		})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Distance < scored[j].Distance })
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func l2Distance(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return math.MaxFloat64
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func (s *InMemory) SaveNote(ctx context.Context, note *models.Note, embedding []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now()
	}
	s.notes = append(s.notes, noteRecord{note: *note, embedding: embedding})
	return nil
}

func (s *InMemory) SearchNotes(ctx context.Context, handle string, queryEmbedding []float64, topK int) ([]models.ScoredMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var scored []models.ScoredMemory
	for _, r := range s.notes {
		if r.note.Handle != handle {
			continue
		}
		scored = append(scored, models.ScoredMemory{
			Content:  r.note.Content,
			Distance: l2Distance(queryEmbedding, r.embedding),
		})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Distance < scored[j].Distance })
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (s *InMemory) ListNotes(ctx context.Context, handle string) ([]models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Note
	for _, r := range s.notes {
		if r.note.Handle == handle {
			out = append(out, r.note)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- AgentSessionRepository ---

func (s *InMemory) SaveSession(ctx context.Context, session *models.AgentSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *InMemory) GetSession(ctx context.Context, id string) (*models.AgentSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return session, nil
}

func (s *InMemory) ActiveSessionForHandle(ctx context.Context, handle string) (*models.AgentSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.Handle == handle && !session.Status.IsTerminal() {
			return session, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemory) ListActiveSessions(ctx context.Context) ([]models.AgentSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AgentSession
	for _, session := range s.sessions {
		if !session.Status.IsTerminal() {
			out = append(out, *session)
		}
	}
	return out, nil
}

// --- TraceRepository ---

func (s *InMemory) SaveTrace(ctx context.Context, trace *models.Trace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *trace
	s.traces[trace.ID] = &cp
	return nil
}

func (s *InMemory) SaveSpan(ctx context.Context, span *models.Span) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spans = append(s.spans, *span)
	return nil
}

func (s *InMemory) SaveScore(ctx context.Context, score *models.Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores = append(s.scores, *score)
	return nil
}

func (s *InMemory) GetTrace(ctx context.Context, id string) (*models.Trace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trace, ok := s.traces[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *trace
	return &cp, nil
}

func (s *InMemory) RecentTraces(ctx context.Context, handle string, limit int) ([]models.Trace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Trace
	for _, t := range s.traces {
		if t.Handle == handle {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) SpansForTrace(ctx context.Context, traceID string) ([]models.Span, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Span
	for _, sp := range s.spans {
		if sp.TraceID == traceID {
			out = append(out, sp)
		}
	}
	return out, nil
}

// --- ShellAuditRepository ---

func (s *InMemory) AppendAuditEntry(ctx context.Context, entry *models.CommandAuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLog = append(s.auditLog, *entry)
	return nil
}

func (s *InMemory) LastAuditHash(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.auditLog) == 0 {
		return "", nil
	}
	return s.auditLog[len(s.auditLog)-1].EntryHash, nil
}

func (s *InMemory) SaveProcess(ctx context.Context, proc *models.ShellProcessRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *proc
	s.processes[proc.ProcessID] = &cp
	return nil
}

func (s *InMemory) GetProcess(ctx context.Context, processID string) (*models.ShellProcessRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	proc, ok := s.processes[processID]
	if !ok {
		return nil, ErrNotFound
	}
	return proc, nil
}

func (s *InMemory) ListProcesses(ctx context.Context, sessionHandle string) ([]models.ShellProcessRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ShellProcessRecord
	for _, proc := range s.processes {
		if sessionHandle == "" || proc.SessionHandle == sessionHandle {
			out = append(out, *proc)
		}
	}
	return out, nil
}

func (s *InMemory) DeleteProcess(ctx context.Context, processID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.processes, processID)
	return nil
}

// --- CronRepository ---

func (s *InMemory) SaveCronJob(ctx context.Context, job *CronJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	cp := *job
	s.cronJobs[job.ID] = &cp
	return nil
}

func (s *InMemory) DeleteCronJob(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cronJobs, id)
	return nil
}

func (s *InMemory) ListCronJobs(ctx context.Context) ([]CronJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CronJob, 0, len(s.cronJobs))
	for _, job := range s.cronJobs {
		out = append(out, *job)
	}
	return out, nil
}

func (s *InMemory) MarkCronJobRun(ctx context.Context, id string, ranAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.cronJobs[id]
	if !ok {
		return ErrNotFound
	}
	job.LastRunAt = &ranAt
	return nil
}

// --- EvalRepository ---

func (s *InMemory) SaveEvalEntry(ctx context.Context, entry *models.EvalDatasetEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = int64(len(s.evalEntries) + 1)
	s.evalEntries = append(s.evalEntries, *entry)
	return nil
}

func (s *InMemory) ListEvalEntries(ctx context.Context, entryType models.EntryType) ([]models.EvalDatasetEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.EvalDatasetEntry
	for _, e := range s.evalEntries {
		if entryType == "" || e.EntryType == entryType {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemory) SavePromptVersion(ctx context.Context, pv *models.PromptVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pv.IsActive {
		versions := s.promptVersions[pv.PromptName]
		for i := range versions {
			versions[i].IsActive = false
		}
		s.promptVersions[pv.PromptName] = versions
	}
	s.promptVersions[pv.PromptName] = append(s.promptVersions[pv.PromptName], *pv)
	return nil
}

func (s *InMemory) ActivePromptVersion(ctx context.Context, promptName string) (*models.PromptVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pv := range s.promptVersions[promptName] {
		if pv.IsActive {
			cp := pv
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemory) ActivatePromptVersion(ctx context.Context, promptName string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	versions := s.promptVersions[promptName]
	found := false
	for i := range versions {
		if versions[i].Version == version {
			versions[i].IsActive = true
			found = true
		} else {
			versions[i].IsActive = false
		}
	}
	if !found {
		return ErrNotFound
	}
	s.promptVersions[promptName] = versions
	return nil
}

var _ Repository = (*InMemory)(nil)
