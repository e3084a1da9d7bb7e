package agentruntime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymind/conduit/internal/llmclient"
)

type fakePlannerLLM struct {
	responses []string
	calls     int
}

func (f *fakePlannerLLM) Chat(ctx context.Context, req llmclient.ChatRequest) (*llmclient.ChatResponse, error) {
	r := f.responses[f.calls%len(f.responses)]
	f.calls++
	return &llmclient.ChatResponse{Text: r}, nil
}
func (f *fakePlannerLLM) Embed(ctx context.Context, text string) ([]float64, error) { return nil, nil }
func (f *fakePlannerLLM) Name() string                                              { return "fake" }

func TestCreatePlan_ParsesFencedJSON(t *testing.T) {
	llm := &fakePlannerLLM{responses: []string{"```json\n{\"objective\":\"do it\",\"context_summary\":\"\",\"tasks\":[{\"id\":1,\"description\":\"step 1\",\"worker_type\":\"reader\",\"tools\":[\"notes\"],\"depends_on\":[]}]}\n```"}}
	p := NewPlanner(llm)
	plan := p.CreatePlan(context.Background(), "do it", "")
	require.Len(t, plan.Tasks, 1)
	assert.Equal(t, "step 1", plan.Tasks[0].Description)
}

func TestCreatePlan_ParsesRawJSON(t *testing.T) {
	llm := &fakePlannerLLM{responses: []string{`{"objective":"x","tasks":[{"id":1,"description":"d","worker_type":"coder"}]}`}}
	p := NewPlanner(llm)
	plan := p.CreatePlan(context.Background(), "x", "")
	require.Len(t, plan.Tasks, 1)
}

func TestCreatePlan_ExtractsFirstObjectFromNoise(t *testing.T) {
	llm := &fakePlannerLLM{responses: []string{"Sure, here you go: " + `{"objective":"x","tasks":[{"id":1,"description":"d","worker_type":"analyzer"}]}` + " hope that helps!"}}
	p := NewPlanner(llm)
	plan := p.CreatePlan(context.Background(), "x", "")
	require.Len(t, plan.Tasks, 1)
	assert.Equal(t, "analyzer", string(plan.Tasks[0].WorkerType))
}

func TestCreatePlan_FallsBackOnUnparsableJSON(t *testing.T) {
	llm := &fakePlannerLLM{responses: []string{"I cannot produce a plan right now, sorry."}}
	p := NewPlanner(llm)
	plan := p.CreatePlan(context.Background(), "objective text", "")
	require.Len(t, plan.Tasks, 1)
	assert.Equal(t, "objective text", plan.Tasks[0].Description)
}

func TestCreatePlan_UnknownWorkerTypeFallsBackToGeneral(t *testing.T) {
	llm := &fakePlannerLLM{responses: []string{`{"objective":"x","tasks":[{"id":1,"description":"d","worker_type":"bogus"}]}`}}
	p := NewPlanner(llm)
	plan := p.CreatePlan(context.Background(), "x", "")
	require.Len(t, plan.Tasks, 1)
	assert.Equal(t, "general", string(plan.Tasks[0].WorkerType))
}
