package agentruntime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoopDetector_GenericRepeatWarnsAtThree(t *testing.T) {
	d := NewLoopDetector()
	e := Entry{ToolName: "run_command", ParamsHash: "abc"}
	var last Detection
	for i := 0; i < 3; i++ {
		last = d.Observe(e)
	}
	assert.Equal(t, ActionWarn, last.Action)
	assert.Equal(t, "genericRepeat", last.Detector)
}

func TestLoopDetector_GenericRepeatBreaksAtFive(t *testing.T) {
	d := NewLoopDetector()
	e := Entry{ToolName: "run_command", ParamsHash: "abc"}
	var last Detection
	for i := 0; i < 5; i++ {
		last = d.Observe(e)
	}
	assert.Equal(t, ActionCircuitBreak, last.Action)
}

func TestLoopDetector_NoRepeatIsNone(t *testing.T) {
	d := NewLoopDetector()
	last := d.Observe(Entry{ToolName: "a", ParamsHash: "1"})
	last = d.Observe(Entry{ToolName: "b", ParamsHash: "2"})
	assert.Equal(t, ActionNone, last.Action)
}

func TestLoopDetector_PingPongWarns(t *testing.T) {
	d := NewLoopDetector()
	a := Entry{ToolName: "a", ParamsHash: "1"}
	b := Entry{ToolName: "b", ParamsHash: "2"}
	d.Observe(a)
	d.Observe(b)
	d.Observe(a)
	last := d.Observe(b)
	assert.Equal(t, ActionWarn, last.Action)
	assert.Equal(t, "pingPong", last.Detector)
}

func TestLoopDetector_RingBufferTrimsToSize(t *testing.T) {
	d := NewLoopDetector()
	for i := 0; i < ringSize+10; i++ {
		d.Observe(Entry{ToolName: "x", ParamsHash: "distinct"})
	}
	assert.LessOrEqual(t, len(d.buf), ringSize)
}
