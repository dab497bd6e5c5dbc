package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lectern-ai/lectern/internal/model"
)

func TestCheckMindmapValid(t *testing.T) {
	m := &model.Mindmap{
		Nodes: []model.MindmapNode{
			{ID: "root", Label: "Cell Biology", Type: "input"},
			{ID: "a", Label: "Organelles", Type: "default"},
			{ID: "b", Label: "Energy", Type: "output"},
		},
		Edges: []model.MindmapEdge{
			{Source: "root", Target: "a"},
			{Source: "root", Target: "b"},
			{Source: "a", Target: "b", Label: "produces"},
		},
	}
	require.NoError(t, checkMindmap(m))
}

func TestCheckMindmapRejectsUnknownEdgeRefs(t *testing.T) {
	m := &model.Mindmap{
		Nodes: []model.MindmapNode{{ID: "a", Label: "A", Type: "input"}},
		Edges: []model.MindmapEdge{{Source: "a", Target: "ghost"}},
	}
	require.Error(t, checkMindmap(m))
}

func TestCheckMindmapRejectsCycle(t *testing.T) {
	m := &model.Mindmap{
		Nodes: []model.MindmapNode{
			{ID: "a", Label: "A", Type: "input"},
			{ID: "b", Label: "B", Type: "default"},
			{ID: "c", Label: "C", Type: "default"},
		},
		Edges: []model.MindmapEdge{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "c"},
			{Source: "c", Target: "a"},
		},
	}
	require.Error(t, checkMindmap(m))
}

func TestCheckMindmapRejectsDuplicateNodeIDs(t *testing.T) {
	m := &model.Mindmap{
		Nodes: []model.MindmapNode{
			{ID: "a", Label: "A", Type: "input"},
			{ID: "a", Label: "A again", Type: "default"},
		},
	}
	require.Error(t, checkMindmap(m))
}

func TestNormalizeVoicesSingle(t *testing.T) {
	script := &model.PodcastScript{Script: []model.ScriptTurn{
		{Speaker: "Narrator", Voice: "whatever", Text: "hello"},
		{Speaker: "Narrator", Voice: "", Text: "world"},
	}}
	normalizeVoices(script, model.PodcastSingle, "af_bella", "")
	for _, turn := range script.Script {
		require.Equal(t, "af_bella", turn.Voice)
	}
}

func TestNormalizeVoicesDuoAssignsByAppearance(t *testing.T) {
	script := &model.PodcastScript{Script: []model.ScriptTurn{
		{Speaker: "Alex", Text: "welcome"},
		{Speaker: "Jamie", Text: "thanks"},
		{Speaker: "Alex", Text: "so, tell me"},
		{Speaker: "Jamie", Text: "well"},
	}}
	normalizeVoices(script, model.PodcastDuo, "af_bella", "bm_lewis")
	require.Equal(t, "af_bella", script.Script[0].Voice)
	require.Equal(t, "bm_lewis", script.Script[1].Voice)
	require.Equal(t, "af_bella", script.Script[2].Voice)
	require.Equal(t, "bm_lewis", script.Script[3].Voice)
}

func TestCountSpeakers(t *testing.T) {
	script := &model.PodcastScript{Script: []model.ScriptTurn{
		{Speaker: "Alex"}, {Speaker: "Jamie"}, {Speaker: "Alex"},
	}}
	require.Equal(t, 2, countSpeakers(script))
}
