package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVoiceInfoKnownVoice(t *testing.T) {
	v := VoiceInfo("af_bella")
	require.Equal(t, "Bella", v.Name)
	require.Equal(t, "female", v.Gender)
}

func TestVoiceInfoInference(t *testing.T) {
	tests := []struct {
		id         string
		wantName   string
		wantGender string
	}{
		{id: "am_santa", wantName: "Santa", wantGender: "male"},
		{id: "bf_alice", wantName: "Alice", wantGender: "female"},
		{id: "zf_xiaoyi", wantName: "Xiaoyi", wantGender: "other"},
		{id: "af_river_delta", wantName: "River Delta", wantGender: "female"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			v := VoiceInfo(tt.id)
			require.Equal(t, tt.wantName, v.Name)
			require.Equal(t, tt.wantGender, v.Gender)
		})
	}
}

func TestKokoroVoicesStable(t *testing.T) {
	voices := KokoroVoices()
	require.Len(t, voices, 10)
	require.Equal(t, "af_bella", voices[0].ID)
	for _, v := range voices {
		require.NotEmpty(t, v.Name)
		require.Contains(t, []string{"male", "female"}, v.Gender)
	}
}
