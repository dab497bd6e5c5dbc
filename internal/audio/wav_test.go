package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testFormat = Format{Channels: 1, SampleRate: 24000, BitsPerSample: 16}

func makeWAV(t *testing.T, format Format, samples int) []byte {
	t.Helper()
	pcm := make([]byte, samples*format.Channels*format.BitsPerSample/8)
	for i := range pcm {
		pcm[i] = byte(i % 251)
	}
	return Encode(format, pcm)
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	wav := makeWAV(t, testFormat, 2400)
	format, pcm, err := Decode(wav)
	require.NoError(t, err)
	require.Equal(t, testFormat, format)
	require.Len(t, pcm, 4800)
	require.Equal(t, wav, Encode(format, pcm))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, _, err := Decode([]byte("definitely not audio data"))
	require.Error(t, err)
}

func TestDecodeRejectsNonPCM(t *testing.T) {
	wav := makeWAV(t, testFormat, 100)
	// Flip the format tag to IEEE float.
	wav[20] = 3
	_, _, err := Decode(wav)
	require.Error(t, err)
}

func TestConcatJoinsSegmentsWithSilence(t *testing.T) {
	a := makeWAV(t, testFormat, 2400) // 0.1s
	b := makeWAV(t, testFormat, 2400)
	combined, err := Concat([][]byte{a, b}, 500*time.Millisecond)
	require.NoError(t, err)

	format, pcm, err := Decode(combined)
	require.NoError(t, err)
	require.Equal(t, testFormat, format)
	// 0.1s + 0.5s silence + 0.1s at 2 bytes per sample.
	wantBytes := (2400 + 12000 + 2400) * 2
	require.Len(t, pcm, wantBytes)
}

func TestConcatNoGap(t *testing.T) {
	a := makeWAV(t, testFormat, 1000)
	b := makeWAV(t, testFormat, 1000)
	combined, err := Concat([][]byte{a, b}, 0)
	require.NoError(t, err)
	_, pcm, err := Decode(combined)
	require.NoError(t, err)
	require.Len(t, pcm, 4000)
}

func TestConcatRejectsMixedFormats(t *testing.T) {
	a := makeWAV(t, testFormat, 1000)
	b := makeWAV(t, Format{Channels: 2, SampleRate: 44100, BitsPerSample: 16}, 1000)
	_, err := Concat([][]byte{a, b}, 0)
	require.Error(t, err)
}

func TestConcatEmpty(t *testing.T) {
	_, err := Concat(nil, time.Second)
	require.Error(t, err)
}
