package audio

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Format describes the PCM layout of a WAV stream.
type Format struct {
	Channels      int
	SampleRate    int
	BitsPerSample int
}

func (f Format) bytesPerSecond() int {
	return f.SampleRate * f.Channels * f.BitsPerSample / 8
}

// Decode parses a RIFF/WAVE byte stream and returns its format and raw PCM
// data. Only uncompressed PCM (format tag 1) is supported, which is what the
// TTS providers emit.
func Decode(wav []byte) (Format, []byte, error) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return Format{}, nil, fmt.Errorf("not a wav stream")
	}
	var format Format
	var data []byte
	haveFmt := false
	offset := 12
	for offset+8 <= len(wav) {
		chunkID := string(wav[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(wav) {
			chunkSize = len(wav) - body
		}
		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return Format{}, nil, fmt.Errorf("malformed fmt chunk")
			}
			audioFormat := binary.LittleEndian.Uint16(wav[body : body+2])
			if audioFormat != 1 {
				return Format{}, nil, fmt.Errorf("unsupported wav encoding: %d", audioFormat)
			}
			format.Channels = int(binary.LittleEndian.Uint16(wav[body+2 : body+4]))
			format.SampleRate = int(binary.LittleEndian.Uint32(wav[body+4 : body+8]))
			format.BitsPerSample = int(binary.LittleEndian.Uint16(wav[body+14 : body+16]))
			haveFmt = true
		case "data":
			data = wav[body : body+chunkSize]
		}
		// Chunks are word-aligned.
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}
	if !haveFmt || data == nil {
		return Format{}, nil, fmt.Errorf("wav stream missing fmt or data chunk")
	}
	return format, data, nil
}

// Encode wraps raw PCM data in a RIFF/WAVE container.
func Encode(format Format, pcm []byte) []byte {
	out := make([]byte, 44+len(pcm))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1)
	binary.LittleEndian.PutUint16(out[22:24], uint16(format.Channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(format.SampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(format.bytesPerSecond()))
	binary.LittleEndian.PutUint16(out[32:34], uint16(format.Channels*format.BitsPerSample/8))
	binary.LittleEndian.PutUint16(out[34:36], uint16(format.BitsPerSample))
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[44:], pcm)
	return out
}

// Concat joins several WAV segments into one, inserting gap of silence
// between consecutive segments. All segments must share one PCM format.
func Concat(segments [][]byte, gap time.Duration) ([]byte, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("no audio segments")
	}
	var format Format
	var pcm []byte
	for i, segment := range segments {
		f, data, err := Decode(segment)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		if i == 0 {
			format = f
		} else if f != format {
			return nil, fmt.Errorf("segment %d format %+v differs from %+v", i, f, format)
		}
		if i > 0 && gap > 0 {
			silence := make([]byte, silenceBytes(format, gap))
			pcm = append(pcm, silence...)
		}
		pcm = append(pcm, data...)
	}
	return Encode(format, pcm), nil
}

func silenceBytes(format Format, gap time.Duration) int {
	n := int(float64(format.bytesPerSecond()) * gap.Seconds())
	// Keep sample frames intact.
	frame := format.Channels * format.BitsPerSample / 8
	if frame > 0 {
		n -= n % frame
	}
	return n
}
