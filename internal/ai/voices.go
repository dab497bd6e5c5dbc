package ai

import "strings"

// kokoroVoiceTable maps the Kokoro voice ids to display metadata. Voice id
// prefixes encode accent and gender: af/am American, bf/bm British.
var kokoroVoiceTable = map[string]Voice{
	"af_bella":    {ID: "af_bella", Name: "Bella", Gender: "female"},
	"af_nicole":   {ID: "af_nicole", Name: "Nicole", Gender: "female"},
	"af_sarah":    {ID: "af_sarah", Name: "Sarah", Gender: "female"},
	"af_sky":      {ID: "af_sky", Name: "Sky", Gender: "female"},
	"am_adam":     {ID: "am_adam", Name: "Adam", Gender: "male"},
	"am_michael":  {ID: "am_michael", Name: "Michael", Gender: "male"},
	"bf_emma":     {ID: "bf_emma", Name: "Emma", Gender: "female"},
	"bf_isabella": {ID: "bf_isabella", Name: "Isabella", Gender: "female"},
	"bm_george":   {ID: "bm_george", Name: "George", Gender: "male"},
	"bm_lewis":    {ID: "bm_lewis", Name: "Lewis", Gender: "male"},
}

func KokoroVoices() []Voice {
	order := []string{
		"af_bella", "af_nicole", "af_sarah", "af_sky",
		"am_adam", "am_michael",
		"bf_emma", "bf_isabella",
		"bm_george", "bm_lewis",
	}
	voices := make([]Voice, 0, len(order))
	for _, id := range order {
		voices = append(voices, kokoroVoiceTable[id])
	}
	return voices
}

// VoiceInfo resolves metadata for a voice id, inferring name and gender from
// the id prefix when the voice is not in the table.
func VoiceInfo(id string) Voice {
	if v, ok := kokoroVoiceTable[id]; ok {
		return v
	}
	gender := "other"
	switch {
	case strings.HasPrefix(id, "af") || strings.HasPrefix(id, "bf"):
		gender = "female"
	case strings.HasPrefix(id, "am") || strings.HasPrefix(id, "bm"):
		gender = "male"
	}
	name := id
	if len(id) > 3 && id[2] == '_' {
		name = id[3:]
	}
	parts := strings.Split(name, "_")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return Voice{ID: id, Name: strings.Join(parts, " "), Gender: gender}
}
