package deepgram

// Voice is a deepgram aura voice model.
type Voice string

const (
	VoiceThalia  Voice = "aura-2-thalia-en"
	VoiceAsteria Voice = "aura-asteria-en"
	VoiceOrion   Voice = "aura-orion-en"
	VoiceLuna    Voice = "aura-luna-en"
	VoiceArcas   Voice = "aura-arcas-en"
)

const defaultVoice = VoiceThalia

func GetAvailableVoices() []Voice {
	return []Voice{VoiceThalia, VoiceAsteria, VoiceOrion, VoiceLuna, VoiceArcas}
}
