package speech

// Default voice for synthesis.
// Full list: https://learn.microsoft.com/en-us/azure/ai-services/speech-service/language-support
const DefaultVoice = "en-US-JennyNeural"

// Audio format requested from the service and expected by the player.
const DefaultAudioFormat = "riff-24khz-16bit-mono-pcm"

// Audio parameters matching the default format.
const (
	SampleRate   = 24000
	ChannelCount = 1
	BitDepth     = 16
)

// Env var names for the speech service credentials. The same key pair
// covers synthesis and transcription.
const (
	EnvSpeechKey    = "AIDE_SPEECH_KEY"
	EnvSpeechRegion = "AIDE_SPEECH_REGION"
)

// Priority levels for queued utterances. Higher value speaks first.
type Priority int

const (
	PriorityLow      Priority = iota // background commentary
	PriorityNormal                   // command responses
	PriorityHigh                     // alert notifications
	PriorityCritical                 // listening acks, urgent alerts
)
