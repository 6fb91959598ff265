package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string

	OpenAIKey     string
	OpenAIModelID string
	OpenAIBaseURL string

	AzureSpeechKey    string
	AzureSpeechRegion string
	AzureTTSVoice     string

	TTSProvider       string // azure | elevenlabs | deepgram
	ElevenLabsKey     string
	ElevenLabsVoiceID string
	DeepgramKey       string

	TurnTimeout time.Duration

	SupabaseURL            string
	SupabaseServiceRoleKey string
	SupabaseBucket         string
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}

	openAIKey := os.Getenv("OPENAI_API_KEY")
	if openAIKey == "" {
		slog.Warn("OPENAI_API_KEY not set - interview and scoring will not work")
	}
	openAIModel := os.Getenv("OPENAI_MODEL_ID")
	if openAIModel == "" {
		openAIModel = "gpt-4o-mini"
	}

	azureKey := os.Getenv("AZURE_SPEECH_KEY")
	azureRegion := os.Getenv("AZURE_SPEECH_REGION")
	if azureKey == "" || azureRegion == "" {
		slog.Warn("AZURE_SPEECH_KEY or AZURE_SPEECH_REGION not set - speech recognition will not work")
	}
	azureVoice := os.Getenv("AZURE_TTS_VOICE")
	if azureVoice == "" {
		azureVoice = "en-US-AndrewMultilingualNeural"
	}

	provider := os.Getenv("TTS_PROVIDER")
	if provider == "" {
		provider = "azure"
	}

	timeout := 12 * time.Second
	if raw := os.Getenv("TURN_TIMEOUT_MS"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
			timeout = time.Duration(ms) * time.Millisecond
		} else {
			slog.Warn("invalid TURN_TIMEOUT_MS, using default", "value", raw)
		}
	}

	slog.Info("config loaded", "http_address", addr, "tts_provider", provider, "turn_timeout", timeout)
	return Config{
		HTTPAddress:            addr,
		OpenAIKey:              openAIKey,
		OpenAIModelID:          openAIModel,
		OpenAIBaseURL:          os.Getenv("OPENAI_BASE_URL"),
		AzureSpeechKey:         azureKey,
		AzureSpeechRegion:      azureRegion,
		AzureTTSVoice:          azureVoice,
		TTSProvider:            provider,
		ElevenLabsKey:          os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsVoiceID:      os.Getenv("ELEVENLABS_VOICE_ID"),
		DeepgramKey:            os.Getenv("DEEPGRAM_API_KEY"),
		TurnTimeout:            timeout,
		SupabaseURL:            os.Getenv("SUPABASE_URL"),
		SupabaseServiceRoleKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseBucket:         os.Getenv("SUPABASE_BUCKET"),
	}
}
