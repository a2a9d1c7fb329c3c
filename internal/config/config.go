// Package config loads the assistant's runtime settings from the
// environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	SpeechKey    string
	SpeechRegion string
	Language     string
	Voice        string

	WakePhrases       []string
	MatchWholeWords   bool
	WakeClipSeconds   float64
	CmdClipSeconds    float64
	LoopGapMillis     int
	AlertEscalation   time.Duration
	AcousticWakeModel string
	OnnxLib           string
}

func Load() *Config {
	return &Config{
		SpeechKey:    getEnv("AIDE_SPEECH_KEY", ""),
		SpeechRegion: getEnv("AIDE_SPEECH_REGION", "eastus"),
		Language:     getEnv("AIDE_LANGUAGE", "en-US"),
		Voice:        getEnv("AIDE_VOICE", "en-US-JennyNeural"),

		WakePhrases:       getEnvList("AIDE_WAKE_PHRASES", nil),
		MatchWholeWords:   getEnvBool("AIDE_WHOLE_WORDS", false),
		WakeClipSeconds:   getEnvFloat("AIDE_WAKE_CLIP_SECONDS", 2.0),
		CmdClipSeconds:    getEnvFloat("AIDE_CMD_CLIP_SECONDS", 5.0),
		LoopGapMillis:     getEnvInt("AIDE_LOOP_GAP_MS", 300),
		AlertEscalation:   getEnvDuration("AIDE_ALERT_ESCALATION", 2*time.Minute),
		AcousticWakeModel: getEnv("AIDE_WAKE_MODEL", ""),
		OnnxLib:           getEnv("AIDE_ONNX_LIB", ""),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}
