package state

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DirEnv overrides BaseDir.
const DirEnv = "PERSONA_STATE_DIR"

// BaseDir returns the base directory used for persistent agent state.
//
// Default:
// - $PERSONA_STATE_DIR
// - system user cache dir + "/persona-bot"
// - ./.persona-bot as a last resort
func BaseDir() string {
	if d := strings.TrimSpace(os.Getenv(DirEnv)); d != "" {
		return d
	}
	if d := strings.TrimSpace(userCacheDir()); d != "" {
		return filepath.Join(d, "persona-bot")
	}
	return ".persona-bot"
}

func AgentDir(serviceType string) string {
	return filepath.Join(BaseDir(), "agents", serviceType)
}

// SessionFile is where the platform session of account is kept.
func SessionFile(serviceType, account string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(account))))
	return filepath.Join(AgentDir(serviceType), "session-"+hex.EncodeToString(sum[:])[:12]+".json")
}

func KnowledgeFile(serviceType string) string {
	return filepath.Join(AgentDir(serviceType), "knowledge.db")
}

func userCacheDir() string {
	if d, err := os.UserCacheDir(); err == nil && strings.TrimSpace(d) != "" {
		return d
	}

	switch runtime.GOOS {
	case "windows":
		if d := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); d != "" {
			return d
		}
	case "darwin":
		if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
			return filepath.Join(home, "Library", "Caches")
		}
	default:
		if d := strings.TrimSpace(os.Getenv("XDG_CACHE_HOME")); d != "" {
			return d
		}
		if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
			return filepath.Join(home, ".cache")
		}
	}
	return ""
}
