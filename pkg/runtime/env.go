package runtime

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// DotEnvSwitch disables .env discovery when set to 0/false/off/no.
const DotEnvSwitch = "PERSONA_DOTENV"

// LoadDotEnv tries to load env vars from:
// - .env.local, .env (cwd)
// - .env.local, .env (caller file dir and every parent up to the filesystem root)
//
// It only sets vars that are not already set, matching godotenv's behavior.
func LoadDotEnv(logger *zap.Logger) error {
	return LoadDotEnvFromCaller(logger, 2)
}

// LoadDotEnvFromCaller is the same as LoadDotEnv, but allows specifying how many
// stack frames to skip when locating the caller file.
func LoadDotEnvFromCaller(logger *zap.Logger, callerSkip int) error {
	if IsDotEnvDisabled() {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	paths := []string{".env.local", ".env"}
	if _, file, _, ok := runtime.Caller(callerSkip); ok {
		for d := filepath.Dir(file); ; {
			paths = append(paths, filepath.Join(d, ".env.local"), filepath.Join(d, ".env"))
			parent := filepath.Dir(d)
			if parent == d {
				break
			}
			d = parent
		}
	}

	for _, p := range dedupePaths(paths) {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
		logger.Debug("loaded env file", zap.String("path", p))
	}
	return nil
}

func dedupePaths(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = filepath.Clean(p)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func IsDotEnvDisabled() bool {
	return isFalsy(os.Getenv(DotEnvSwitch))
}

func isFalsy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "off", "no":
		return true
	default:
		return false
	}
}

// EnvOr returns the trimmed value of key, or def when unset or blank.
func EnvOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func EnvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// EnvSeconds reads a positive integer number of seconds.
func EnvSeconds(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return time.Duration(secs) * time.Second, nil
}
