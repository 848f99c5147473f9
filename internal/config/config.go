// Package config loads the server's environment-driven settings (spec.md
// §6 "Environment inputs"), with a database-backed override layer for the
// handful of values an admin can tune without a restart.
package config

import (
	"database/sql"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds every environment input spec.md §6 names.
type Config struct {
	Port                   int
	ServerSecret           string
	CredentialExpiry       time.Duration
	DatabasePath           string
	CacheRoot              string
	CacheSizeCapBytes      int64
	CacheTTL               time.Duration
	VideoExtensions        map[string]bool
	MetadataProviderKey    string
	MetadataLanguage       string
	AutoEnrich             bool
	FFmpegPath             string
	FFprobePath            string
	RedisAddr              string
	LogFile                string
	LogLevel               string
	LogMaxSizeMB           int
	LogMaxBackups          int
	LogMaxAgeDays          int
	LogCompress            bool
}

// Load reads Config from the environment, applying the defaults spec.md §6
// implies (7-day credential expiry, 10 GiB cache cap, 7-day TTL).
func Load() *Config {
	exts := map[string]bool{}
	for _, e := range strings.Split(env("VIDEO_EXTENSIONS", ".mp4,.mkv,.avi,.mov,.m4v,.webm,.ts,.m2ts"), ",") {
		e = strings.TrimSpace(strings.ToLower(e))
		if e != "" {
			exts[e] = true
		}
	}

	return &Config{
		Port:                envInt("PORT", 8080),
		ServerSecret:        env("SERVER_SECRET", "change-me-in-production"),
		CredentialExpiry:    envDuration("CREDENTIAL_EXPIRY", 7*24*time.Hour),
		DatabasePath:        env("DATABASE_PATH", "data/streamvault.db"),
		CacheRoot:           env("CACHE_ROOT", "data/cache"),
		CacheSizeCapBytes:   envInt64("CACHE_SIZE_CAP_BYTES", 10*1024*1024*1024),
		CacheTTL:            envDuration("CACHE_TTL", 7*24*time.Hour),
		VideoExtensions:     exts,
		MetadataProviderKey: env("METADATA_PROVIDER_KEY", ""),
		MetadataLanguage:    env("METADATA_LANGUAGE", "en"),
		AutoEnrich:          envBool("AUTO_ENRICH", true),
		FFmpegPath:          env("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:         env("FFPROBE_PATH", "ffprobe"),
		RedisAddr:           env("REDIS_ADDR", "127.0.0.1:6379"),
		LogFile:             env("LOG_FILE", ""),
		LogLevel:            env("LOG_LEVEL", "info"),
		LogMaxSizeMB:        envInt("LOG_MAX_SIZE_MB", 50),
		LogMaxBackups:       envInt("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays:       envInt("LOG_MAX_AGE_DAYS", 28),
		LogCompress:         envBool("LOG_COMPRESS", true),
	}
}

// NewLogger builds the process-wide structured logger: JSON to stdout, and
// additionally to a rotating file when LogFile is set, following the
// rotation knobs (size/backups/age/compress) another self-hosted media
// server in the pack (strmr) wires through lumberjack.
func (c *Config) NewLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	out := io.Writer(os.Stdout)
	if c.LogFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   c.LogFile,
			MaxSize:    c.LogMaxSizeMB,
			MaxBackups: c.LogMaxBackups,
			MaxAge:     c.LogMaxAgeDays,
			Compress:   c.LogCompress,
		})
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
}

// MergeFromDB overlays hot-reloadable settings stored in the `settings`
// table, following the teacher's key/value merge idiom (internal/config in
// the reference repo) generalized with spf13/cast so values of any stored
// type coerce into the right Go field without a manual type switch per key.
func (c *Config) MergeFromDB(db *sql.DB, logger *slog.Logger) {
	rows, err := db.Query("SELECT key, value FROM settings")
	if err != nil {
		if logger != nil {
			logger.Warn("config: skipping settings merge", "err", err)
		}
		return
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		switch key {
		case "cache_size_cap_bytes":
			if v, err := cast.ToInt64E(value); err == nil {
				c.CacheSizeCapBytes = v
			}
		case "cache_ttl_hours":
			if v, err := cast.ToFloat64E(value); err == nil {
				c.CacheTTL = time.Duration(v * float64(time.Hour))
			}
		case "auto_enrich":
			if v, err := cast.ToBoolE(value); err == nil {
				c.AutoEnrich = v
			}
		case "metadata_language":
			c.MetadataLanguage = value
		}
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
