package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

func (c *Config) applyEnv() {
	setString(&c.Pipeline.Pattern, "IDROUTER_PATTERN")
	setString(&c.OCR.Engine, "OCR_ENGINE")
	setString(&c.OCR.TessdataPrefix, "TESSDATA_PREFIX")
	setList(&c.OCR.Languages, "OCR_LANGUAGES")

	setString(&c.Queue.RedisAddr, "REDIS_ADDR")
	setString(&c.Queue.RedisPassword, "REDIS_PASSWORD")
	setInt(&c.Queue.RedisDB, "REDIS_DB")
	setDuration(&c.Queue.StatusTTL, "TASK_STATUS_TTL")

	setString(&c.Server.Addr, "SERVER_ADDR")
	setString(&c.Server.InboxDir, "INBOX_DIR")
	setList(&c.Server.Roots, "SERVER_ROOTS")
	setList(&c.Server.AllowOrigins, "SERVER_ALLOW_ORIGINS")

	setString(&c.Log.Level, "LOG_LEVEL")

	setString(&c.Archive.Type, "ARCHIVE_TYPE")
	c.Textract.fromEnv()
	c.Archive.S3.fromEnv()
	c.Archive.Minio.fromEnv()
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func setList(dst *[]string, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return
	}
	var out []string
	for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '+' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}
