package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config captures how quill reaches the WordPress site and where it keeps
// local state.
type Config struct {
	SiteURL             string
	APIPath             string
	Username            string
	Password            string
	ApplicationPassword string
	PlaceholderURL      string
	StatePath           string
	LogPath             string
	MaxImageWidth       int
	MaxImageHeight      int
	DateLocale          string
}

const (
	defaultConfigPath  = "~/.config/quill/config.toml"
	defaultSiteURL     = "http://localhost/wp/wp_plugins"
	defaultAPIPath     = "/wp-json"
	defaultStatePath   = "~/.local/state/quill/store.toml"
	defaultLogPath     = "~/.local/state/quill/quill.log"
	defaultDateLocale  = "en_US"
	defaultImageWidth  = 1920
	defaultImageHeight = 1080
	placeholderSuffix  = "/wp-content/uploads/2025/10/no-image-icon-10.png"
	defaultEnvFile     = ".env"
)

// Environment variables that override the file. They are also read from a
// .env file in the working directory.
const (
	EnvSiteURL             = "QUILL_SITE_URL"
	EnvUsername            = "QUILL_USERNAME"
	EnvPassword            = "QUILL_PASSWORD"
	EnvApplicationPassword = "QUILL_APPLICATION_PASSWORD"
)

type fileConfig struct {
	SiteURL             string `toml:"site_url"`
	APIPath             string `toml:"api_path"`
	Username            string `toml:"username"`
	Password            string `toml:"password"`
	ApplicationPassword string `toml:"application_password"`
	PlaceholderURL      string `toml:"placeholder_url"`
	StatePath           string `toml:"state_path"`
	LogPath             string `toml:"log_path"`
	MaxImageWidth       *int   `toml:"max_image_width"`
	MaxImageHeight      *int   `toml:"max_image_height"`
	DateLocale          string `toml:"date_locale"`
}

// Load locates and parses the quill config, falling back to defaults when
// missing, then applies environment overrides.
func Load(path string) (Config, error) {
	return load(path, defaultEnvFile)
}

func load(path, envFile string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	var raw fileConfig
	file, err := os.Open(resolved)
	switch {
	case err == nil:
		defer func() { _ = file.Close() }()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	env, err := readEnv(envFile)
	if err != nil {
		return Config{}, err
	}
	applyEnv(&raw, env)

	return normalize(raw), nil
}

// readEnv merges a dotenv file (if present) under the process environment.
func readEnv(envFile string) (map[string]string, error) {
	env := map[string]string{}
	if strings.TrimSpace(envFile) != "" {
		values, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			env = values
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
	}
	for _, key := range []string{EnvSiteURL, EnvUsername, EnvPassword, EnvApplicationPassword} {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	return env, nil
}

func applyEnv(raw *fileConfig, env map[string]string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(env[key]); v != "" {
			*dst = v
		}
	}
	set(&raw.SiteURL, EnvSiteURL)
	set(&raw.Username, EnvUsername)
	set(&raw.Password, EnvPassword)
	set(&raw.ApplicationPassword, EnvApplicationPassword)
}

func normalize(raw fileConfig) Config {
	cfg := Config{
		SiteURL:             strings.TrimRight(strings.TrimSpace(raw.SiteURL), "/"),
		APIPath:             strings.TrimSpace(raw.APIPath),
		Username:            strings.TrimSpace(raw.Username),
		Password:            raw.Password,
		ApplicationPassword: strings.TrimSpace(raw.ApplicationPassword),
		PlaceholderURL:      strings.TrimSpace(raw.PlaceholderURL),
		StatePath:           strings.TrimSpace(raw.StatePath),
		LogPath:             strings.TrimSpace(raw.LogPath),
		MaxImageWidth:       defaultImageWidth,
		MaxImageHeight:      defaultImageHeight,
		DateLocale:          strings.TrimSpace(raw.DateLocale),
	}
	if cfg.SiteURL == "" {
		cfg.SiteURL = defaultSiteURL
	}
	if cfg.APIPath == "" {
		cfg.APIPath = defaultAPIPath
	}
	if !strings.HasPrefix(cfg.APIPath, "/") {
		cfg.APIPath = "/" + cfg.APIPath
	}
	cfg.APIPath = strings.TrimRight(cfg.APIPath, "/")
	if cfg.PlaceholderURL == "" {
		cfg.PlaceholderURL = cfg.SiteURL + placeholderSuffix
	}
	if cfg.StatePath == "" {
		cfg.StatePath = defaultStatePath
	}
	cfg.StatePath = mustExpand(cfg.StatePath)
	if cfg.LogPath == "" {
		cfg.LogPath = defaultLogPath
	}
	cfg.LogPath = mustExpand(cfg.LogPath)
	if raw.MaxImageWidth != nil && *raw.MaxImageWidth >= 0 {
		cfg.MaxImageWidth = *raw.MaxImageWidth
	}
	if raw.MaxImageHeight != nil && *raw.MaxImageHeight >= 0 {
		cfg.MaxImageHeight = *raw.MaxImageHeight
	}
	if cfg.DateLocale == "" {
		cfg.DateLocale = defaultDateLocale
	}
	return cfg
}

// APIBase returns the REST root, for example
// http://localhost/wp/wp_plugins/wp-json.
func (c Config) APIBase() string {
	return strings.TrimRight(c.SiteURL, "/") + c.APIPath
}

// BasicPassword returns the password used for basic-auth calls. An
// application password takes precedence over the login password.
func (c Config) BasicPassword() string {
	if c.ApplicationPassword != "" {
		return c.ApplicationPassword
	}
	return c.Password
}

// HasCredentials reports whether a token exchange can be attempted.
func (c Config) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
