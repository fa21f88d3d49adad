package configuration

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LocalOverrideFile is read after the main configuration file when present.
const LocalOverrideFile = "settings.local.cfg"

// Config holds the parsed INI-style settings of the application.
type Config struct {
	settings map[string]map[string]string
	filePath string
	mu       sync.RWMutex
}

var (
	globalConfig *Config
	once         sync.Once
)

// sectionOrder fixes the order in which sections are written.
var sectionOrder = []string{"Server", "Vault", "Authentication", "JWT", "Gallery", "Security", "Network", "WebSocket", "TLS", "Database", "Debug"}

// Initialize loads the global configuration. A missing file is created
// with defaults.
func Initialize(configPath string) error {
	var err error
	once.Do(func() {
		globalConfig, err = loadConfig(configPath)
		if err != nil {
			return
		}
		localPath := filepath.Join(filepath.Dir(configPath), LocalOverrideFile)
		if _, statErr := os.Stat(localPath); statErr == nil {
			// Silent error - config loading continues with base config
			_ = globalConfig.loadLocalConfig(localPath)
		}
	})
	return err
}

// Path returns the file the configuration was loaded from.
func Path() string {
	if globalConfig == nil {
		return ""
	}
	return globalConfig.filePath
}

// loadConfig reads the configuration file or writes the defaults when it
// does not exist yet.
func loadConfig(filePath string) (*Config, error) {
	config := &Config{
		settings: make(map[string]map[string]string),
		filePath: filePath,
	}
	config.createDefaultConfig()

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		if err := config.saveToFile(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return config, nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := config.parse(file); err != nil {
		return nil, err
	}
	return config, nil
}

// loadLocalConfig overlays values from a second file.
func (c *Config) loadLocalConfig(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.parse(file)
}

// parse reads sections and key = value pairs; later values win. Keys
// outside of a section are ignored.
func (c *Config) parse(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	var section map[string]string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "", line[0] == ';', line[0] == '#':
			// leer oder Kommentar
		case line[0] == '[' && strings.HasSuffix(line, "]"):
			name := strings.TrimSpace(line[1 : len(line)-1])
			if c.settings[name] == nil {
				c.settings[name] = make(map[string]string)
			}
			section = c.settings[name]
		default:
			key, value, ok := strings.Cut(line, "=")
			if ok && section != nil {
				section[strings.TrimSpace(key)] = strings.TrimSpace(value)
			}
		}
	}
	return scanner.Err()
}

// createDefaultConfig fills in every setting the application reads.
func (c *Config) createDefaultConfig() {
	c.settings["Server"] = map[string]string{
		"listen_address":  "",
		"read_timeout":    "15s",
		"write_timeout":   "30s",
		"idle_timeout":    "60s",
		"allowed_origins": "",
	}

	c.settings["Vault"] = map[string]string{
		"default_passcode":    "1701",
		"min_passcode_length": "4",
		"max_passcode_length": "12",
		"hidden_route":        "/gallery",
	}

	c.settings["Authentication"] = map[string]string{
		"max_username_length":     "20",
		"min_username_length":     "3",
		"max_password_length":     "100",
		"min_password_length":     "6",
		"password_hash_cost":      "12",
		"enable_anonymous_access": "true",
		"enable_registration":     "true",
	}

	c.settings["JWT"] = map[string]string{
		"secret_key":     "",
		"token_lifetime": "24h",
		"guest_lifetime": "12h",
		"cookie_name":    "vault_token",
		"secure_cookie":  "false",
	}

	c.settings["Gallery"] = map[string]string{
		"max_image_size_kb":   "10240",
		"max_images_per_user": "500",
	}

	c.settings["Security"] = map[string]string{
		"max_clients":         "100",
		"rate_limit_messages": "120",
		"rate_limit_window":   "1m",
	}

	c.settings["Network"] = map[string]string{
		"pong_timeout":        "90s",
		"write_wait_timeout":  "10s",
		"max_message_size_kb": "4",
		"max_channel_buffer":  "64",
	}

	c.settings["WebSocket"] = map[string]string{
		"read_buffer_size":  "1024",
		"write_buffer_size": "1024",
	}

	c.settings["TLS"] = map[string]string{
		"enable_tls":          "false",
		"enable_lets_encrypt": "false",
		"domain":              "",
		"lets_encrypt_email":  "",
		"cert_cache_dir":      "./certs",
		"http_port":           "8080",
		"https_port":          "8443",
		"redirect_http":       "true",
		"cert_file":           "",
		"key_file":            "",
	}

	c.settings["Database"] = map[string]string{
		"path":            "calcvault.db",
		"busy_timeout_ms": "5000",
		"max_open_conns":  "1",
	}

	c.settings["Debug"] = map[string]string{
		"enable_debug_logging": "true",
		"log_level":            "INFO",
		"log_file":             "calcvault.log",
		"max_log_size_mb":      "10",
		"log_rotation_count":   "3",
		// Selektive Logging-Bereiche
		"log_websocket": "false",
		"log_keypad":    "false",
		"log_vault":     "true",
		"log_auth":      "true",
		"log_gallery":   "true",
		"log_database":  "false",
		"log_security":  "true",
		"log_session":   "false",
		"log_config":    "true",
		"log_general":   "true",
	}
}

// saveToFile writes all sections in a stable order.
func (c *Config) saveToFile() error {
	dir := filepath.Dir(c.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	file, err := os.Create(c.filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	fmt.Fprintln(w, "; calcvault configuration file")
	fmt.Fprintln(w, "; Generated automatically - modify with care")
	fmt.Fprintln(w, ";")
	fmt.Fprintln(w)

	written := make(map[string]bool, len(c.settings))
	sections := append([]string{}, sectionOrder...)
	extra := make([]string, 0)
	for name := range c.settings {
		extra = append(extra, name)
	}
	sort.Strings(extra)
	sections = append(sections, extra...)

	for _, section := range sections {
		settings, exists := c.settings[section]
		if !exists || written[section] {
			continue
		}
		written[section] = true

		fmt.Fprintf(w, "[%s]\n", section)
		keys := make([]string, 0, len(settings))
		for key := range settings {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(w, "%s = %s\n", key, settings[key])
		}
		fmt.Fprintln(w)
	}

	return w.Flush()
}

// GetString returns the value of key in section or defaultValue.
func GetString(section, key, defaultValue string) string {
	if v, ok := lookup(section, key); ok {
		return v
	}
	return defaultValue
}

func lookup(section, key string) (string, bool) {
	if globalConfig == nil {
		return "", false
	}
	globalConfig.mu.RLock()
	defer globalConfig.mu.RUnlock()

	v, ok := globalConfig.settings[section][key]
	return v, ok
}

// parsed liefert defaultValue bei fehlendem, leerem oder ungültigem Wert.
func parsed[T any](section, key string, defaultValue T, parse func(string) (T, error)) T {
	raw, ok := lookup(section, key)
	if !ok || raw == "" {
		return defaultValue
	}
	v, err := parse(raw)
	if err != nil {
		return defaultValue
	}
	return v
}

func GetInt(section, key string, defaultValue int) int {
	return parsed(section, key, defaultValue, strconv.Atoi)
}

func GetBool(section, key string, defaultValue bool) bool {
	return parsed(section, key, defaultValue, strconv.ParseBool)
}

// GetDuration accepts Go duration strings such as "90s" or "24h".
func GetDuration(section, key string, defaultValue time.Duration) time.Duration {
	return parsed(section, key, defaultValue, time.ParseDuration)
}

// GetList splits a comma separated value, dropping empty entries.
func GetList(section, key string) []string {
	var out []string
	for _, part := range strings.Split(GetString(section, key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SetString overrides a value in memory only; the file is not rewritten.
func SetString(section, key, value string) {
	if globalConfig == nil {
		return
	}

	globalConfig.mu.Lock()
	defer globalConfig.mu.Unlock()

	if globalConfig.settings[section] == nil {
		globalConfig.settings[section] = make(map[string]string)
	}

	globalConfig.settings[section][key] = value
}
