package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/tap-freshcaller/internal/core/domain"
	"github.com/custodia-labs/tap-freshcaller/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// EnvFile is the dotenv file looked up next to the config file.
const EnvFile = ".env"

// EnvOverrides maps environment variables to the config keys they replace.
var EnvOverrides = map[string]string{
	"FRESHCALLER_API_KEY":    "api_key",
	"FRESHCALLER_DOMAIN":     "domain",
	"FRESHCALLER_START_DATE": "start_date",
}

// ConfigStore is a read-only configuration loaded from a JSON or TOML file.
// Values are layered: the file, then the sibling .env file, then the
// process environment.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]any
}

// NewConfigStore loads the configuration file at path.
func NewConfigStore(path string) (*ConfigStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: config path is required", domain.ErrInvalidInput)
	}

	s := &ConfigStore{
		filePath: path,
		data:     make(map[string]any),
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get retrieves a configuration value by key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	return val, ok
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) string {
	val, ok := s.Get(key)
	if !ok {
		return ""
	}

	str, ok := val.(string)
	if !ok {
		return ""
	}
	return str
}

// GetInt retrieves an integer configuration value. Strings holding an
// integer are accepted since environment overrides are always strings.
func (s *ConfigStore) GetInt(key string) int {
	val, ok := s.Get(key)
	if !ok {
		return 0
	}

	// TOML integers are parsed as int64, JSON numbers as float64
	switch v := val.(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		if v != float64(int(v)) {
			return 0
		}
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Load reads the configuration file and applies overrides.
func (s *ConfigStore) Load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: config file %s", domain.ErrNotFound, s.filePath)
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	loaded, err := decode(s.filePath, data)
	if err != nil {
		return err
	}

	env, err := readEnvFile(filepath.Join(filepath.Dir(s.filePath), EnvFile))
	if err != nil {
		return err
	}
	for name, key := range EnvOverrides {
		if value, ok := env[name]; ok && value != "" {
			loaded[key] = value
		}
		if value, ok := os.LookupEnv(name); ok && value != "" {
			loaded[key] = value
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = loaded
	return nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// decode parses data according to the file extension.
func decode(path string, data []byte) (map[string]any, error) {
	var loaded map[string]any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %w", domain.ErrInvalidInput, path, err)
		}
	case ".json", "":
		if err := json.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %w", domain.ErrInvalidInput, path, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config format %q", domain.ErrInvalidInput, ext)
	}

	if loaded == nil {
		loaded = make(map[string]any)
	}
	return loaded, nil
}

// readEnvFile returns the variables in a dotenv file without touching the
// process environment. A missing file yields no variables.
func readEnvFile(path string) (map[string]string, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return env, nil
}
