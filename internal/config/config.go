package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	instance *Config
	once     sync.Once
)

// Config is the persisted, hot-reloadable settings surface for the engine.
// It mirrors the teacher's viper+fsnotify singleton, narrowed to the
// sections an audio engine actually needs (no library/UI/network/shortcuts).
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Stream   StreamSettings `mapstructure:"stream"`
	Master   MasterSettings `mapstructure:"master"`
	Advanced AdvancedConfig `mapstructure:"advanced"`
	v        *viper.Viper
	mu       sync.RWMutex
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Version  string `mapstructure:"version"`
	DataDir  string `mapstructure:"data_dir"`
	LogDir   string `mapstructure:"log_dir"`
	CacheDir string `mapstructure:"cache_dir"`
}

// StreamSettings persists the preferred StreamConfig and device selection;
// internal/engine.StreamConfig is what actually gets validated and opened.
type StreamSettings struct {
	SampleRate      int    `mapstructure:"sample_rate"`
	Channels        int    `mapstructure:"channels"`
	BufferSize      int    `mapstructure:"buffer_size"`
	RingBufferMult  int    `mapstructure:"ring_buffer_multiplier"`
	OutputDeviceID  string `mapstructure:"output_device_id"`
	LowLatencyMode  bool   `mapstructure:"low_latency_mode"`
}

// MasterSettings is the persisted master processing chain: volume, the
// active EQ preset/bands, and the soft-clip toggle. User-defined presets
// are not stored here.
type MasterSettings struct {
	Volume          float64          `mapstructure:"volume"`
	SoftClipEnabled bool             `mapstructure:"soft_clip_enabled"`
	Equalizer       EqualizerConfig  `mapstructure:"equalizer"`
}

type EqualizerConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	Preset  string      `mapstructure:"preset"`
	Bands   [10]float64 `mapstructure:"bands"` // dB gain per ISO band, -24..+24
}

type AdvancedConfig struct {
	LogLevel        string `mapstructure:"log_level"`
	EnableProfiling bool   `mapstructure:"enable_profiling"`
	ProfilePort     int    `mapstructure:"profile_port"`
	DebugMode       bool   `mapstructure:"debug_mode"`
	ThreadPoolSize  int    `mapstructure:"thread_pool_size"`
}

func Get() *Config {
	once.Do(func() {
		instance = &Config{
			v: viper.New(),
		}
		instance.load()
	})
	return instance
}

func (c *Config) load() error {
	c.v.SetConfigName("config")
	c.v.SetConfigType("yaml")

	c.v.AddConfigPath(c.getUserConfigDir())
	c.v.AddConfigPath(c.getSystemConfigDir())
	c.v.AddConfigPath(".")

	c.setDefaults()

	if err := c.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := c.createDefaultConfig(); err != nil {
				return fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := c.v.Unmarshal(c); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	c.v.WatchConfig()
	c.v.OnConfigChange(func(e fsnotify.ConfigFileChangeEvent) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if err := c.v.Unmarshal(c); err != nil {
			fmt.Printf("failed to reload config: %v\n", err)
		}
	})

	return nil
}

func (c *Config) setDefaults() {
	c.v.SetDefault("app.name", "Gecko Engine")
	c.v.SetDefault("app.version", "0.1.0")
	c.v.SetDefault("app.data_dir", c.getDataDir())
	c.v.SetDefault("app.log_dir", filepath.Join(c.getDataDir(), "logs"))
	c.v.SetDefault("app.cache_dir", filepath.Join(c.getDataDir(), "cache"))

	// Stream defaults mirror the engine's own StreamConfig defaults: 48kHz
	// stereo, 512-frame buffer, a 4x ring buffer multiplier.
	c.v.SetDefault("stream.sample_rate", 48000)
	c.v.SetDefault("stream.channels", 2)
	c.v.SetDefault("stream.buffer_size", 512)
	c.v.SetDefault("stream.ring_buffer_multiplier", 4)
	c.v.SetDefault("stream.output_device_id", "default")
	c.v.SetDefault("stream.low_latency_mode", false)

	c.v.SetDefault("master.volume", 1.0)
	c.v.SetDefault("master.soft_clip_enabled", true)
	c.v.SetDefault("master.equalizer.enabled", false)
	c.v.SetDefault("master.equalizer.preset", "Flat")
	c.v.SetDefault("master.equalizer.bands", [10]float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0})

	c.v.SetDefault("advanced.log_level", "info")
	c.v.SetDefault("advanced.enable_profiling", false)
	c.v.SetDefault("advanced.profile_port", 6060)
	c.v.SetDefault("advanced.debug_mode", false)
	c.v.SetDefault("advanced.thread_pool_size", runtime.NumCPU())
}

func (c *Config) getUserConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "Gecko")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "gecko-engine")
}

func (c *Config) getSystemConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("ProgramData"), "Gecko")
	}
	return "/etc/gecko-engine"
}

func (c *Config) getDataDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "Gecko")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "gecko-engine")
}

func (c *Config) createDefaultConfig() error {
	configDir := c.getUserConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.yaml")
	return c.v.SafeWriteConfigAs(configPath)
}

func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.WriteConfig()
}

func (c *Config) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v.ReadInConfig()
}

func (c *Config) GetString(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetString(key)
}

func (c *Config) GetInt(key string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetInt(key)
}

func (c *Config) GetBool(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetBool(key)
}

func (c *Config) GetDuration(key string) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetDuration(key)
}

func (c *Config) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v.Set(key, value)
}
