package agent

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/fingerprint"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/geo"
)

type ServerConfig struct {
	URL            string        `yaml:"url"`
	Token          string        `yaml:"token"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type BranchConfig struct {
	ID           string `yaml:"id"`
	geo.Geofence `yaml:",inline"`
}

type QueueConfig struct {
	StorePath     string        `yaml:"store_path"`
	MaxAttempts   int           `yaml:"max_attempts"` // 0: unlimited
	ProbeInterval time.Duration `yaml:"probe_interval"`
}

type PositionConfig struct {
	FixTimeout time.Duration `yaml:"fix_timeout"`
	// Fixed reports a constant position, for kiosks mounted at one site.
	Fixed *geo.Position `yaml:"fixed"`
}

type Config struct {
	Server     ServerConfig           `yaml:"server"`
	EmployeeID string                 `yaml:"employee_id"`
	CompanyID  string                 `yaml:"company_id"`
	Branch     *BranchConfig          `yaml:"branch"`
	Queue      QueueConfig            `yaml:"queue"`
	Position   PositionConfig         `yaml:"position"`
	Device     fingerprint.Attributes `yaml:"device"`
	LogLevel   string                 `yaml:"log_level"`
}

// LoadConfig reads the agent YAML file at path and fills defaults.
// AGENT_TOKEN overrides server.token so the token can stay out of the file.
func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse agent config: %w", err)
	}
	if token := os.Getenv("AGENT_TOKEN"); token != "" {
		cfg.Server.Token = token
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	c.Server.URL = strings.TrimRight(c.Server.URL, "/")
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = 10 * time.Second
	}
	if c.Queue.StorePath == "" {
		c.Queue.StorePath = "attendance-agent.db"
	}
	if c.Queue.ProbeInterval <= 0 {
		c.Queue.ProbeInterval = 15 * time.Second
	}
	if c.Position.FixTimeout <= 0 {
		c.Position.FixTimeout = 30 * time.Second
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.URL == "" {
		errs = append(errs, errors.New("server.url is required"))
	}
	if c.Server.Token == "" {
		errs = append(errs, errors.New("server.token is required"))
	}
	if c.EmployeeID == "" {
		errs = append(errs, errors.New("employee_id is required"))
	}
	if c.CompanyID == "" {
		errs = append(errs, errors.New("company_id is required"))
	}
	if c.Branch != nil && c.Branch.RadiusMeters <= 0 {
		errs = append(errs, errors.New("branch.radius_meters must be positive"))
	}
	if c.Queue.MaxAttempts < 0 {
		errs = append(errs, errors.New("queue.max_attempts must not be negative"))
	}
	return errors.Join(errs...)
}

// Geofence returns the configured branch boundary, or nil.
func (c *Config) Geofence() *geo.Geofence {
	if c.Branch == nil {
		return nil
	}
	fence := c.Branch.Geofence
	return &fence
}
