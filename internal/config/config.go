package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config models quotaline.yml.
type Config struct {
	Team struct {
		ID   string `yaml:"id" json:"id" validate:"required"`
		Name string `yaml:"name" json:"name,omitempty"`
	} `yaml:"team" json:"team"`
	Scoring Scoring `yaml:"scoring" json:"scoring"`
	RBAC    struct {
		Roles map[string]RBACRole `yaml:"roles" json:"roles" validate:"required,dive,keys,required,endkeys"`
	} `yaml:"rbac" json:"rbac"`
	Scan struct {
		Schedule string `yaml:"schedule" json:"schedule,omitempty"`
	} `yaml:"scan" json:"scan"`
	Logging struct {
		Level string `yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn error"`
	} `yaml:"logging" json:"logging"`
}

// Scoring holds the performance score weights.
type Scoring struct {
	TaskCompletedPoints   float64       `yaml:"task_completed_points" json:"task_completed_points"`
	TaskIncompletedPoints float64       `yaml:"task_incompleted_points" json:"task_incompleted_points"`
	VolumeMaxPoints       float64       `yaml:"volume_max_points" json:"volume_max_points" validate:"gte=0"`
	VolumeUploads         int           `yaml:"volume_uploads" json:"volume_uploads" validate:"gte=1"`
	RecencyMaxPoints      float64       `yaml:"recency_max_points" json:"recency_max_points" validate:"gte=0"`
	RecencyUploads        int           `yaml:"recency_uploads" json:"recency_uploads" validate:"gte=1"`
	RecencyWindow         time.Duration `yaml:"recency_window" json:"recency_window" validate:"gt=0"`
}

type RBACRole struct {
	Description string   `yaml:"description" json:"description,omitempty"`
	Permissions []string `yaml:"permissions" json:"permissions" validate:"dive,required"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; import with ql config import --file <path>", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

var structValidator = validator.New()

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if err := structValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			var msgs []string
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return err
	}
	for _, required := range []string{"owner", "manager", "uploader"} {
		if _, ok := c.RBAC.Roles[required]; !ok {
			return fmt.Errorf("config.rbac.roles must include %s", required)
		}
	}
	return nil
}

// LogLevel maps logging.level onto slog.
func (c *Config) LogLevel() slog.Level {
	switch c.Logging.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "quotaline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(teamID string) string {
	return fmt.Sprintf(defaultTemplate, teamID)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct for a team.
func Default(teamID string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(GenerateDefault(teamID))).Decode(&cfg)
	cfg.Team.ID = teamID
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys missing from
// data keep their default values; roles are merged over the default roles.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `team:
  id: %s
  name: Upload team

scoring:
  task_completed_points: 6
  task_incompleted_points: -4
  volume_max_points: 3
  volume_uploads: 50
  recency_max_points: 1
  recency_uploads: 5
  recency_window: 168h

rbac:
  roles:
    owner:
      description: "Runs the team; everything a manager can do"
      permissions: [task.assign, task.cancel, task.complete, task.toggle, task.scan, team.read, admin.write, content.write]
    manager:
      description: "Assigns and resolves upload quotas"
      permissions: [task.assign, task.cancel, task.complete, task.toggle, task.scan, team.read, content.write]
    uploader:
      description: "Uploads content and works their own checklist"
      permissions: [task.toggle, team.read]

scan:
  schedule: ""

logging:
  level: info
`
