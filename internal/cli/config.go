package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/syssam/querygen/dialect"
	"github.com/syssam/querygen/dialect/sql"
)

const (
	maxWalkDepth = 25
	envPrefix    = "QUERYGEN"
)

// Config represents the querygen configuration from querygen.yaml.
type Config struct {
	// Dialect is used for documents that do not name one.
	Dialect string `mapstructure:"dialect" yaml:"dialect"`
	// Timezone is an IANA zone name dates are rendered in.
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
	// Concurrency bounds the number of documents compiled at once.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
	// DSN is the data source used by explain.
	DSN string `mapstructure:"dsn" yaml:"dsn"`

	OperatorAliases []AliasConfig `mapstructure:"operator_aliases" yaml:"operator_aliases"`

	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Policy  PolicyConfig  `mapstructure:"policy" yaml:"policy"`
	Compile CompileConfig `mapstructure:"compile" yaml:"compile"`
	Explain ExplainConfig `mapstructure:"explain" yaml:"explain"`
}

// AliasConfig maps an alternative operator spelling to a canonical token.
// Aliases are a list rather than a map because viper folds map keys to
// lower case.
type AliasConfig struct {
	Alias    string `mapstructure:"alias" yaml:"alias"`
	Operator string `mapstructure:"operator" yaml:"operator"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// PolicyConfig holds the rules applied to every compiled operation.
type PolicyConfig struct {
	ReadOnly       bool     `mapstructure:"read_only" yaml:"read_only"`
	DenyUnfiltered bool     `mapstructure:"deny_unfiltered" yaml:"deny_unfiltered"`
	DenyDDL        bool     `mapstructure:"deny_ddl" yaml:"deny_ddl"`
	DenyTables     []string `mapstructure:"deny_tables" yaml:"deny_tables"`
}

// CompileConfig holds compile command settings.
type CompileConfig struct {
	Format         string `mapstructure:"format" yaml:"format"`
	TypeValidation bool   `mapstructure:"type_validation" yaml:"type_validation"`
	OmitNull       bool   `mapstructure:"omit_null" yaml:"omit_null"`
}

// ExplainConfig holds explain command settings.
type ExplainConfig struct {
	SlowThreshold time.Duration `mapstructure:"slow_threshold" yaml:"slow_threshold"`
}

// LoadConfig discovers and loads configuration with proper precedence:
// flags > env > config file > defaults.
//
// Returns the loaded config, the path to the config file (empty if none found),
// and any error encountered.
func LoadConfig(explicitConfigPath string) (*Config, string, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, configPath, err
	}

	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dialect", dialect.Postgres)
	v.SetDefault("timezone", "UTC")
	v.SetDefault("concurrency", 4)
	v.SetDefault("dsn", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("policy.read_only", false)
	v.SetDefault("policy.deny_unfiltered", false)
	v.SetDefault("policy.deny_ddl", false)
	v.SetDefault("policy.deny_tables", []string{})

	v.SetDefault("compile.format", "sql")
	v.SetDefault("compile.type_validation", true)
	v.SetDefault("compile.omit_null", false)

	v.SetDefault("explain.slow_threshold", "100ms")
}

// findConfigFile finds the config file to use.
// If explicitPath is provided, it validates the file exists.
// Otherwise, it walks up from cwd looking for querygen.yaml or querygen.yml,
// stopping at a .git directory or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range []string{"querygen.yaml", "querygen.yml"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		// Stop at the repository root.
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil
}

// Validate checks the settings that can be verified without a document.
func (c *Config) Validate() error {
	if c.Dialect != "" {
		if _, err := dialect.Lookup(c.Dialect); err != nil {
			return err
		}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	if _, err := c.Aliases(); err != nil {
		return err
	}
	switch c.Compile.Format {
	case "", FormatSQL, FormatYAML:
	default:
		return fmt.Errorf("unknown compile format %q", c.Compile.Format)
	}
	return nil
}

// Location resolves the configured timezone. An empty zone yields nil.
func (c *Config) Location() (*time.Location, error) {
	return loadLocation(c.Timezone)
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", name, err)
	}
	return loc, nil
}

// Aliases returns the operator alias table, or nil when none is set.
func (c *Config) Aliases() (map[string]sql.Op, error) {
	if len(c.OperatorAliases) == 0 {
		return nil, nil
	}
	table := make(map[string]sql.Op, len(c.OperatorAliases))
	for _, a := range c.OperatorAliases {
		if a.Alias == "" {
			return nil, fmt.Errorf("operator alias for %q has no name", a.Operator)
		}
		if _, ok := table[a.Alias]; ok {
			return nil, fmt.Errorf("duplicate operator alias %q", a.Alias)
		}
		table[a.Alias] = sql.Op(a.Operator)
	}
	return table, nil
}
