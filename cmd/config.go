package cmd

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/feederco/really-simple-snapshot-backup/pkg"
	"github.com/feederco/really-simple-snapshot-backup/pkg/alerting"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "/etc/really-simple-snapshot-backup.json"
const defaultEnvFile = ".env"

// ConfigStruct contains every setting of a run. It can be preloaded from a
// .json or .yaml file; environment variables take precedence.
type ConfigStruct struct {
	BackupPath                 string  `json:"backup_path" yaml:"backup_path"`
	BackupMaxSizeGB            *uint64 `json:"backup_max_size_gb" yaml:"backup_max_size_gb"`
	DeleteOldestOnLimitReached *bool   `json:"backup_delete_oldest_on_limit_reached" yaml:"backup_delete_oldest_on_limit_reached"`
	MirrorConcurrency          int     `json:"mirror_concurrency" yaml:"mirror_concurrency"`
	Schedule                   string  `json:"schedule" yaml:"schedule"`

	Database      pkg.DatabaseConfig      `json:"database" yaml:"database"`
	ObjectStorage pkg.ObjectStorageConfig `json:"object_storage" yaml:"object_storage"`
	Alerting      *pkg.AlertingConfig     `json:"alerting" yaml:"alerting"`

	Verbose bool `json:"-" yaml:"-"`
}

// RetentionPolicy converts the configured cap into a typed policy
func (c ConfigStruct) RetentionPolicy() RetentionPolicy {
	policy := RetentionPolicy{}
	if c.BackupMaxSizeGB != nil {
		policy.CapBytes = gigaBytesToBytes(*c.BackupMaxSizeGB)
	}
	if c.DeleteOldestOnLimitReached != nil {
		policy.DeleteOldestOnLimitReached = *c.DeleteOldestOnLimitReached
	}
	return policy
}

type envBinding struct {
	key   string
	apply func(configStruct *ConfigStruct, value string) error
}

var envBindings = []envBinding{
	{"BACKUP_PATH", func(c *ConfigStruct, v string) error { c.BackupPath = v; return nil }},
	{"BACKUP_MAX_SIZE_GB", func(c *ConfigStruct, v string) error {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return errors.New("expected a whole number of gigabytes")
		}
		if parsed > (1<<64-1)/bytesPerGigaByte {
			return errors.New("value too large")
		}
		c.BackupMaxSizeGB = &parsed
		return nil
	}},
	{"BACKUP_DELETE_OLDEST_ON_LIMIT_REACHED", func(c *ConfigStruct, v string) error {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New("expected true or false")
		}
		c.DeleteOldestOnLimitReached = &parsed
		return nil
	}},
	{"BACKUP_MIRROR_CONCURRENCY", func(c *ConfigStruct, v string) error {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return errors.New("expected a positive number")
		}
		c.MirrorConcurrency = parsed
		return nil
	}},
	{"BACKUP_SCHEDULE", func(c *ConfigStruct, v string) error { c.Schedule = v; return nil }},

	{"DB_CONNECTION", func(c *ConfigStruct, v string) error { c.Database.Connection = v; return nil }},
	{"DB_HOST", func(c *ConfigStruct, v string) error { c.Database.Host = v; return nil }},
	{"DB_PORT", func(c *ConfigStruct, v string) error {
		parsed, err := strconv.ParseUint(v, 10, 16)
		if err != nil || parsed == 0 {
			return errors.New("expected a port number")
		}
		c.Database.Port = uint16(parsed)
		return nil
	}},
	{"DB_USERNAME", func(c *ConfigStruct, v string) error { c.Database.Username = v; return nil }},
	{"DB_PASSWORD", func(c *ConfigStruct, v string) error { c.Database.Password = v; return nil }},
	{"DB_DATABASE", func(c *ConfigStruct, v string) error { c.Database.Database = v; return nil }},

	{"AWS_ENDPOINT", func(c *ConfigStruct, v string) error { c.ObjectStorage.Endpoint = v; return nil }},
	{"AWS_DEFAULT_REGION", func(c *ConfigStruct, v string) error { c.ObjectStorage.Region = v; return nil }},
	{"AWS_ACCESS_KEY_ID", func(c *ConfigStruct, v string) error { c.ObjectStorage.AccessKeyID = v; return nil }},
	{"AWS_SECRET_ACCESS_KEY", func(c *ConfigStruct, v string) error { c.ObjectStorage.SecretAccessKey = v; return nil }},
	{"AWS_BUCKET", func(c *ConfigStruct, v string) error { c.ObjectStorage.Bucket = v; return nil }},

	{"SLACK_WEBHOOK_URL", func(c *ConfigStruct, v string) error { slackConfig(c).WebhookURL = v; return nil }},
	{"SLACK_CHANNEL", func(c *ConfigStruct, v string) error { slackConfig(c).Channel = v; return nil }},
	{"SLACK_USERNAME", func(c *ConfigStruct, v string) error { slackConfig(c).Username = v; return nil }},
}

func slackConfig(configStruct *ConfigStruct) *alerting.SlackConfig {
	if configStruct.Alerting == nil {
		configStruct.Alerting = &pkg.AlertingConfig{}
	}
	if configStruct.Alerting.Slack == nil {
		configStruct.Alerting.Slack = &alerting.SlackConfig{}
	}
	return configStruct.Alerting.Slack
}

func loadConfig(args []string) (ConfigStruct, error) {
	configFlag := flag.String("config", "", "Path to a .json or .yaml config file to load default configs from. (Default: "+defaultConfigPath+")")
	envFileFlag := flag.String("env-file", "", "Path to a dotenv file with settings. (Default: "+defaultEnvFile+" when present)")
	verboseFlag := flag.Bool("v", false, "Verbose logging")

	if err := pkg.ParseCommandLineFlags(args); err != nil {
		return ConfigStruct{}, err
	}

	if err := loadEnvFile(*envFileFlag); err != nil {
		return ConfigStruct{}, err
	}

	configStruct := ConfigStruct{}

	if *configFlag != "" {
		var didExist bool
		var err error
		configStruct, didExist, err = loadConfigAtPath(*configFlag)
		if !didExist {
			return configStruct, &pkg.ConfigurationError{Key: "-config", Reason: "file not found: " + *configFlag}
		}
		if err != nil {
			return configStruct, err
		}
	} else {
		loaded, didExist, err := loadConfigAtPath(defaultConfigPath)

		// If default file doesn't exist we don't error. But if it does and is broken we error.
		if didExist && err != nil {
			return configStruct, err
		}
		configStruct = loaded
	}

	if err := applyEnvironment(&configStruct); err != nil {
		return configStruct, err
	}

	if configStruct.Database.Connection == "" {
		configStruct.Database.Connection = pkg.ConnectionMySQL
	}

	configStruct.Verbose = *verboseFlag

	return configStruct, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(defaultEnvFile); err != nil {
			return nil
		}
		path = defaultEnvFile
	}

	// Variables already present in the environment win over the file
	if err := godotenv.Load(path); err != nil {
		return &pkg.ConfigurationError{Key: "-env-file", Reason: err.Error()}
	}
	return nil
}

func loadConfigAtPath(path string) (ConfigStruct, bool, error) {
	var configStruct ConfigStruct

	configFile, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return configStruct, false, nil
	}
	if err != nil {
		return configStruct, true, &pkg.ConfigurationError{Key: "-config", Reason: err.Error()}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(configFile, &configStruct)
	default:
		err = json.Unmarshal(configFile, &configStruct)
	}

	if err != nil {
		return configStruct, true, &pkg.ConfigurationError{Key: "-config", Reason: "could not decode " + path + ": " + err.Error()}
	}

	return configStruct, true, nil
}

func applyEnvironment(configStruct *ConfigStruct) error {
	for _, binding := range envBindings {
		value, ok := os.LookupEnv(binding.key)
		if !ok || value == "" {
			continue
		}

		if err := binding.apply(configStruct, value); err != nil {
			return &pkg.ConfigurationError{Key: binding.key, Reason: fmt.Sprintf("invalid value %q: %s", value, err)}
		}
	}
	return nil
}

// validate reports every missing setting at once. Commands that never touch
// the database or the bucket pass requireCollaborators=false.
func (c ConfigStruct) validate(requireCollaborators bool) error {
	missing := make([]string, 0)
	require := func(key string, present bool) {
		if !present {
			missing = append(missing, key)
		}
	}

	require("BACKUP_PATH", c.BackupPath != "")
	require("BACKUP_MAX_SIZE_GB", c.BackupMaxSizeGB != nil)
	require("BACKUP_DELETE_OLDEST_ON_LIMIT_REACHED", c.DeleteOldestOnLimitReached != nil)

	if requireCollaborators {
		require("DB_HOST", c.Database.Host != "")
		require("DB_PORT", c.Database.Port != 0)
		require("DB_USERNAME", c.Database.Username != "")
		require("DB_PASSWORD", c.Database.Password != "")
		require("DB_DATABASE", c.Database.Database != "")
		require("AWS_ENDPOINT", c.ObjectStorage.Endpoint != "")
		require("AWS_DEFAULT_REGION", c.ObjectStorage.Region != "")
		require("AWS_ACCESS_KEY_ID", c.ObjectStorage.AccessKeyID != "")
		require("AWS_SECRET_ACCESS_KEY", c.ObjectStorage.SecretAccessKey != "")
		require("AWS_BUCKET", c.ObjectStorage.Bucket != "")
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return &pkg.ConfigurationError{Key: strings.Join(missing, ", "), Reason: "required setting is missing"}
	}

	if c.Database.Connection != pkg.ConnectionMySQL && c.Database.Connection != pkg.ConnectionPostgres {
		return &pkg.ConfigurationError{Key: "DB_CONNECTION", Reason: fmt.Sprintf("unsupported connection %q", c.Database.Connection)}
	}

	if c.Alerting != nil && c.Alerting.Slack != nil && c.Alerting.Slack.WebhookURL == "" {
		return &pkg.ConfigurationError{Key: "SLACK_WEBHOOK_URL", Reason: "required when other Slack settings are given"}
	}

	return nil
}
