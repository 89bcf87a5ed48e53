package configure

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/kr/pretty"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

/*
{
  "level": "info",
  "pull": ["http://127.0.0.1:7001/live/movie.flv"],
  "api_addr": ":8090",
  "stash_size": 393216,
  "buffer_size": 3145728,
  "read_timeout": 10,
  "strict": false,
  "finished_ttl": 600,
  "jwt": {
    "secret": "",
    "algorithm": "HS256"
  }
}
*/

// JWT is the config of the api jwt guard
type JWT struct {
	Secret    string `mapstructure:"secret" json:"secret"`
	Algorithm string `mapstructure:"algorithm" json:"algorithm"`
}

// ServerCfg is the config of flvpull
type ServerCfg struct {
	Level       string   `mapstructure:"level" json:"level"`
	ConfigFile  string   `mapstructure:"config_file" json:"config_file"`
	Pull        []string `mapstructure:"pull" json:"pull"`
	APIAddr     string   `mapstructure:"api_addr" json:"api_addr"`
	StashSize   int      `mapstructure:"stash_size" json:"stash_size"`
	BufferSize  int      `mapstructure:"buffer_size" json:"buffer_size"`
	ReadTimeout int      `mapstructure:"read_timeout" json:"read_timeout"`
	Strict      bool     `mapstructure:"strict" json:"strict"`
	FinishedTTL int      `mapstructure:"finished_ttl" json:"finished_ttl"`
	JWT         JWT      `mapstructure:"jwt" json:"jwt"`
}

// default config
var defaultConf = ServerCfg{
	Level:       "info",
	ConfigFile:  "flvpull.yaml",
	APIAddr:     ":8090",
	StashSize:   384 * 1024,
	BufferSize:  3 * 1024 * 1024,
	ReadTimeout: 10,
	FinishedTTL: 600,
}

// Config is the global config
var Config = viper.New()

// InitLog applies the configured log level
func InitLog() {
	if l, err := log.ParseLevel(Config.GetString("level")); err == nil {
		log.SetLevel(l)
		log.SetReportCaller(l == log.DebugLevel)
	}
}

// Init loads defaults, then args, then the config file, then the
// environment into Config. args excludes the program name.
func Init(args []string) error {
	Config = viper.New()

	// Default config
	b, _ := json.Marshal(defaultConf)
	defaults := viper.New()
	defaults.SetConfigType("json")
	if err := defaults.ReadConfig(bytes.NewReader(b)); err != nil {
		return err
	}
	if err := Config.MergeConfigMap(defaults.AllSettings()); err != nil {
		return err
	}

	// Flags
	flags := pflag.NewFlagSet("flvpull", pflag.ContinueOnError)
	flags.String("level", defaultConf.Level, "Log level")
	flags.String("config_file", defaultConf.ConfigFile, "configure filename")
	flags.StringSlice("pull", nil, "HTTP-FLV URLs to pull, comma separated or repeated")
	flags.String("api_addr", defaultConf.APIAddr, "HTTP stats API listen address, empty to disable")
	flags.Int("stash_size", defaultConf.StashSize, "Reassembly buffer growth base in bytes")
	flags.Int("buffer_size", defaultConf.BufferSize, "Initial reassembly buffer size in bytes")
	flags.Int("read_timeout", defaultConf.ReadTimeout, "Abort a pull after this many seconds without data")
	flags.Bool("strict", defaultConf.Strict, "Report advisory stream anomalies as format errors")
	flags.Int("finished_ttl", defaultConf.FinishedTTL, "Seconds finished sessions stay visible in the API")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := Config.BindPFlags(flags); err != nil {
		return err
	}

	// File
	Config.SetConfigFile(Config.GetString("config_file"))
	Config.AddConfigPath(".")
	if err := Config.MergeInConfig(); err != nil {
		log.Warning(err)
		log.Info("Using default config")
	}

	// Environment
	replacer := strings.NewReplacer(".", "_")
	Config.SetEnvKeyReplacer(replacer)
	Config.AllowEmptyEnv(true)
	Config.AutomaticEnv()

	// Log
	InitLog()

	// Print final config
	c, err := Current()
	if err != nil {
		return err
	}
	log.Debugf("Current configurations: \n%# v", pretty.Formatter(c))
	return nil
}

// Current returns Config decoded into a ServerCfg
func Current() (ServerCfg, error) {
	c := ServerCfg{}
	err := Config.Unmarshal(&c)
	return c, err
}

// ReadTimeout returns read_timeout as a duration
func ReadTimeout() time.Duration {
	return time.Duration(Config.GetInt("read_timeout")) * time.Second
}

// FinishedTTL returns finished_ttl as a duration
func FinishedTTL() time.Duration {
	return time.Duration(Config.GetInt("finished_ttl")) * time.Second
}
