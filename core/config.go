package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		DebugHost       string
		ShutdownTimeout time.Duration

		JWTExpirationDelta  time.Duration
		AdminSessionTimeout time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		DisableTLS    bool
	}

	GistConfig struct {
		APIBaseURL   string
		Token        string
		MasterGistID string
		ConfigFile   string
		DataFile     string
	}

	Config struct {
		Debug    bool
		TestMode bool
		Env      string
		Build    string
		AppName  string

		SecretKey     string
		AdminPassword string
		// ClassPin seeds stores that hold no class config yet (in-memory
		// runs, fresh databases). Remote stores keep their own pin.
		ClassPin string

		// gamification defaults
		JoinBonus        int
		PointsFirstView  int
		PointsCompletion int
		MinViewTime      int // seconds

		// persistence
		CacheDir     string
		SyncDebounce time.Duration
		SaveTimeout  time.Duration

		// class schedule (term bounds; class held Tue & Thu)
		TermStart string // YYYY-MM-DD
		TermEnd   string // YYYY-MM-DD
		Holidays  []string

		DefaultFromEmail mail.Address
		InstructorEmail  mail.Address

		RollbarToken   string
		SendgridApiKey string

		Server   ServerConfig
		Database DatabaseConfig
		Gist     GistConfig
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "ClassPoints")
	conf.SetDefault("build", "dev")
	conf.SetDefault("secretKey", "q2w)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	conf.SetDefault("adminPassword", "")
	conf.SetDefault("classPin", "")
	conf.SetDefault("joinBonus", 10)
	conf.SetDefault("pointsFirstView", 10)
	conf.SetDefault("pointsCompletion", 5)
	conf.SetDefault("minViewTime", 30)
	conf.SetDefault("cacheDir", filepath.Join(Getwd(), ".cache"))
	conf.SetDefault("syncDebounce", time.Second)
	conf.SetDefault("saveTimeout", 10*time.Second)
	conf.SetDefault("termStart", "2025-08-26")
	conf.SetDefault("termEnd", "2025-12-11")
	conf.SetDefault("holidays", []string{"2025-11-27"})
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("instructorEmail", "")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("sendgridApiKey", "")

	conf.SetDefault("serverHost", "0.0.0.0:8000")
	conf.SetDefault("serverDebugHost", "0.0.0.0:4000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("adminSessionTimeout", 8*time.Hour)

	conf.SetDefault("databaseEngine", "postgres")
	conf.SetDefault("databaseName", "classpoints")
	conf.SetDefault("databaseUser", "")
	conf.SetDefault("databasePassword", "")
	conf.SetDefault("databaseAdminUser", "")
	conf.SetDefault("databaseAdminPassword", "")
	conf.SetDefault("databaseHost", "localhost")
	conf.SetDefault("databasePort", "5432")
	conf.SetDefault("databaseDisableTLS", true)

	conf.SetDefault("gistApiBaseUrl", "https://api.github.com/gists")
	conf.SetDefault("gistToken", "")
	conf.SetDefault("gistMasterId", "")
	conf.SetDefault("gistConfigFile", "class-config.json")
	conf.SetDefault("gistDataFile", "student-data.json")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:    conf.GetBool("debug"),
		TestMode: conf.GetBool("testMode"),
		Env:      env,
		Build:    conf.GetString("build"),
		AppName:  conf.GetString("appName"),

		SecretKey:     conf.GetString("secretKey"),
		AdminPassword: conf.GetString("adminPassword"),
		ClassPin:      conf.GetString("classPin"),

		JoinBonus:        conf.GetInt("joinBonus"),
		PointsFirstView:  conf.GetInt("pointsFirstView"),
		PointsCompletion: conf.GetInt("pointsCompletion"),
		MinViewTime:      conf.GetInt("minViewTime"),

		CacheDir:     conf.GetString("cacheDir"),
		SyncDebounce: conf.GetDuration("syncDebounce"),
		SaveTimeout:  conf.GetDuration("saveTimeout"),

		TermStart: conf.GetString("termStart"),
		TermEnd:   conf.GetString("termEnd"),
		Holidays:  conf.GetStringSlice("holidays"),

		DefaultFromEmail: mail.Address{Name: conf.GetString("appName"), Address: conf.GetString("defaultFromEmail")},
		InstructorEmail:  mail.Address{Address: conf.GetString("instructorEmail")},

		RollbarToken:   conf.GetString("rollbarToken"),
		SendgridApiKey: conf.GetString("sendgridApiKey"),

		Server: ServerConfig{
			Host:                conf.GetString("serverHost"),
			DebugHost:           conf.GetString("serverDebugHost"),
			ShutdownTimeout:     conf.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:  conf.GetDuration("jwtExpirationDelta"),
			AdminSessionTimeout: conf.GetDuration("adminSessionTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("databaseEngine"),
			Name:          conf.GetString("databaseName"),
			User:          conf.GetString("databaseUser"),
			Password:      conf.GetString("databasePassword"),
			AdminUser:     conf.GetString("databaseAdminUser"),
			AdminPassword: conf.GetString("databaseAdminPassword"),
			Host:          conf.GetString("databaseHost"),
			Port:          conf.GetString("databasePort"),
			DisableTLS:    conf.GetBool("databaseDisableTLS"),
		},
		Gist: GistConfig{
			APIBaseURL:   conf.GetString("gistApiBaseUrl"),
			Token:        conf.GetString("gistToken"),
			MasterGistID: conf.GetString("gistMasterId"),
			ConfigFile:   conf.GetString("gistConfigFile"),
			DataFile:     conf.GetString("gistDataFile"),
		},
	}
}

// Getwd returns the working directory of the running process.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.Getwd: %v", err)
	}
	return wd
}
