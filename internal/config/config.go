package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "REMINDER_"

const (
	StoreBackendFile     = "file"
	StoreBackendS3       = "s3"
	StoreBackendPostgres = "postgres"
)

type Application struct {
	// Host is the public base URL used to build the OAuth redirect URL.
	Host      string    `koanf:"host"`
	Port      int       `koanf:"port"`
	Timezone  string    `koanf:"timezone"`
	Google    Google    `koanf:"google"`
	Discord   Discord   `koanf:"discord"`
	Store     Store     `koanf:"store"`
	Database  Database  `koanf:"db"`
	Scheduler Scheduler `koanf:"scheduler"`
}

type Google struct {
	ClientId     string `koanf:"clientid"`
	ClientSecret string `koanf:"clientsecret"`
	RedirectUrl  string `koanf:"redirecturl"`
	CalendarId   string `koanf:"calendarid"`
}

type Discord struct {
	WebhookUrl string `koanf:"webhookurl"`
	ImageUrl   string `koanf:"imageurl"`
}

type Store struct {
	// Backend is one of "file", "s3" or "postgres".
	Backend  string `koanf:"backend"`
	FilePath string `koanf:"filepath"`
	S3       S3     `koanf:"s3"`
}

type S3 struct {
	Endpoint        string `koanf:"endpoint"`
	Region          string `koanf:"region"`
	AccessKeyId     string `koanf:"accesskeyid"`
	SecretAccessKey string `koanf:"secretaccesskey"`
	Bucket          string `koanf:"bucket"`
	Key             string `koanf:"key"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

// Scheduler holds cron specs evaluated in Application.Timezone. An empty spec
// disables the job.
type Scheduler struct {
	Enabled bool   `koanf:"enabled"`
	Daily   string `koanf:"daily"`
	Weekly  string `koanf:"weekly"`
	Health  string `koanf:"health"`
}

func defaults() Application {
	return Application{
		Host:     "http://localhost:3000",
		Port:     3000,
		Timezone: "Asia/Tokyo",
		Store: Store{
			Backend: StoreBackendFile,
			S3: S3{
				Region: "auto",
				Key:    "refresh_token",
			},
		},
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "reminder",
			Name:   "reminder",
			Schema: "public",
		},
		Scheduler: Scheduler{
			Enabled: true,
			Daily:   "0 0 * * *",
			Health:  "*/5 * * * *",
		},
	}
}

func Load(path string) (Application, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warnf("unable to load .env file: %v", err)
	}

	var k = koanf.New(".")

	err := k.Load(structs.Provider(defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, envPrefix)), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}
	if app.Google.RedirectUrl == "" {
		app.Google.RedirectUrl = strings.TrimSuffix(app.Host, "/") + "/oauth2callback"
	}

	return app, app.validate()
}

func (a Application) validate() error {
	switch a.Store.Backend {
	case StoreBackendFile, StoreBackendS3, StoreBackendPostgres:
	default:
		return fmt.Errorf("unknown store backend %q", a.Store.Backend)
	}
	if _, err := a.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the timezone all reminder windows and cron specs use.
func (a Application) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", a.Timezone, err)
	}
	return loc, nil
}
