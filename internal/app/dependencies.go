package app

import (
	"context"
	"fmt"

	"github.com/klokku/reminder/internal/config"
	"github.com/klokku/reminder/internal/database"
	"github.com/klokku/reminder/internal/event_bus"
	"github.com/klokku/reminder/internal/utils"
	"github.com/klokku/reminder/pkg/calendar"
	"github.com/klokku/reminder/pkg/credential"
	"github.com/klokku/reminder/pkg/credential/pgstore"
	"github.com/klokku/reminder/pkg/discord"
	"github.com/klokku/reminder/pkg/google"
	"github.com/klokku/reminder/pkg/reminder"
	log "github.com/sirupsen/logrus"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Store    credential.Store
	EventBus *event_bus.EventBus
	Clock    utils.Clock

	TokenManager  *google.TokenManager
	GoogleService *google.ServiceImpl
	GoogleHandler *google.Handler
	AuthHandler   *google.AuthHandler

	Calendar        calendar.Calendar
	CalendarHandler *calendar.Handler

	Formatter       *discord.Formatter
	Notifier        *discord.Notifier
	ReminderService *reminder.ServiceImpl
	ReminderHandler *reminder.Handler

	closers []func()
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(ctx context.Context, cfg config.Application) (*Dependencies, error) {
	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{}

	store, closeStore, err := newCredentialStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	deps.Store = store
	deps.closers = append(deps.closers, closeStore)

	deps.EventBus = event_bus.NewEventBus()
	deps.Clock = &utils.SystemClock{}

	deps.TokenManager = google.NewTokenManager(ctx, cfg.Google, deps.Store, deps.EventBus)
	deps.GoogleService = google.NewService(deps.TokenManager)
	deps.GoogleHandler = google.NewHandler(deps.GoogleService)
	deps.AuthHandler = google.NewAuthHandler(deps.TokenManager)

	deps.Calendar = deps.GoogleService.GetCalendar(cfg.Google.CalendarId, location)
	deps.CalendarHandler = calendar.NewHandler(deps.Calendar, deps.Clock, location)

	deps.Formatter = discord.NewFormatter(cfg.Discord.ImageUrl)
	deps.Notifier = discord.NewNotifier(cfg.Discord.WebhookUrl)
	deps.ReminderService = reminder.NewService(deps.Calendar, deps.Formatter, deps.Notifier, deps.Clock, location)
	deps.ReminderHandler = reminder.NewHandler(deps.ReminderService)

	return deps, nil
}

// Close releases resources held by the credential store.
func (d *Dependencies) Close() {
	for _, closeFn := range d.closers {
		closeFn()
	}
}

func newCredentialStore(ctx context.Context, cfg config.Application) (credential.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreBackendS3:
		log.Infof("Using S3 credential store (bucket %s, key %s)", cfg.Store.S3.Bucket, cfg.Store.S3.Key)
		return credential.NewS3Store(cfg.Store.S3), func() {}, nil
	case config.StoreBackendPostgres:
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to open credential database: %w", err)
		}
		if err := database.Migrate(cfg.Database); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Infof("Using Postgres credential store (%s:%d/%s)", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
		return pgstore.New(db), db.Close, nil
	default:
		store := credential.NewFileStore(cfg.Store.FilePath)
		log.Infof("Using file credential store at %s", store.Path())
		return store, func() {}, nil
	}
}
