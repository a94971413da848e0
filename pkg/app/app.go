package app

import (
	"log/slog"

	"github.com/amirasaad/sandbank/pkg/cache"
	"github.com/amirasaad/sandbank/pkg/config"
	"github.com/amirasaad/sandbank/pkg/eventbus"
	"github.com/amirasaad/sandbank/pkg/repository"
	"github.com/amirasaad/sandbank/pkg/service/auth"
	"github.com/amirasaad/sandbank/pkg/service/backup"
	"github.com/amirasaad/sandbank/pkg/service/code"
	"github.com/amirasaad/sandbank/pkg/service/user"
	"github.com/amirasaad/sandbank/pkg/service/wallet"
)

// Deps contains the infrastructure the services are built from.
type Deps struct {
	Uow    repository.UnitOfWork
	Cache  cache.Store
	Backup backup.Backuper
	// Events is an optional external sink fed after the in-process bus.
	Events eventbus.Publisher
	// Consumer reads the external stream back; nil unless the sink
	// supports consumer groups.
	Consumer eventbus.Consumer
	Logger   *slog.Logger
}

type App struct {
	Deps          *Deps
	Config        *config.App
	Bus           *eventbus.MemoryBus
	AuthService   *auth.Service
	UserService   *user.Service
	WalletService *wallet.Service
	CodeService   *code.Service
	BackupService *backup.Service
}

func New(deps *Deps, cfg *config.App) *App {
	bus := eventbus.NewMemoryBus(deps.Logger)
	bus.Subscribe(eventbus.All, eventbus.LogHandler(deps.Logger))
	publisher := eventbus.Fanout(bus, deps.Events)
	return &App{
		Deps:          deps,
		Config:        cfg,
		Bus:           bus,
		AuthService:   auth.New(deps.Uow, cfg.Auth, deps.Cache, deps.Logger),
		UserService:   user.New(deps.Uow, cfg.Bank, deps.Logger),
		WalletService: wallet.New(deps.Uow, cfg.Bank, deps.Logger, wallet.WithPublisher(publisher)),
		CodeService:   code.New(deps.Uow, cfg.Bank, deps.Logger),
		BackupService: backup.New(deps.Uow, deps.Backup, deps.Logger),
	}
}
