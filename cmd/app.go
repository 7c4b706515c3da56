// Package cmd provides the command line interface for taskflows
package cmd

import (
	"database/sql"

	"github.com/taskflows/taskflows/internal/config"
	"github.com/taskflows/taskflows/internal/container"
	"github.com/taskflows/taskflows/internal/db"
	"github.com/taskflows/taskflows/internal/execx"
	"github.com/taskflows/taskflows/internal/fs"
	"github.com/taskflows/taskflows/internal/lifecycle"
	"github.com/taskflows/taskflows/internal/log"
	"github.com/taskflows/taskflows/internal/repository"
	"github.com/taskflows/taskflows/internal/systemd"
	"github.com/taskflows/taskflows/internal/unit"
	"github.com/taskflows/taskflows/internal/validate"
)

// App holds the application dependencies for the command line interface.
type App struct {
	Logger         log.Logger
	Config         *config.Settings
	ConfigProvider config.Provider
	Runner         execx.Runner
	Files          *fs.Service
	Client         *systemd.Client
	Engine         container.Engine
	DB             *sql.DB
	History        repository.History
	UnitStore      repository.UnitStore
	Manager        Lifecycle
	Validator      SystemValidator
}

// NewApp creates a new App with all dependencies initialized.
func NewApp(logger log.Logger, configProv config.Provider) (*App, error) {
	cfg := configProv.GetConfig()
	runner := execx.NewRealRunner()
	files := fs.NewService(configProv, logger)
	client := systemd.NewClient(systemd.NewConnectionFactory(logger), runner, logger, cfg.UserMode)

	engine, err := container.NewEngine(cfg, runner, logger)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Connect(cfg, logger)
	if err != nil {
		return nil, err
	}

	history := repository.NewHistory(dbConn)
	units := repository.NewUnitStore(dbConn)
	manager := lifecycle.NewManager(unit.NewCompiler(cfg.UserMode), files, client, engine, history, units, logger)

	return &App{
		Logger:         logger,
		Config:         cfg,
		ConfigProvider: configProv,
		Runner:         runner,
		Files:          files,
		Client:         client,
		Engine:         engine,
		DB:             dbConn,
		History:        history,
		UnitStore:      units,
		Manager:        manager,
		Validator:      validate.NewValidator(logger, runner),
	}, nil
}

// Close releases the resources the app holds open.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
