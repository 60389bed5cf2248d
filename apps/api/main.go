package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	echoapi "github.com/trezcool/formportal/apps/api/echo"
	"github.com/trezcool/formportal/core"
	"github.com/trezcool/formportal/core/student"
	logsvc "github.com/trezcool/formportal/services/logger"
	"github.com/trezcool/formportal/storage/database"
	dummydb "github.com/trezcool/formportal/storage/database/dummy"
	sqlxrepos "github.com/trezcool/formportal/storage/database/sqlx"
	"github.com/trezcool/formportal/storage/forms"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	repo, closeDB, err := setUpRepository(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = closeDB(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up services
	stdSvc := student.NewService(repo, logger)

	formFile := conf.FormFile
	if !filepath.IsAbs(formFile) {
		formFile = filepath.Join(conf.WorkDir, formFile)
	}
	formSrc := forms.NewSource(formFile)
	if _, err = formSrc.Schema(); err != nil { // fail fast on a broken form file
		logger.Fatal(fmt.Sprintf("loading form: %v", err), err)
	}

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		StudentSvc: stdSvc,
		Forms:      formSrc,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpRepository picks the student repository from conf.Database.Driver.
func setUpRepository(conf *core.Config) (student.Repository, func() error, error) {
	if conf.Database.Driver != "postgres" {
		return dummydb.NewStudentRepository(dummydb.Open()), func() error { return nil }, nil
	}

	ctx := context.Background()
	if err := database.CreateIfNotExist(ctx, conf.Database); err != nil {
		return nil, nil, err
	}
	db, err := database.Open(ctx, conf.Database)
	if err != nil {
		return nil, nil, err
	}
	if err = database.Migrate(ctx, db, "up"); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return sqlxrepos.NewStudentRepository(db), db.Close, nil
}
