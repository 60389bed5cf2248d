package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/formportal/core"
	"github.com/trezcool/formportal/core/student"
	logsvc "github.com/trezcool/formportal/services/logger"
	"github.com/trezcool/formportal/storage/database"
	sqlxrepos "github.com/trezcool/formportal/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()
	ctx := context.Background()

	// set up DB
	errAndDie(database.CreateIfNotExist(ctx, conf.Database))
	db, err := database.Open(ctx, conf.Database)
	errAndDie(err)

	svcLogger, err := logsvc.NewZapLogger("admin", conf)
	errAndDie(err)
	defer func() { _ = svcLogger.Sync() }()

	// start CLI
	cli := commandLine{
		db:     db,
		stdSvc: student.NewService(sqlxrepos.NewStudentRepository(db), svcLogger),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
