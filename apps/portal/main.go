package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/formportal/core"
	"github.com/trezcool/formportal/core/portal"
	"github.com/trezcool/formportal/core/session"
	"github.com/trezcool/formportal/services/formapi"
	logsvc "github.com/trezcool/formportal/services/logger"
	"github.com/trezcool/formportal/storage/local"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stderr, "PORTAL : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()
	ctx := context.Background()

	svcLogger, err := logsvc.NewZapLogger("portal", conf)
	errAndDie(err)
	defer func() { _ = svcLogger.Sync() }()

	// set up local storage
	kv, err := local.Open(ctx, conf.Storage)
	errAndDie(err)

	store, err := session.NewStore(ctx, kv, svcLogger)
	errAndDie(err)

	notices := new(portal.NoticeLog)
	cli := commandLine{
		portal: portal.New(
			store,
			session.NewEvidence(kv),
			formapi.NewClient(conf.API, svcLogger),
			notices,
			svcLogger,
		),
		notices: notices,
		in:      os.Stdin,
		out:     os.Stdout,
	}
	err = cli.run(os.Args)
	_ = kv.Close()
	if err != nil {
		if err != errHelp {
			logger.Printf("error: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
