package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/sparshv/projportal/apps/api/echo"
	"github.com/sparshv/projportal/core"
	"github.com/sparshv/projportal/core/evaluation"
	"github.com/sparshv/projportal/core/group"
	"github.com/sparshv/projportal/core/load"
	"github.com/sparshv/projportal/core/request"
	"github.com/sparshv/projportal/core/user"
	emailsvc "github.com/sparshv/projportal/services/email"
	logsvc "github.com/sparshv/projportal/services/logger"
	"github.com/sparshv/projportal/storage/database"
	sqlxrepos "github.com/sparshv/projportal/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		core.Conf,
	)
	logger.Enable(!core.Conf.Debug)

	db, err := setUpDB(core.Conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	usrRepo := sqlxrepos.NewUserRepository(db)
	reqRepo := sqlxrepos.NewRequestRepository(db)
	loadRepo := sqlxrepos.NewLoadRepository(db)
	groupRepo := sqlxrepos.NewGroupRepository(db)
	evalRepo := sqlxrepos.NewEvaluationRepository(db)

	usrSvc := user.NewService(usrRepo)
	reqSvc := request.NewService(reqRepo, groupRepo, loadRepo, usrRepo, mailSvc)
	loadSvc := load.NewService(loadRepo)
	groupSvc := group.NewService(groupRepo, loadRepo, usrRepo)
	evalSvc := evaluation.NewService(evalRepo, reqRepo, usrRepo)

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", core.Conf.Build))
	defer logger.Info("Application stopped")

	server := echoapi.NewServer(
		&echoapi.Options{
			Address:    core.Conf.Server.Addr,
			Logger:     logger,
			UserSvc:    usrSvc,
			RequestSvc: reqSvc,
			LoadSvc:    loadSvc,
			GroupSvc:   groupSvc,
			EvalSvc:    evalSvc,
		},
	)

	go server.Start()

	// =========================================================================
	// Shutdown

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
	}

	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
	defer cancel()

	if err = server.Stop(ctx); err != nil {
		logger.Fatal(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}
