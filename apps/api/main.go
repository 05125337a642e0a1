package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoapi "github.com/shuleos/shule/apps/api/echo"
	"github.com/shuleos/shule/core"
	"github.com/shuleos/shule/core/fieldcrypt"
	"github.com/shuleos/shule/core/role"
	"github.com/shuleos/shule/core/school"
	"github.com/shuleos/shule/core/user"
	emailsvc "github.com/shuleos/shule/services/email"
	logsvc "github.com/shuleos/shule/services/logger"
	pushsvc "github.com/shuleos/shule/services/push"
	"github.com/shuleos/shule/storage/database"
	"github.com/shuleos/shule/storage/database/sqlxrepos"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	workDir, err := os.Getwd()
	if err != nil {
		log.Fatalf("getting working directory: %v", err)
	}
	conf, err := core.NewConfig(workDir)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	if err = database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()
	if err = database.Migrate(db); err != nil {
		logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
	}

	// set up field encryption
	key, err := conf.FieldEncryptionKeyBytes()
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading field encryption key: %v", err), err)
	}
	codec, err := fieldcrypt.NewCodec(key, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up field encryption: %v", err), err)
	}

	// set up repositories; sensitive fields are sealed at this boundary
	usrRepo := sqlxrepos.NewEncryptedUserRepository(sqlxrepos.NewUserRepository(db), codec)
	roleRepo := sqlxrepos.NewEncryptedRoleRepository(sqlxrepos.NewRoleRepository(db), codec)
	schoolRepo := sqlxrepos.NewEncryptedSchoolRepository(sqlxrepos.NewSchoolRepository(db), codec)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(usrRepo, mailSvc, logger, conf)
	roleSvc := role.NewService(roleRepo, logger, pushsvc.NewConsoleSink(logger))
	schoolSvc := school.NewService(schoolRepo)

	if err = roleSvc.Seed(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("seeding roles: %v", err), err)
	}

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Address:        conf.Server.Host + fmt.Sprintf(":%d", conf.Server.Port),
		Conf:           conf,
		Logger:         logger,
		UserSvc:        usrSvc,
		RoleSvc:        roleSvc,
		SchoolSvc:      schoolSvc,
		SignalShutdown: func() { shutdown <- syscall.SIGTERM },
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err = server.Stop(ctx); err != nil {
		logger.Fatal(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}
