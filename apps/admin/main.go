package main

import (
	"log"
	"os"

	"github.com/shuleos/shule/core"
	"github.com/shuleos/shule/core/fieldcrypt"
	"github.com/shuleos/shule/core/role"
	"github.com/shuleos/shule/storage/database"
	"github.com/shuleos/shule/storage/database/sqlxrepos"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	workDir, err := os.Getwd()
	errAndDie(err)
	conf, err := core.NewConfig(workDir)
	errAndDie(err)

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()

	// set up field encryption
	key, err := conf.FieldEncryptionKeyBytes()
	errAndDie(err)
	codec, err := fieldcrypt.NewCodec(key, nopLogger{})
	errAndDie(err)

	roleRepo := sqlxrepos.NewEncryptedRoleRepository(sqlxrepos.NewRoleRepository(db), codec)

	// start CLI
	cli := commandLine{
		db:      db,
		usrRepo: sqlxrepos.NewEncryptedUserRepository(sqlxrepos.NewUserRepository(db), codec),
		roleSvc: role.NewService(roleRepo, nopLogger{}, nil),
	}
	if err := cli.run(os.Args); err != nil {
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

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
