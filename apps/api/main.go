package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoapi "github.com/trezcool/silabo/apps/api/echo"
	"github.com/trezcool/silabo/core"
	"github.com/trezcool/silabo/core/academic"
	"github.com/trezcool/silabo/core/notification"
	"github.com/trezcool/silabo/core/syllabus"
	"github.com/trezcool/silabo/core/user"
	emailsvc "github.com/trezcool/silabo/services/email"
	logsvc "github.com/trezcool/silabo/services/logger"
	"github.com/trezcool/silabo/storage/database"
	sqlxrepos "github.com/trezcool/silabo/storage/database/sqlx"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer func() { _ = db.Close() }()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db))
	notifSvc := notification.NewService(sqlxrepos.NewNotificationRepository(db), logger)
	sylSvc := syllabus.NewService(sqlxrepos.NewSyllabusRepository(db), usrSvc, notifSvc, mailSvc, logger)
	cmtSvc := syllabus.NewCommentService(sqlxrepos.NewCommentRepository(db))
	acadSvc := academic.NewService(sqlxrepos.NewAcademicYearRepository(db))

	// start API server
	app := echoapi.NewServer(&echoapi.Options{
		Address:     conf.Server.Addr,
		Logger:      logger,
		UserSvc:     usrSvc,
		SyllabusSvc: sylSvc,
		CommentSvc:  cmtSvc,
		NotifSvc:    notifSvc,
		AcademicSvc: acadSvc,
	})

	go app.Start()

	// graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		logger.Error("stopping server", err)
	}
}
