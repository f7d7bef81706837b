package main

import (
	"os"
	"os/signal"
	"syscall"

	"chatwave/global/config"
	"chatwave/logger"
	"chatwave/module/mail"
	"chatwave/service/queue"
)

func main() {
	cfg := config.LoadMailWorker()

	q, err := queue.Connect(cfg.Nats.URL)
	if err != nil {
		logger.Errorf("[mailworker] nats: %v", err)
		os.Exit(1)
	}
	defer q.Close()

	consumer := mail.NewConsumer(mail.NewSMTPSender(cfg.SMTP))
	sub, err := consumer.Run(q)
	if err != nil {
		logger.Errorf("[mailworker] subscribe: %v", err)
		os.Exit(1)
	}
	defer sub.Unsubscribe()

	logger.Infof("[mailworker] consuming %s", queue.SubjectSendOTP)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("[mailworker] shutting down")
}
