package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatwave/data/mongox"
	"chatwave/global/config"
	"chatwave/logger"
	"chatwave/module/chat"
	chatsvc "chatwave/module/chat/service"
	"chatwave/service/realtime"
	"chatwave/tools/security"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadChatServer()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	mdb, err := mongox.Connect(ctx, mongox.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	cancel()
	if err != nil {
		logger.Errorf("[chatserver] mongo: %v", err)
		os.Exit(1)
	}
	defer mdb.Close(context.Background())

	svc := chatsvc.New(mdb.DB())
	if err := svc.EnsureIndexes(context.Background()); err != nil {
		logger.Warnf("[chatserver] indexes: %v", err)
	}

	gateway := realtime.NewGateway()
	defer gateway.Close()

	uploader := &chat.LocalUploader{Dir: cfg.UploadDir, BaseURL: cfg.UploadBase}
	directory := chat.NewHTTPDirectory(cfg.UserService)
	handler := chat.NewHandler(svc, directory, uploader, gateway, security.DefaultOptions(cfg.JWTSecret))

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/ws", gateway.HandleWS)
	r.Static("/uploads", cfg.UploadDir)
	handler.Register(r)

	go func() {
		logger.Infof("[chatserver] listening on %s", cfg.Addr)
		if err := r.Run(cfg.Addr); err != nil {
			logger.Errorf("[chatserver] serve: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("[chatserver] shutting down")
}
