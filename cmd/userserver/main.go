package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatwave/data/mongox"
	"chatwave/data/redisx"
	"chatwave/global/config"
	"chatwave/logger"
	"chatwave/module/user"
	usersvc "chatwave/module/user/service"
	"chatwave/service/queue"
	"chatwave/tools/security"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadUserServer()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mdb, err := mongox.Connect(ctx, mongox.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		logger.Errorf("[userserver] mongo: %v", err)
		os.Exit(1)
	}
	defer mdb.Close(context.Background())

	rdb, err := redisx.New(ctx, redisx.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		logger.Errorf("[userserver] redis: %v", err)
		os.Exit(1)
	}
	defer rdb.Close()

	q, err := queue.Connect(cfg.Nats.URL)
	if err != nil {
		logger.Errorf("[userserver] nats: %v", err)
		os.Exit(1)
	}
	defer q.Close()

	svc := usersvc.New(mdb.DB())
	if err := svc.EnsureIndexes(context.Background()); err != nil {
		logger.Warnf("[userserver] indexes: %v", err)
	}

	jwt := security.DefaultOptions(cfg.JWTSecret)
	jwt.TTL = cfg.JWTTTL
	handler := user.NewHandler(svc, redisx.NewOTPStore(rdb), q, jwt)

	r := gin.New()
	r.Use(gin.Recovery())
	handler.Register(r)

	go func() {
		logger.Infof("[userserver] listening on %s", cfg.Addr)
		if err := r.Run(cfg.Addr); err != nil {
			logger.Errorf("[userserver] serve: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("[userserver] shutting down")
}
