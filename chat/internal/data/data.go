package data

import (
	"context"
	"fmt"
	"time"

	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/conf"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/data/po"
	"github.com/albertcharmelo/andycorporation-server-sub000/pkg/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewOrderRepo,
	NewUserRepo,
	NewMessageRepo,
	NewNotificationRepo,
	NewSubscriptionRepo,
	NewPushGateway,
	NewSessionRepo,
	NewJobDedupRepo,
	NewLocationRepo,
	NewBlobStore,
	NewBroadcaster,
	NewEventSource,
	NewJobQueue,
	NewConsumer,
	NewEtcdClient,
	NewRegistry,
)

// Data 数据层主结构
type Data struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewData 创建数据层实例
func NewData(cb *conf.Bootstrap, logger log.Logger) (*Data, func(), error) {
	c := cb.Data
	if c == nil {
		c = &conf.Data{}
	}
	// 初始化MySQL客户端
	db, err := initMySQLClient(c, logger)
	if err != nil {
		return nil, nil, err
	}

	// 初始化Redis客户端
	redisClient, err := initRedisClient(c, logger)
	if err != nil {
		if sqlDB, e := db.DB(); e == nil {
			_ = sqlDB.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		if err := redisClient.Close(); err != nil {
			log.NewHelper(logger).Errorf("Failed to close redis client: %v", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.NewHelper(logger).Errorf("Failed to close mysql client: %v", err)
			}
		}
		log.NewHelper(logger).Info("closing the data resources")
	}

	return &Data{
			db:    db,
			redis: redisClient,
		},
		cleanup,
		nil
}

// initMySQLClient 初始化MySQL客户端
func initMySQLClient(c *conf.Data, logg log.Logger) (*gorm.DB, error) {
	dsn := "root:password@tcp(localhost:3306)/andycorporation?charset=utf8mb4&parseTime=True&loc=UTC"
	var (
		level         string
		slowThreshold time.Duration
		autoMigrate   bool
	)
	if db := c.Database; db != nil {
		if db.Source != "" {
			dsn = db.Source
		}
		level = db.LogLevel
		slowThreshold = db.SlowThreshold.AsDuration()
		autoMigrate = db.AutoMigrate
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         model.NewKratosGormLogger(log.NewHelper(logg), level, slowThreshold),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mysql: %w", err)
	}

	// 获取原始连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get db instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetMaxIdleConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(time.Minute * 30)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}
	// 订单、用户、角色表由主站维护，这里只迁移本服务自己的表
	if autoMigrate {
		if err := db.AutoMigrate(&po.Message{}, &po.Notification{}, &po.PushSubscription{}); err != nil {
			return nil, fmt.Errorf("failed to migrate chat tables: %w", err)
		}
	}

	log.NewHelper(logg).Info("MySQL client initialized successfully")
	return db, nil
}

// initRedisClient 初始化Redis客户端
func initRedisClient(c *conf.Data, logg log.Logger) (*redis.Client, error) {
	opts := &redis.Options{
		Network:      "tcp",
		Addr:         "localhost:6379",
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
	if rc := c.Redis; rc != nil {
		if rc.Network != "" {
			opts.Network = rc.Network
		}
		if rc.Addr != "" {
			opts.Addr = rc.Addr
		}
		if d := rc.ReadTimeout.AsDuration(); d > 0 {
			opts.ReadTimeout = d
		}
		if d := rc.WriteTimeout.AsDuration(); d > 0 {
			opts.WriteTimeout = d
		}
		opts.Password = rc.Password
		opts.DB = rc.Db
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.NewHelper(logg).Info("Redis client initialized successfully")
	return client, nil
}
