package data

import (
	"time"

	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/conf"

	registryetcd "github.com/go-kratos/kratos/contrib/registry/etcd/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/registry"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// NewEtcdClient 创建etcd客户端，未配置 endpoints 时返回 nil
func NewEtcdClient(cb *conf.Bootstrap, logger log.Logger) (*clientv3.Client, func(), error) {
	if cb.Data == nil || cb.Data.Etcd == nil || len(cb.Data.Etcd.Endpoints) == 0 {
		return nil, func() {}, nil
	}
	c := cb.Data.Etcd
	config := clientv3.Config{
		Endpoints:   c.Endpoints,
		DialTimeout: c.DialTimeout.AsDuration(),
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = 5 * time.Second
	}
	if c.Username != "" && c.Password != "" {
		config.Username = c.Username
		config.Password = c.Password
	}
	client, err := clientv3.New(config)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			log.NewHelper(logger).Errorf("close etcd client failed: %v", err)
		}
	}
	return client, cleanup, nil
}

// NewRegistry 创建服务注册器，没有etcd时不注册
func NewRegistry(etcd *clientv3.Client) registry.Registrar {
	if etcd == nil {
		return nil
	}
	return registryetcd.New(etcd)
}
