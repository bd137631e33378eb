package etcd

import (
	"context"
	"path"
	"time"

	"couplecoach/backend/go/internal/config"

	"github.com/sirupsen/logrus"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// servicePrefix 是所有服务注册键的公共前缀。
const servicePrefix = "/services"

// ServiceDiscovery 负责把本服务注册到 etcd。
type ServiceDiscovery struct {
	cli *clientv3.Client // etcd client
}

// NewServiceDiscovery creates a new ServiceDiscovery.
func NewServiceDiscovery(cfg *config.EtcdConfig) (*ServiceDiscovery, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return &ServiceDiscovery{cli: cli}, nil
}

// ServiceKey 返回服务实例在 etcd 中的键。
func ServiceKey(serviceName, addr string) string {
	return path.Join(servicePrefix, serviceName, addr)
}

// Registration 是一次已生效的注册，Deregister 撤销租约。
type Registration struct {
	sd      *ServiceDiscovery
	key     string
	leaseID clientv3.LeaseID
	cancel  context.CancelFunc
}

// Register registers a service with etcd under a lease kept alive until Deregister is called.
func (s *ServiceDiscovery) Register(ctx context.Context, serviceName, addr string, ttl int64) (*Registration, error) {
	leaseResp, err := s.cli.Grant(ctx, ttl)
	if err != nil {
		return nil, err
	}

	key := ServiceKey(serviceName, addr)
	if _, err = s.cli.Put(ctx, key, addr, clientv3.WithLease(leaseResp.ID)); err != nil {
		return nil, err
	}

	keepCtx, cancel := context.WithCancel(context.Background())
	keepAliveCh, err := s.cli.KeepAlive(keepCtx, leaseResp.ID)
	if err != nil {
		cancel()
		return nil, err
	}

	go func() {
		for range keepAliveCh {
			// 消费续约响应，否则 etcd 客户端会积压并告警
		}
		if keepCtx.Err() == nil {
			logrus.WithField("key", key).Warn("etcd lease keep-alive stopped")
		}
	}()

	return &Registration{sd: s, key: key, leaseID: leaseResp.ID, cancel: cancel}, nil
}

// Key 返回注册使用的键。
func (r *Registration) Key() string {
	return r.key
}

// Deregister 停止续约并撤销租约，键随租约一起删除。
func (r *Registration) Deregister(ctx context.Context) error {
	r.cancel()
	_, err := r.sd.cli.Revoke(ctx, r.leaseID)
	return err
}

// Close closes the etcd client.
func (s *ServiceDiscovery) Close() error {
	return s.cli.Close()
}
