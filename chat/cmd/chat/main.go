package main

import (
	"flag"
	"os"

	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/conf"
	"github.com/albertcharmelo/andycorporation-server-sub000/pkg/monitoring"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/registry"
	"github.com/go-kratos/kratos/v2/transport/http"

	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name string = "chat"
	// Version is the version of the compiled software.
	Version string
	// flagconf is the config flag.
	flagconf string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs", "config path, eg: -conf config.yaml")
}

func newApp(logger log.Logger, hs *http.Server, dh *biz.DeliveryHandler, r registry.Registrar) *kratos.App {
	opts := []kratos.Option{
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(
			hs,
			dh,
		),
	}
	// 没有配置 etcd 时不做服务注册
	if r != nil {
		opts = append(opts, kratos.Registrar(r))
	}
	return kratos.New(opts...)
}

func main() {
	flag.Parse()
	c := config.New(
		config.WithSource(
			file.NewSource(flagconf),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		panic(err)
	}

	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		panic(err)
	}
	if bc.Monitoring == nil {
		bc.Monitoring = &conf.Monitoring{}
	}
	if bc.Monitoring.ServiceName == "" {
		bc.Monitoring.ServiceName = Name
	}
	if t := bc.Monitoring.Tracing; t != nil {
		if err := monitoring.InitTraceProvider(t.Endpoint, bc.Monitoring.ServiceName, t.Exporter, t.Sampler); err != nil {
			panic(err)
		}
	}
	if err := monitoring.InitPrometheus(bc.Monitoring.ServiceName); err != nil {
		panic(err)
	}
	var loggingConf *monitoring.LoggingConfig
	if l := bc.Monitoring.Logging; l != nil {
		loggingConf = &monitoring.LoggingConfig{
			Format: l.Format,
			Level:  l.Level,
			Output: l.Output,
		}
	}
	// 初始化zap日志器
	zapLogger, syncLogger, err := monitoring.InitLogger(loggingConf)
	if err != nil {
		panic(err)
	}
	defer syncLogger()
	logger := log.With(zapLogger,
		"service.name", bc.Monitoring.ServiceName,
		"service.version", Version,
	)
	app, cleanup, err := wireApp(&bc, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// start and wait for stop signal
	if err := app.Run(); err != nil {
		panic(err)
	}
}
