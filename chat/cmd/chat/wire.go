//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/conf"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/data"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/server"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/service"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp init kratos application.
func wireApp(*conf.Bootstrap, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(server.ProviderSet, data.ProviderSet, biz.ProviderSet, service.ProviderSet, newApp))
}
