package app

import (
	"go.uber.org/fx"

	"github.com/swiftcart/swiftcart/internal/cache"
	"github.com/swiftcart/swiftcart/internal/config"
	"github.com/swiftcart/swiftcart/internal/database"
	"github.com/swiftcart/swiftcart/internal/gateway"
	"github.com/swiftcart/swiftcart/internal/logger"
	"github.com/swiftcart/swiftcart/internal/messaging"
	"github.com/swiftcart/swiftcart/internal/notifier"
	"github.com/swiftcart/swiftcart/internal/observability"
	repositorycart "github.com/swiftcart/swiftcart/internal/repository/cart"
	repositorycatalog "github.com/swiftcart/swiftcart/internal/repository/catalog"
	repositoryorder "github.com/swiftcart/swiftcart/internal/repository/order"
	httpserver "github.com/swiftcart/swiftcart/internal/server/http"
	servicecheckout "github.com/swiftcart/swiftcart/internal/service/checkout"
	servicereconcile "github.com/swiftcart/swiftcart/internal/service/reconcile"
	servicestatus "github.com/swiftcart/swiftcart/internal/service/status"
	transporthttp "github.com/swiftcart/swiftcart/internal/transport/http"
	"github.com/swiftcart/swiftcart/internal/worker"
	workerorder "github.com/swiftcart/swiftcart/internal/worker/order"
)

// storeBindings adapts the concrete repositories onto the narrow
// interfaces each service consumes.
var storeBindings = fx.Provide(
	func(r *repositoryorder.Repository) servicecheckout.OrderStore { return r },
	func(r *repositoryorder.Repository) servicereconcile.OrderStore { return r },
	func(r *repositoryorder.Repository) servicestatus.OrderReader { return r },
	func(r *repositorycatalog.Repository) servicecheckout.PriceOracle { return r },
	func(r *repositorycart.Repository) servicecheckout.CartCleaner { return r },
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	notifier.Module,
	gateway.Module,
	repositoryorder.Module,
	repositorycatalog.Module,
	repositorycart.Module,
	storeBindings,
	servicecheckout.Module,
	servicereconcile.Module,
	servicestatus.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// Worker exposes background fulfillment processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
