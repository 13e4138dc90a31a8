package http

import (
	"go.uber.org/fx"

	checkouttransport "github.com/swiftcart/swiftcart/internal/transport/http/checkout"
	ordertransport "github.com/swiftcart/swiftcart/internal/transport/http/order"
	webhooktransport "github.com/swiftcart/swiftcart/internal/transport/http/webhook"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	checkouttransport.Module,
	ordertransport.Module,
	webhooktransport.Module,
)
