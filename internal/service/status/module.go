package status

import "go.uber.org/fx"

// Module provides the order status service to Fx.
var Module = fx.Provide(NewService)
