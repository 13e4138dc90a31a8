package order

import "go.uber.org/fx"

// Module provides the order repository to Fx. Interface bindings for the
// services live in internal/app.
var Module = fx.Provide(NewRepository)
