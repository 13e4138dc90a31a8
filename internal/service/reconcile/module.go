package reconcile

import "go.uber.org/fx"

// Module provides the webhook reconciler to Fx.
var Module = fx.Provide(NewService)
