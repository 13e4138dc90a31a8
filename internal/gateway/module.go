package gateway

import "go.uber.org/fx"

// Module provides the payment session client to Fx.
var Module = fx.Provide(
	fx.Annotate(NewClient, fx.As(new(SessionCreator))),
)
