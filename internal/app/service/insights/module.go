package insights

import "go.uber.org/fx"

// Module exposes the insights service via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
