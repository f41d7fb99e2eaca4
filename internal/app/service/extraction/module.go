package extraction

import "go.uber.org/fx"

// Module exposes the extraction service via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
