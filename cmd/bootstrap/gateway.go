package bootstrap

import (
	"tourism-booking/internal/infra/gateway/daraja"
	"tourism-booking/internal/pkg/clock"
	"tourism-booking/internal/pkg/config"
	"tourism-booking/internal/usecase/commands"

	"go.uber.org/fx"
)

var GatewayModule = fx.Module("gateway",
	fx.Provide(
		fx.Annotate(
			NewDarajaClient,
			fx.As(new(commands.PaymentGateway)),
		),
	),
)

func NewDarajaClient(cfg config.Config, clk clock.Clock) *daraja.Client {
	return daraja.NewClient(cfg.Gateway, clk)
}
