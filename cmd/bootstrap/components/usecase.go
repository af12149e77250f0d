package components

import (
	"tourism-booking/internal/domain/reservation"
	"tourism-booking/internal/pkg/clock"
	"tourism-booking/internal/pkg/config"
	"tourism-booking/internal/usecase"
	"tourism-booking/internal/usecase/commands"
	"tourism-booking/internal/usecase/queries"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseQueriesModule,
	usecaseValidatorsModule,
	usecaseCommandsModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
	fx.Annotate(
		reservation.NewNightlyPriceCalculator,
		fx.As(new(reservation.PriceCalculator)),
	),
	func(clk clock.Clock, calc reservation.PriceCalculator, cfg config.Config) *reservation.Factory {
		return reservation.NewFactory(clk, calc, cfg.Booking.HoldTTL)
	},
	func(cfg config.Config) commands.PaymentSettings {
		return commands.PaymentSettings{
			Currency:       cfg.Booking.Currency,
			CountryCode:    cfg.Booking.CountryCode,
			HoldTTL:        cfg.Booking.HoldTTL,
			GatewayTimeout: cfg.Gateway.Timeout,
			CallbackToken:  cfg.Gateway.CallbackToken,
		}
	},
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		commands.NewReservationUseCase,
		commands.NewPaymentUseCase,
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewUserQueries,
		queries.NewReservationQueries,
		queries.NewPaymentQueries,
	),
)

var usecaseValidatorsModule = fx.Module("usecase/validators",
	fx.Provide(
		usecase.NewTokenValidator,
	),
)
