package handler

import (
	"context"

	"household-ledger/internal/auth"
	analyticsdomain "household-ledger/internal/domain/analytics"
	homedomain "household-ledger/internal/domain/home"
	ledgerdomain "household-ledger/internal/domain/ledger"
	userdomain "household-ledger/internal/domain/user"
	"household-ledger/pkg/logger"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Services struct {
	Users     *userdomain.Service
	Tokens    *auth.TokenService
	Homes     *homedomain.Service
	Ledger    *ledgerdomain.Service
	Analytics *analyticsdomain.Service
	DB        Pinger
}

type Handlers struct {
	Users     *userdomain.Service
	Tokens    *auth.TokenService
	Homes     *homedomain.Service
	Ledger    *ledgerdomain.Service
	Analytics *analyticsdomain.Service

	db           Pinger
	cookieSecure bool
	log          logger.Logger
}

func New(services Services, cookieSecure bool, log logger.Logger) *Handlers {
	return &Handlers{
		Users:        services.Users,
		Tokens:       services.Tokens,
		Homes:        services.Homes,
		Ledger:       services.Ledger,
		Analytics:    services.Analytics,
		db:           services.DB,
		cookieSecure: cookieSecure,
		log:          log,
	}
}
