package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/storefront-client/internal/auth"
	"github.com/angelmondragon/storefront-client/internal/cart"
	"github.com/angelmondragon/storefront-client/internal/catalog"
	"github.com/angelmondragon/storefront-client/internal/orders"
	"github.com/angelmondragon/storefront-client/pkg/config"
	"github.com/angelmondragon/storefront-client/pkg/db"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/migrate"
	"github.com/angelmondragon/storefront-client/pkg/outbox"
	"github.com/angelmondragon/storefront-client/pkg/storeapi"
)

const usage = `usage: storefront <command> [args]

auth:
  signin -email <email> -password <password>
  signup -name <name> -email <email> -password <password>
  signout
  whoami
  update-profile -name <name> -password <password>

catalog:
  categories
  products -category <name>
  product -id <id>

cart:
  cart show
  cart add -id <id> [-qty <n>]
  cart remove -id <id>
  cart set -id <id> -qty <n>
  cart clear
  cart pull

orders:
  orders place
  orders list
  orders pay -id <id>
  orders deliver -id <id>
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	app, err := bootstrap(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap", err)
		os.Exit(1)
	}
	defer app.close()

	ctx := logg.WithField(context.Background(), "env", cfg.App.Env)
	if err := app.dispatch(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type application struct {
	cfg     *config.Config
	logg    *logger.Logger
	db      *db.Client
	store   *storeapi.Client
	cart    *cart.Service
	catalog *catalog.Service
	orders  *orders.Service
	auth    *auth.Service
}

func bootstrap(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*application, error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, err
	}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		dbClient.Close()
		return nil, err
	}

	storeClient, err := storeapi.NewClient(cfg.API, logg)
	if err != nil {
		dbClient.Close()
		return nil, err
	}

	sessions := auth.NewSessionRepository(dbClient.DB())
	authService, err := auth.NewService(auth.ServiceParams{
		API:      storeClient,
		Sessions: sessions,
		Logger:   logg,
	})
	if err != nil {
		dbClient.Close()
		return nil, err
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	cartService, err := cart.NewService(cart.ServiceParams{
		DB:       dbClient,
		Repo:     cart.NewLineRepository(dbClient.DB()),
		Outbox:   outboxService,
		Logger:   logg,
		UserIDFn: func() string { return authService.UserID(ctx) },
	})
	if err != nil {
		dbClient.Close()
		return nil, err
	}
	cartService.Load(ctx)

	catalogService, err := catalog.NewService(storeClient, logg)
	if err != nil {
		dbClient.Close()
		return nil, err
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		API:    storeClient,
		Cart:   cartService,
		Tokens: authService,
		Logger: logg,
	})
	if err != nil {
		dbClient.Close()
		return nil, err
	}

	return &application{
		cfg:     cfg,
		logg:    logg,
		db:      dbClient,
		store:   storeClient,
		cart:    cartService,
		catalog: catalogService,
		orders:  ordersService,
		auth:    authService,
	}, nil
}

func (a *application) close() {
	if err := a.db.Close(); err != nil {
		a.logg.Error(context.Background(), "error closing database", err)
	}
}

func (a *application) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "signin", "signup", "signout", "whoami", "update-profile":
		return a.runAuth(ctx, command, args)
	case "categories", "products", "product":
		return a.runCatalog(ctx, command, args)
	case "cart":
		return a.runCart(ctx, args)
	case "orders":
		return a.runOrders(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}
