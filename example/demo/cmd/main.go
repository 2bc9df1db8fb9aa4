// Command demo runs the restaurant example end to end against a configurable
// event store engine: it creates a restaurant, places an order (which the
// saga turns into an order aggregate), prepares the order, and shows how a
// rejected command surfaces as a domain error outcome.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite" // driver import

	"github.com/deciderkit/decider-eventstore-go/aggregate"
	"github.com/deciderkit/decider-eventstore-go/eventstore/memoryengine"
	"github.com/deciderkit/decider-eventstore-go/eventstore/postgresengine"
	"github.com/deciderkit/decider-eventstore-go/eventstore/sqliteengine"
	"github.com/deciderkit/decider-eventstore-go/example/shell"
	"github.com/deciderkit/decider-eventstore-go/example/shell/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "demo failed:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		return cfgErr
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	store, cleanup, storeErr := buildEventStore(ctx, cfg, logger)
	if storeErr != nil {
		return storeErr
	}
	defer cleanup()

	handler := shell.NewCommandHandler(store)

	restaurantID := uuid.NewString()
	orderID := uuid.NewString()

	commands := []struct {
		description string
		payload     []byte
	}{
		{"create the restaurant", createRestaurantPayload(restaurantID)},
		{"place an order", placeOrderPayload(restaurantID, orderID)},
		{"prepare the order", markOrderAsPreparedPayload(orderID)},
		{"create the restaurant again (rejected)", createRestaurantPayload(restaurantID)},
	}

	for _, command := range commands {
		outcome := shell.HandleWithRetry(ctx, handler, command.payload, shell.DefaultMaxCommandAttempts)
		printOutcome(command.description, outcome)
	}

	return nil
}

func buildEventStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (aggregate.EventStore, func(), error) {
	noop := func() {}

	switch cfg.Engine {
	case config.EngineMemory:
		return memoryengine.NewEventStore(), noop, nil

	case config.EngineSQLite:
		db, openErr := sql.Open("sqlite", cfg.SQLitePath)
		if openErr != nil {
			return nil, noop, openErr
		}

		if _, ddlErr := db.ExecContext(ctx, sqliteengine.DDL(cfg.EventsTableName)); ddlErr != nil {
			_ = db.Close()
			return nil, noop, ddlErr
		}

		es, buildErr := sqliteengine.NewEventStore(db,
			sqliteengine.WithTableName(cfg.EventsTableName),
			sqliteengine.WithLogger(logger),
		)
		if buildErr != nil {
			_ = db.Close()
			return nil, noop, buildErr
		}

		return es, func() { _ = db.Close() }, nil

	case config.EnginePostgres:
		pool, poolErr := pgxpool.New(ctx, cfg.PostgresDSN)
		if poolErr != nil {
			return nil, noop, poolErr
		}

		if _, ddlErr := pool.Exec(ctx, postgresengine.DDL(cfg.EventsTableName)); ddlErr != nil {
			pool.Close()
			return nil, noop, ddlErr
		}

		es, buildErr := postgresengine.NewEventStoreFromPGXPool(pool,
			postgresengine.WithTableName(cfg.EventsTableName),
			postgresengine.WithLogger(logger),
		)
		if buildErr != nil {
			pool.Close()
			return nil, noop, buildErr
		}

		return es, pool.Close, nil

	default:
		return nil, noop, fmt.Errorf("unsupported event store engine: %q", cfg.Engine)
	}
}

func printOutcome(description string, outcome aggregate.Outcome) {
	encoded, marshalErr := json.MarshalIndent(outcome, "", "  ")
	if marshalErr != nil {
		encoded = []byte(fmt.Sprintf("{%q: %q}", "reason", marshalErr.Error()))
	}

	fmt.Printf("%s:\n%s\n\n", description, encoded)
}

func createRestaurantPayload(restaurantID string) []byte {
	return fmt.Appendf(nil, `{
		"type": "CreateRestaurant",
		"identifier": %q,
		"name": "Saigon Kitchen",
		"menu": {
			"menu_id": "menu-1",
			"cuisine": "Vietnamese",
			"items": [
				{"id": "item-1", "name": "Pho", "price": "9.90"},
				{"id": "item-2", "name": "Banh Mi", "price": "6.50"}
			]
		}
	}`, restaurantID)
}

func placeOrderPayload(restaurantID string, orderID string) []byte {
	return fmt.Appendf(nil, `{
		"type": "PlaceOrder",
		"identifier": %q,
		"order_identifier": %q,
		"line_items": [{"id": "line-1", "quantity": 2, "menu_item_id": "item-1", "name": "Pho"}]
	}`, restaurantID, orderID)
}

func markOrderAsPreparedPayload(orderID string) []byte {
	return fmt.Appendf(nil, `{"type": "MarkOrderAsPrepared", "identifier": %q}`, orderID)
}
