// watcher is a terminal viewer for the order change stream: point it at a
// running server with a scope (one order, one store, or the whole platform)
// and it prints a line for every status or payment transition it reconciles.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"ordering-platform/internal/domain"
	"ordering-platform/internal/logger"
	"ordering-platform/internal/reconciler"
	"ordering-platform/internal/subscriber"
)

func main() {
	endpoint := flag.String("endpoint", "ws://localhost:8080/api/v1/ws", "change stream endpoint")
	scopeKind := flag.String("scope", "", "order | store | platform")
	id := flag.String("id", "", "order id or store id for the chosen scope")
	token := flag.String("token", "", "bearer token for store/platform scopes")
	settle := flag.Duration("settle", 200*time.Millisecond, "settle delay before subscribing")
	flag.Parse()

	lg := logger.New("watcher")

	scope, err := buildScope(*scopeKind, *id)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mgr := subscriber.New(*endpoint, scope, lg,
		subscriber.WithSettleDelay(*settle),
		subscriber.WithToken(*token),
	)
	defer mgr.Close()

	rec := reconciler.New(func(n reconciler.Notification) {
		lg.Info("order_updated", "order_id", n.OrderID, "field", n.Field, "from", n.From, "to", n.To)
	})

	lg.Info("watching", "scope", scope.String())
	rec.Run(mgr.Subscribe(ctx))
	lg.Info("watch_ended")
}

func buildScope(kind, id string) (domain.Scope, error) {
	switch domain.ScopeKind(kind) {
	case domain.ScopePlatform:
		return domain.PlatformScope(), nil
	case domain.ScopeOrder, domain.ScopeStore:
		parsed, err := uuid.Parse(id)
		if err != nil {
			return domain.Scope{}, fmt.Errorf("--id must be a valid uuid for scope %s", kind)
		}
		if domain.ScopeKind(kind) == domain.ScopeOrder {
			return domain.OrderScope(parsed), nil
		}
		return domain.StoreScope(parsed), nil
	}
	return domain.Scope{}, fmt.Errorf("--scope is required: order | store | platform")
}
