// Command ledger-sim runs the in-memory ledger authority for local
// development. Point AGON_LEDGER_ENDPOINTS at it and the service behaves
// as if a real chain were answering.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/agon/internal/domain/model"
	"github.com/okian/agon/internal/ledgersim"
	"github.com/okian/agon/pkg/logger"
)

const (
	defaultAddr          = ":9091"
	defaultParticipants  = 25
	defaultConversations = 2
	defaultEpochDuration = 7 * 24 * time.Hour
	readHeaderTimeout    = 5 * time.Second
	shutdownTimeout      = 10 * time.Second
)

func main() {
	var (
		addr          = flag.String("addr", defaultAddr, "Listen address for the RPC surface")
		token         = flag.String("token", "", "Operator token required on writes (empty leaves writes open)")
		epochDuration = flag.Duration("epoch", defaultEpochDuration, "Epoch length")
		participants  = flag.Int("participants", defaultParticipants, "Synthetic participants to seed")
		conversations = flag.Int("conversations", defaultConversations, "Pending conversations to open per participant")
		endNow        = flag.Bool("end-now", false, "Start with the first epoch already ended")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()
	log := logger.Get().Named("ledger-sim")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sim := ledgersim.New(
		ledgersim.WithOperatorToken(*token),
		ledgersim.WithEpochDuration(*epochDuration),
	)

	addresses := sim.SeedParticipants(*participants)
	opened := 0
	for _, address := range addresses {
		for i := 0; i < *conversations; i++ {
			if _, err := sim.StartConversation(address, []model.Message{
				{Seq: 1, Role: "user", Content: "opening move"},
				{Seq: 2, Role: "character", Content: "we shall see"},
			}); err != nil {
				break
			}
			opened++
		}
	}
	if *endNow {
		sim.EndEpochNow()
	}

	log.Info(ctx, "seeded simulator",
		logger.Int("participants", len(addresses)),
		logger.Int("conversations", opened),
		logger.Uint64("epoch", sim.EpochNumber()),
	)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           sim.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "ledger simulator listening", logger.String("addr", *addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("simulator server failed: " + err.Error() + "\n")
			return
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down simulator...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
