package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classattend/internal/adherence"
	"classattend/internal/config"
	"classattend/internal/queue"
	"classattend/internal/schedule"
	"classattend/internal/session"
	"classattend/internal/store"
)

// Worker turns closed sessions into timetable adherence rows. It consumes
// explicit-close events from the queue and periodically sweeps for sessions
// that closed by the clock without an event.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "classattend:sessions")
	}

	sessions := session.NewRepository(db.Client)
	slots := schedule.NewRepository(db.Client)
	adherenceRepo := adherence.NewRepository(db.Client)

	w := worker{
		sessions:  sessions,
		slots:     slots,
		adherence: adherenceRepo,
		tolerance: cfg.AdherenceTolerance,
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	log.Println("worker started, waiting for closed sessions...")
	for {
		select {
		case <-ctx.Done():
			log.Println("worker stopped")
			return
		case msg, ok := <-messages:
			if !ok {
				log.Println("worker stopped")
				return
			}
			if msg.Type != queue.TypeSessionClosed {
				continue
			}
			id := string(msg.Body)
			if err := w.process(ctx, id); err != nil {
				log.Printf("adherence for session %s failed: %v", id, err)
			}
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

type worker struct {
	sessions  *session.Repository
	slots     *schedule.Repository
	adherence *adherence.Repository
	tolerance time.Duration
}

// process computes and stores the adherence row for one closed session.
// Adherence only applies to regular timetabled sessions: makeup sessions are
// allowed to run outside their slot, so scoring them would penalize the
// lecturer for a sanctioned deviation.
func (w worker) process(ctx context.Context, sessionID string) error {
	sess, err := w.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.TimetableID == nil || sess.IsMakeup {
		log.Printf("session %s is not a regular timetabled session, skipping adherence", sessionID)
		return nil
	}
	slot, err := w.slots.Get(ctx, *sess.TimetableID)
	if err != nil {
		return err
	}
	row, err := adherence.Compute(sess, slot, w.tolerance)
	if err != nil {
		return err
	}
	if _, err := w.adherence.Upsert(ctx, row); err != nil {
		return err
	}
	log.Printf("session %s adherence: started_on_time=%t ended_on_time=%t deviation=%dm",
		sessionID, row.StartedOnTime, row.EndedOnTime, row.DeviationMinutes)
	return nil
}

// sweep picks up sessions whose cutoff passed without an explicit close.
func (w worker) sweep(ctx context.Context) {
	sessions, err := w.sessions.ListClosedWithoutAdherence(ctx, time.Now().UTC(), 100)
	if err != nil {
		log.Printf("sweep failed: %v", err)
		return
	}
	for _, sess := range sessions {
		if err := w.process(ctx, sess.ID); err != nil {
			log.Printf("sweep adherence for session %s failed: %v", sess.ID, err)
		}
	}
}
