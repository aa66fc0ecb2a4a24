// Package sweeper runs the periodic reservation expiry job.  A
// reservation that was never cancelled stops holding its charging point
// once its twelve hour window elapses; the sweep flips those rows to
// expired and returns the points to the station counter, station by
// station, under the same row lock the reserve and cancel paths take.
package sweeper

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/iliyamo/ev-charge-reservation/internal/queue"
	"github.com/iliyamo/ev-charge-reservation/internal/repository"
)

// Sweeper owns the cron runner and the repositories the sweep touches.
type Sweeper struct {
	cron         *cron.Cron
	stations     *repository.StationRepo
	reservations *repository.ReservationRepo
	tokens       *repository.TokenRepo
	publisher    *queue.Publisher
}

// New builds a Sweeper; call Start to begin sweeping on the given cron
// spec (e.g. "@every 1m").
func New(stations *repository.StationRepo, reservations *repository.ReservationRepo, tokens *repository.TokenRepo, pub *queue.Publisher) *Sweeper {
	return &Sweeper{
		cron:         cron.New(),
		stations:     stations,
		reservations: reservations,
		tokens:       tokens,
		publisher:    pub,
	}
}

// Start registers the sweep on the cron spec and starts the runner in
// its own goroutine.  An invalid spec is returned to the caller so a
// misconfigured deployment fails at startup rather than silently never
// sweeping.
func (s *Sweeper) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron runner and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// sweep expires overdue reservations and purges stale refresh tokens.
// Each station is processed in its own transaction so a failure on one
// station does not hold up the rest.
func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now().UTC()

	stationIDs, err := s.reservations.StationsWithExpired(ctx, now)
	if err != nil {
		log.Printf("sweeper: scan for expired reservations failed: %v", err)
		return
	}
	for _, id := range stationIDs {
		if err := s.expireStation(ctx, id, now); err != nil {
			log.Printf("sweeper: expire station %d failed: %v", id, err)
		}
	}

	if n, err := s.tokens.PurgeExpired(ctx, now); err != nil {
		log.Printf("sweeper: purge refresh tokens failed: %v", err)
	} else if n > 0 {
		log.Printf("sweeper: purged %d expired refresh tokens", n)
	}
}

// expireStation flips the station's overdue active reservations to
// expired and hands their points back, all under the station row lock.
// Events are published only after the transaction commits.
func (s *Sweeper) expireStation(ctx context.Context, stationID uint64, now time.Time) error {
	tx, err := s.stations.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	station, err := s.stations.GetForUpdateTx(ctx, tx, stationID)
	if err != nil {
		return err
	}

	ids, err := s.reservations.ExpireActiveTx(ctx, tx, stationID, now)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		// Raced with a cancel between the scan and the lock.
		committed = true
		return tx.Commit()
	}

	// Collect event payloads before commit; the rows are still visible
	// inside the transaction.
	events := make([]queue.ReservationEvent, 0, len(ids))
	for _, rid := range ids {
		res, err := s.reservations.GetByIDTx(ctx, tx, stationID, rid)
		if err != nil {
			if errors.Is(err, repository.ErrReservationNotFound) {
				continue
			}
			return err
		}
		events = append(events, queue.ReservationEvent{
			Event:           queue.EventReservationExpired,
			ReservationID:   res.ID,
			StationID:       station.ID,
			StationName:     station.Name,
			UserID:          res.UserID,
			ChargerType:     res.ChargerType,
			ETA:             res.ETA.UTC().Format(time.RFC3339),
			ReservationFee:  res.ReservationFee,
			AvailablePoints: station.AvailablePoints + len(ids),
			OccurredAt:      now.Format(time.RFC3339),
		})
	}

	if err := s.stations.AdjustAvailableTx(ctx, tx, stationID, len(ids)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	log.Printf("sweeper: station %d: expired %d reservations", stationID, len(ids))
	for _, ev := range events {
		s.publisher.Publish(ctx, ev)
	}
	return nil
}
