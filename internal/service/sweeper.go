package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mpetrov/bank-cards/internal/models"
)

// Sweeper drives cards past their expiry date into the terminal EXPIRED
// state.
type Sweeper struct {
	store models.CardStore
	log   *logrus.Logger
}

// NewSweeper initializes a new expiry sweeper
func NewSweeper(store models.CardStore, log *logrus.Logger) *Sweeper {
	return &Sweeper{store: store, log: log}
}

// RunDailySweep expires every card whose expiry date is strictly before
// today, as one transaction. A failure mid-batch rolls the whole sweep
// back; the next scheduled run picks the batch up again. Returns the
// number of cards expired.
func (s *Sweeper) RunDailySweep(ctx context.Context, today time.Time) (int, error) {
	expired := 0
	err := s.store.Transact(ctx, func(tx models.CardTx) error {
		cards, err := tx.FindExpiredBefore(ctx, today)
		if err != nil {
			return err
		}
		if len(cards) == 0 {
			s.log.Info("Expiry sweep: no expired cards found")
			return nil
		}
		for _, card := range cards {
			if !card.SweepExpire(today) {
				continue
			}
			s.log.Debugf("Card %d expired on %s, setting status to EXPIRED",
				card.ID, card.ExpiryDate.Format("2006-01-02"))
			if err := tx.SaveCard(ctx, card); err != nil {
				return err
			}
			expired++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("expiry sweep failed: %w", err)
	}

	if expired > 0 {
		s.log.Infof("Expiry sweep: %d cards expired", expired)
	}
	return expired, nil
}
