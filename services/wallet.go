package services

import (
	"context"
	"math"

	"github.com/zedbingo/bingo-engine/models"
	"github.com/zedbingo/bingo-engine/utils/logger"
)

// WalletService settles stakes and prizes against player wallets. Both
// directions are at-most-once per (game, player): the ledger's unique
// settlement index backstops the lookups here.
type WalletService struct {
	users UserRepository
	txs   TransactionRepository
}

func NewWalletService(users UserRepository, txs TransactionRepository) *WalletService {
	return &WalletService{users: users, txs: txs}
}

// Round2 rounds a money amount to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// DebitStake charges the stake for a game. The preferred source is the
// client's hint; sufficiency is re-validated here regardless. Cash is
// tried before bonus unless the hint says bonus. A repeat call for the
// same (game, user) returns the already-recorded source without
// charging again.
func (s *WalletService) DebitStake(ctx context.Context, gameID, userID uint, amount float64, preferred models.BalanceSource) (models.BalanceSource, error) {
	if existing, err := s.txs.FindSettlement(ctx, gameID, userID, models.StakeDebit); err != nil {
		return "", err
	} else if existing != nil {
		return existing.Source, nil
	}

	order := []models.BalanceSource{models.SourceCash, models.SourceBonus}
	if preferred == models.SourceBonus {
		order = []models.BalanceSource{models.SourceBonus, models.SourceCash}
	}

	for _, source := range order {
		ok, err := s.users.DebitIfSufficient(ctx, userID, source, amount)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return source, err
		}
		after := 0.0
		if user != nil {
			if source == models.SourceBonus {
				after = user.BonusBalance
			} else {
				after = user.CashBalance
			}
		}
		gid := gameID
		created, err := s.txs.Record(ctx, &models.Transaction{
			UserID:       userID,
			GameID:       &gid,
			Type:         models.StakeDebit,
			Amount:       amount,
			Source:       source,
			BalanceAfter: after,
		})
		if err != nil {
			return source, err
		}
		if !created {
			// Lost a duplicate race after the debit went through:
			// refund this charge, the earlier one stands.
			if _, rerr := s.users.Credit(ctx, userID, source, amount); rerr != nil {
				logger.Errorf("wallet: refund of duplicate stake debit failed for user %d game %d: %v", userID, gameID, rerr)
			}
			existing, ferr := s.txs.FindSettlement(ctx, gameID, userID, models.StakeDebit)
			if ferr == nil && existing != nil {
				return existing.Source, nil
			}
		}
		logger.Debugf("wallet: debited stake %.2f from user %d (%s) for game %d", amount, userID, source, gameID)
		return source, nil
	}

	return "", ErrInsufficientBalance
}

// CreditPrize pays the winner the pool net of commission. The credit
// mirrors how the winner's stake was funded: a bonus-funded stake wins
// into the bonus balance, otherwise cash. Idempotent per
// (game, winner); a retry returns the amount already paid.
func (s *WalletService) CreditPrize(ctx context.Context, gameID, winnerID uint, grossPool, commissionRate float64) (float64, error) {
	if existing, err := s.txs.FindSettlement(ctx, gameID, winnerID, models.PrizeCredit); err != nil {
		return 0, err
	} else if existing != nil {
		return existing.Amount, nil
	}

	net := Round2(grossPool * (1 - commissionRate))

	source := models.SourceCash
	if stake, err := s.txs.FindSettlement(ctx, gameID, winnerID, models.StakeDebit); err == nil && stake != nil && stake.Source == models.SourceBonus {
		source = models.SourceBonus
	}

	after, err := s.users.Credit(ctx, winnerID, source, net)
	if err != nil {
		return 0, err
	}
	gid := gameID
	created, err := s.txs.Record(ctx, &models.Transaction{
		UserID:       winnerID,
		GameID:       &gid,
		Type:         models.PrizeCredit,
		Amount:       net,
		Source:       source,
		BalanceAfter: after,
	})
	if err != nil {
		return net, err
	}
	if !created {
		// A concurrent retry recorded first; undo this credit.
		if ok, derr := s.users.DebitIfSufficient(ctx, winnerID, source, net); derr != nil || !ok {
			logger.Errorf("wallet: could not undo duplicate prize credit for user %d game %d", winnerID, gameID)
		}
		if existing, ferr := s.txs.FindSettlement(ctx, gameID, winnerID, models.PrizeCredit); ferr == nil && existing != nil {
			return existing.Amount, nil
		}
	}
	logger.Infof("wallet: credited prize %.2f to user %d (%s) for game %d", net, winnerID, source, gameID)
	return net, nil
}
