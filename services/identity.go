package services

import "context"

// UserRef carries any of the equivalent keys a caller may use to name a
// player: internal id, Telegram chat id, or display name. Every roster
// and claim boundary resolves a ref through ResolveUser; call sites
// never compare identities ad hoc.
type UserRef struct {
	UserID     uint   `json:"user_id"`
	TelegramID int64  `json:"telegram_id"`
	Name       string `json:"name"`
}

// ResolveUser normalizes a ref to the canonical participant identity.
// Keys are tried in order of specificity: internal id, telegram id,
// display name.
func (e *Engine) ResolveUser(ctx context.Context, ref UserRef) (*userRecord, error) {
	if ref.UserID != 0 {
		u, err := e.users.GetByID(ctx, ref.UserID)
		if err != nil {
			return nil, err
		}
		if u != nil {
			return &userRecord{ID: u.ID, TelegramID: u.TelegramID, Name: u.Name}, nil
		}
	}
	if ref.TelegramID != 0 {
		u, err := e.users.GetByTelegramID(ctx, ref.TelegramID)
		if err != nil {
			return nil, err
		}
		if u != nil {
			return &userRecord{ID: u.ID, TelegramID: u.TelegramID, Name: u.Name}, nil
		}
	}
	if ref.Name != "" {
		u, err := e.users.GetByName(ctx, ref.Name)
		if err != nil {
			return nil, err
		}
		if u != nil {
			return &userRecord{ID: u.ID, TelegramID: u.TelegramID, Name: u.Name}, nil
		}
	}
	return nil, ErrUserNotFound
}

// userRecord is the canonical identity the engine tracks per player.
type userRecord struct {
	ID         uint
	TelegramID int64
	Name       string
}
