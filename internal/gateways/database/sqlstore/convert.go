package sqlstore

import (
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/internal/gateways/database/models"
)

func progressionToModel(p ledger.Progression) *models.Progression {
	m := &models.Progression{
		UserID:        p.UserID,
		GuildID:       p.GuildID,
		CumulativeXP:  p.CumulativeXP,
		Level:         p.Level,
		LastXPGrantAt: p.LastXPGrantAt,
		MessageCount:  p.MessageCount,
		Version:       p.Version,
		UpdatedAt:     time.Now().UTC(),
	}
	m.LevelUpHistory = make([]models.LevelUpEntry, 0, len(p.LevelUpHistory))
	for _, e := range p.LevelUpHistory {
		m.LevelUpHistory = append(m.LevelUpHistory, models.LevelUpEntry(e))
	}
	return m
}

func progressionFromModel(m *models.Progression) ledger.Progression {
	p := ledger.Progression{
		Key:           ledger.Key{UserID: m.UserID, GuildID: m.GuildID},
		CumulativeXP:  m.CumulativeXP,
		Level:         m.Level,
		LastXPGrantAt: m.LastXPGrantAt,
		MessageCount:  m.MessageCount,
		Version:       m.Version,
	}
	for _, e := range m.LevelUpHistory {
		p.LevelUpHistory = append(p.LevelUpHistory, ledger.LevelUpEvent(e))
	}
	return p
}

func accountToModel(a ledger.Account) *models.Account {
	return &models.Account{
		UserID:              a.UserID,
		GuildID:             a.GuildID,
		Balance:             a.Balance,
		Bank:                a.Bank,
		DailyStreak:         a.DailyStreak,
		LastDailyClaimAt:    a.LastDailyClaimAt,
		Multiplier:          a.Multiplier,
		MultiplierExpiresAt: a.MultiplierExpiresAt,
		Version:             a.Version,
		UpdatedAt:           time.Now().UTC(),
	}
}

func accountFromModel(m *models.Account) ledger.Account {
	return ledger.Account{
		Key:                 ledger.Key{UserID: m.UserID, GuildID: m.GuildID},
		Balance:             m.Balance,
		Bank:                m.Bank,
		DailyStreak:         m.DailyStreak,
		LastDailyClaimAt:    m.LastDailyClaimAt,
		Multiplier:          m.Multiplier,
		MultiplierExpiresAt: m.MultiplierExpiresAt,
		Version:             m.Version,
	}
}

func transactionToModel(t ledger.Transaction) *models.Transaction {
	return &models.Transaction{
		ID:        t.ID,
		UserID:    t.UserID,
		GuildID:   t.GuildID,
		Kind:      string(t.Kind),
		Amount:    t.Amount,
		Reason:    t.Reason,
		Timestamp: t.Timestamp,
	}
}

func transactionFromModel(m *models.Transaction) ledger.Transaction {
	return ledger.Transaction{
		ID:        m.ID,
		UserID:    m.UserID,
		GuildID:   m.GuildID,
		Kind:      ledger.TxKind(m.Kind),
		Amount:    m.Amount,
		Reason:    m.Reason,
		Timestamp: m.Timestamp,
	}
}

func shopItemToModel(it ledger.ShopItem) *models.ShopItem {
	return &models.ShopItem{
		ID:            it.ID,
		Name:          it.Name,
		Description:   it.Description,
		Price:         it.Price,
		Category:      it.Category,
		Type:          it.Type,
		Multiplier:    it.Multiplier,
		DurationHours: it.DurationHours,
	}
}

func shopItemFromModel(m *models.ShopItem) ledger.ShopItem {
	return ledger.ShopItem{
		ID:            m.ID,
		Name:          m.Name,
		Description:   m.Description,
		Price:         m.Price,
		Category:      m.Category,
		Type:          m.Type,
		Multiplier:    m.Multiplier,
		DurationHours: m.DurationHours,
	}
}

func inventoryToModel(e ledger.InventoryEntry) *models.InventoryEntry {
	return &models.InventoryEntry{
		ID:         e.ID,
		UserID:     e.UserID,
		GuildID:    e.GuildID,
		ItemID:     e.ItemID,
		AcquiredAt: e.AcquiredAt,
	}
}

func inventoryFromModel(m *models.InventoryEntry) ledger.InventoryEntry {
	return ledger.InventoryEntry{
		ID:         m.ID,
		UserID:     m.UserID,
		GuildID:    m.GuildID,
		ItemID:     m.ItemID,
		AcquiredAt: m.AcquiredAt,
	}
}
