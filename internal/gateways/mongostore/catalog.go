package mongostore

import (
	"context"
	"fmt"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) ShopItems(ctx context.Context) ([]ledger.ShopItem, error) {
	var docs []shopItemDoc
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if err := findAll(ctx, s.coll(colShopItems), bson.M{}, opts, &docs); err != nil {
		return nil, mapError("find", "shop items", err)
	}
	out := make([]ledger.ShopItem, len(docs))
	for i, d := range docs {
		out[i] = fromShopItemDoc(d)
	}
	return out, nil
}

func (s *Store) ShopItem(ctx context.Context, id string) (ledger.ShopItem, error) {
	var d shopItemDoc
	err := s.coll(colShopItems).FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	switch {
	case err == nil:
		return fromShopItemDoc(d), nil
	case isNoDocuments(err):
		return ledger.ShopItem{}, fmt.Errorf("%w: %s", ledger.ErrItemNotFound, id)
	default:
		return ledger.ShopItem{}, mapError("find", "shop item", err)
	}
}

func (s *Store) AddShopItem(ctx context.Context, item ledger.ShopItem) error {
	_, err := s.coll(colShopItems).InsertOne(ctx, toShopItemDoc(item))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", ledger.ErrItemExists, item.ID)
	}
	return mapError("insert", "shop item", err)
}

func (s *Store) RemoveShopItem(ctx context.Context, id string) error {
	res, err := s.coll(colShopItems).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapError("delete", "shop item", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", ledger.ErrItemNotFound, id)
	}
	return nil
}

func (s *Store) RoleRewards(ctx context.Context, guildID string) ([]ledger.RoleReward, error) {
	var docs []roleRewardDoc
	opts := options.Find().SetSort(bson.D{{Key: "level", Value: 1}})
	if err := findAll(ctx, s.coll(colRoleRewards), bson.M{"guild_id": guildID}, opts, &docs); err != nil {
		return nil, mapError("find", "role rewards", err)
	}
	out := make([]ledger.RoleReward, len(docs))
	for i, d := range docs {
		out[i] = ledger.RoleReward{GuildID: d.GuildID, Level: d.Level, RoleID: d.RoleID}
	}
	return out, nil
}

// SetRoleReward replaces any role configured for the same guild and level.
func (s *Store) SetRoleReward(ctx context.Context, r ledger.RoleReward) error {
	id := roleRewardID(r.GuildID, r.Level)
	_, err := s.coll(colRoleRewards).ReplaceOne(ctx,
		bson.M{"_id": id},
		roleRewardDoc{ID: id, GuildID: r.GuildID, Level: r.Level, RoleID: r.RoleID},
		options.Replace().SetUpsert(true),
	)
	return mapError("upsert", "role reward", err)
}

func (s *Store) RemoveRoleReward(ctx context.Context, guildID string, level int) error {
	res, err := s.coll(colRoleRewards).DeleteOne(ctx, bson.M{"_id": roleRewardID(guildID, level)})
	if err != nil {
		return mapError("delete", "role reward", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: no role reward for level %d", ledger.ErrItemNotFound, level)
	}
	return nil
}
