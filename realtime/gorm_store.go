package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"checkin-backend/models"
)

// GormStore persists collections in the documents table and pushes every
// committed write to in-process subscribers through an embedded Hub.
type GormStore struct {
	db  *gorm.DB
	hub *Hub
	log zerolog.Logger
}

// NewGormStore warms the fan-out cache from the database.
func NewGormStore(ctx context.Context, db *gorm.DB, log zerolog.Logger) (*GormStore, error) {
	s := &GormStore{db: db, hub: NewHub(), log: log.With().Str("component", "store").Logger()}

	var names []string
	if err := db.WithContext(ctx).Model(&models.Document{}).Distinct().Pluck("collection", &names).Error; err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	for _, name := range names {
		snap, err := s.ReadOnce(ctx, name)
		if err != nil {
			return nil, err
		}
		if err := s.hub.load(name, snap.Docs); err != nil {
			return nil, fmt.Errorf("load collection %s: %w", name, err)
		}
		s.log.Info().Str("collection", name).Int("docs", len(snap.Docs)).Msg("collection loaded")
	}
	return s, nil
}

func (s *GormStore) Subscribe(name string, fn func(Snapshot)) func() {
	return s.hub.Subscribe(name, fn)
}

func (s *GormStore) ReadOnce(ctx context.Context, name string) (Snapshot, error) {
	var rows []models.Document
	if err := s.db.WithContext(ctx).
		Where("collection = ?", name).
		Order("seq ASC").
		Find(&rows).Error; err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Collection: name, Docs: make([]Document, 0, len(rows))}
	for _, r := range rows {
		snap.Docs = append(snap.Docs, Document{Key: r.DocKey, Value: json.RawMessage(r.Value)})
	}
	return snap, nil
}

func (s *GormStore) nextSeq(tx *gorm.DB, name string) (int64, error) {
	var max int64
	if err := tx.Model(&models.Document{}).
		Where("collection = ?", name).
		Select("COALESCE(MAX(seq), 0)").
		Row().Scan(&max); err != nil {
		return 0, err
	}
	return max + 1, nil
}

// lockRow adds SELECT ... FOR UPDATE where the dialect supports it so two
// field writes on one document serialize instead of overwriting each other.
func lockRow(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "mysql" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func (s *GormStore) WriteField(ctx context.Context, name, key, field string, value any) error {
	if key == "" {
		return ErrEmptyKey
	}
	v, err := normalizeValue(value)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.Document
		err := lockRow(tx).
			Where("collection = ? AND doc_key = ?", name, key).
			First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			seq, err := s.nextSeq(tx, name)
			if err != nil {
				return err
			}
			raw, err := json.Marshal(map[string]any{field: v})
			if err != nil {
				return err
			}
			return tx.Create(&models.Document{Collection: name, DocKey: key, Seq: seq, Value: datatypes.JSON(raw)}).Error
		case err != nil:
			return err
		}

		obj, err := toObject(json.RawMessage(row.Value))
		if err != nil {
			return err
		}
		obj[field] = v
		raw, err := json.Marshal(obj)
		if err != nil {
			return err
		}
		return tx.Model(&models.Document{}).
			Where("collection = ? AND doc_key = ?", name, key).
			Update("value", datatypes.JSON(raw)).Error
	})
	if err != nil {
		return fmt.Errorf("write %s/%s/%s: %w", name, key, field, err)
	}
	return s.hub.WriteField(ctx, name, key, field, v)
}

func (s *GormStore) WriteWhole(ctx context.Context, name string, docs []Document) error {
	rows := make([]models.Document, 0, len(docs))
	seen := map[string]int{}
	for _, d := range docs {
		if d.Key == "" {
			return ErrEmptyKey
		}
		if _, err := toObject(d.Value); err != nil {
			return fmt.Errorf("document %s: %w", d.Key, err)
		}
		if i, dup := seen[d.Key]; dup {
			rows[i].Value = datatypes.JSON(d.Value)
			continue
		}
		seen[d.Key] = len(rows)
		rows = append(rows, models.Document{
			Collection: name,
			DocKey:     d.Key,
			Seq:        int64(len(rows) + 1),
			Value:      datatypes.JSON(d.Value),
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("collection = ?", name).Delete(&models.Document{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(&rows, 200).Error
	})
	if err != nil {
		return fmt.Errorf("overwrite %s: %w", name, err)
	}
	s.log.Warn().Str("collection", name).Int("docs", len(rows)).Msg("collection overwritten")
	return s.hub.WriteWhole(ctx, name, docs)
}

func (s *GormStore) Append(ctx context.Context, name string, value any) (string, error) {
	key := s.hub.newKey()
	if err := s.Put(ctx, name, key, value); err != nil {
		return "", err
	}
	return key, nil
}

func (s *GormStore) Put(ctx context.Context, name, key string, value any) error {
	if key == "" {
		return ErrEmptyKey
	}
	obj, err := toObject(value)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Document{}).
			Where("collection = ? AND doc_key = ?", name, key).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return tx.Model(&models.Document{}).
				Where("collection = ? AND doc_key = ?", name, key).
				Update("value", datatypes.JSON(raw)).Error
		}
		seq, err := s.nextSeq(tx, name)
		if err != nil {
			return err
		}
		return tx.Create(&models.Document{Collection: name, DocKey: key, Seq: seq, Value: datatypes.JSON(raw)}).Error
	})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", name, key, err)
	}
	return s.hub.Put(ctx, name, key, json.RawMessage(raw))
}

func (s *GormStore) Delete(ctx context.Context, name, key string) error {
	res := s.db.WithContext(ctx).
		Where("collection = ? AND doc_key = ?", name, key).
		Delete(&models.Document{})
	if res.Error != nil {
		return fmt.Errorf("delete %s/%s: %w", name, key, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNoDocument
	}
	return s.hub.Delete(ctx, name, key)
}
