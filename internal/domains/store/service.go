package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/skyarray/device-agent/internal/entities"
	"github.com/skyarray/device-agent/internal/errs"
)

const (
	keyAdminMode  = "device.adminMode"
	keyLastResult = "device.lastResult"
)

// Service persists the small durable slice of device state: the administrative
// mode and the most recent command result pair. Everything else is rebuilt
// from scratch on restart.
type Service struct {
	db *badger.DB
}

func NewService(db *badger.DB) *Service {
	return &Service{
		db: db,
	}
}

func (s *Service) SaveAdminMode(mode entities.AdminMode) (err error) {
	if err = s.set(keyAdminMode, []byte(mode)); err != nil {
		return fmt.Errorf("SaveAdminMode: %w", err)
	}

	return nil
}

// LoadAdminMode restores the persisted administrative mode. A device that
// never persisted one starts OFFLINE.
func (s *Service) LoadAdminMode() (mode entities.AdminMode, err error) {
	raw, err := s.get(keyAdminMode)
	if err != nil {
		if errors.Is(err, errs.ErrStoreKeyNotFound) {
			return entities.AdminModeOffline, nil
		}

		return mode, fmt.Errorf("LoadAdminMode: %w", err)
	}

	mode, ok := entities.ParseAdminMode(string(raw))
	if !ok {
		return mode, fmt.Errorf("LoadAdminMode: corrupt persisted mode %s", raw)
	}

	return mode, nil
}

func (s *Service) SaveLastResult(pair [2]string) (err error) {
	payload, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("SaveLastResult: %w", err)
	}

	if err = s.set(keyLastResult, payload); err != nil {
		return fmt.Errorf("SaveLastResult: %w", err)
	}

	return nil
}

func (s *Service) LoadLastResult() (pair [2]string, exists bool, err error) {
	raw, err := s.get(keyLastResult)
	if err != nil {
		if errors.Is(err, errs.ErrStoreKeyNotFound) {
			return pair, false, nil
		}

		return pair, false, fmt.Errorf("LoadLastResult: %w", err)
	}

	if err = json.Unmarshal(raw, &pair); err != nil {
		return pair, false, fmt.Errorf("LoadLastResult: %w", err)
	}

	return pair, true, nil
}

func (s *Service) set(key string, value []byte) (err error) {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (s *Service) get(key string) (value []byte, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", errs.ErrStoreKeyNotFound, key)
			}

			return err
		}

		value, err = item.ValueCopy(nil)

		return err
	})

	return value, err
}
