package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/repository"
)

// StationService manages the station catalog.
type StationService struct {
	store  repository.Store
	logger *zap.Logger
}

// NewStationService builds StationService.
func NewStationService(store repository.Store, logger *zap.Logger) *StationService {
	return &StationService{store: store, logger: logger}
}

// Create adds a station with a unique name.
func (s *StationService) Create(ctx context.Context, name string) (*models.Station, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("station name is required")
	}
	station := &models.Station{Name: name}
	if err := s.store.Stations().Create(ctx, station); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("station %q: %w", name, ErrAlreadyExists)
		}
		return nil, err
	}
	s.logger.Info("station created", zap.Int64("station_id", station.ID), zap.String("name", station.Name))
	return station, nil
}

// Get returns a station by id.
func (s *StationService) Get(ctx context.Context, id int64) (*models.Station, error) {
	station, err := s.store.Stations().Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "station %d", id)
	}
	return station, nil
}

// List returns stations ordered by name.
func (s *StationService) List(ctx context.Context) ([]models.Station, error) {
	return s.store.Stations().List(ctx)
}

// Rename changes a station's name.
func (s *StationService) Rename(ctx context.Context, id int64, name string) (*models.Station, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("station name is required")
	}
	station, err := s.store.Stations().Rename(ctx, id, name)
	switch {
	case errors.Is(err, repository.ErrConflict):
		return nil, fmt.Errorf("station %q: %w", name, ErrAlreadyExists)
	case err != nil:
		return nil, notFound(err, "station %d", id)
	}
	s.logger.Info("station renamed", zap.Int64("station_id", id), zap.String("name", name))
	return station, nil
}

// Delete removes a station that no price, trip or transaction references.
func (s *StationService) Delete(ctx context.Context, id int64) error {
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		if _, err := tx.Stations().Get(ctx, id); err != nil {
			return notFound(err, "station %d", id)
		}
		referenced, err := tx.Stations().IsReferenced(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return fmt.Errorf("station %d: %w", id, ErrStationInUse)
		}
		if err := tx.Stations().Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("station %d: %w", id, ErrStationInUse)
			}
			return notFound(err, "station %d", id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("station deleted", zap.Int64("station_id", id))
	return nil
}

// Trips lists trips that started (asSource) or ended at the station.
func (s *StationService) Trips(ctx context.Context, id int64, asSource bool) ([]models.Trip, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	filter := models.TripFilter{DestinationStationID: id}
	if asSource {
		filter = models.TripFilter{SourceStationID: id}
	}
	return s.store.Trips().List(ctx, filter)
}
