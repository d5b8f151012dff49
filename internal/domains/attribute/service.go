package attribute

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/skyarray/device-agent/internal/constants"
	"github.com/skyarray/device-agent/internal/entities"
)

type (
	IMQService interface {
		Publish(subject string, payload any) (err error)
	}

	IEventStreamService interface {
		Broadcast(change entities.AttributeChange)
	}

	IStoreService interface {
		SaveAdminMode(mode entities.AdminMode) (err error)
		SaveLastResult(pair [2]string) (err error)
	}
)

// Service fans one attribute change out to every consumer: the broker subject
// for that attribute, the event-stream subscribers and, for the durable
// attributes, the on-disk store. Publishing is fire-and-forget; a sink failure
// is logged and never propagates back into the state models.
type Service struct {
	deviceName string

	mqService     IMQService
	streamService IEventStreamService
	storeService  IStoreService
}

func NewService(deviceName string, mqService IMQService,
	streamService IEventStreamService, storeService IStoreService) *Service {
	return &Service{
		deviceName: deviceName,

		mqService:     mqService,
		streamService: streamService,
		storeService:  storeService,
	}
}

func (s *Service) PublishChange(attributeName string, value any) {
	change := entities.AttributeChange{
		Device:    s.deviceName,
		Attribute: attributeName,
		Value:     value,
	}

	if s.mqService != nil {
		subject := fmt.Sprintf(constants.AttributeSubjectPrefix, s.deviceName, attributeName)
		if err := s.mqService.Publish(subject, change); err != nil {
			log.Debug().
				Err(err).
				Str("attribute", attributeName).
				Msg("PublishChange: broker publish skipped")
		}
	}

	if s.streamService != nil {
		s.streamService.Broadcast(change)
	}

	s.persist(attributeName, value)
}

// persist writes through the attributes that must survive a restart: the
// administrative mode and the most recent command result.
func (s *Service) persist(attributeName string, value any) {
	if s.storeService == nil {
		return
	}

	switch attributeName {
	case constants.AttrAdminMode:
		mode, ok := value.(string)
		if !ok {
			return
		}

		if err := s.storeService.SaveAdminMode(entities.AdminMode(mode)); err != nil {
			log.Error().Err(err).Msg("persist: save admin mode error")
		}

	case constants.AttrLongRunningCommandResult:
		pair, ok := value.([2]string)
		if !ok {
			return
		}

		if err := s.storeService.SaveLastResult(pair); err != nil {
			log.Error().Err(err).Msg("persist: save last result error")
		}
	}
}
