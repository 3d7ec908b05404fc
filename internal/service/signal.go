package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/donatale/donatale/internal/domain"
	"github.com/donatale/donatale/internal/usecase"
)

const ReservationChannel = "donatale:reservation.created"

// Publisher is the subset of *redis.Client used to fan out signals.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type SignalService struct {
	rdb     Publisher
	channel string
}

func NewSignalService(redisClient Publisher) *SignalService {
	return &SignalService{
		rdb:     redisClient,
		channel: ReservationChannel,
	}
}

func (s *SignalService) PublishReservation(ctx context.Context, signal domain.ReservationSignal) error {

	jsonstr, err := json.Marshal(signal)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, s.channel, jsonstr).Err()
	if err != nil {
		return err
	}

	return nil
}

var _ usecase.SignalPublisher = (*SignalService)(nil)
var _ Publisher = (*redis.Client)(nil)
