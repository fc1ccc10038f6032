package usecase

import (
	"resource-booking/internal/data/repository"
	"resource-booking/pkg/lock"
	"resource-booking/pkg/messaging"
	"resource-booking/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Booking BookingService
}

func NewService(repo *repository.Repository, locker lock.Locker, publisher messaging.Publisher, config *utils.Config, log *zap.Logger) *Service {
	return &Service{
		Booking: NewBookingService(repo.Booking, locker, publisher, BookingConfigFrom(config.Reserve), log),
	}
}
