package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/amqp"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
)

type ServiceFeeStore interface {
	ServiceFees(ctx context.Context, f core.Filter) ([]core.ServiceFeeTransaction, error)
	CreateServiceFee(ctx context.Context, s core.ServiceFeeTransaction) (int64, error)
	DeleteServiceFee(ctx context.Context, id int64) error
}

// ServiceFeeInput is the travel agent charge form. TransactionTime defaults
// to the moment of creation.
type ServiceFeeInput struct {
	EmployeeName    string `json:"employee_name" validate:"required,max=255"`
	ServiceType     string `json:"service_type" validate:"required,oneof=hotel flight other"`
	HotelName       string `json:"hotel_name" validate:"max=255"`
	Route           string `json:"route" validate:"max=255"`
	Amount          string `json:"transaction_amount" validate:"required,numeric"`
	TransactionTime string `json:"transaction_time"`
	Status          string `json:"status"`
}

type ServiceFeeService struct {
	store  ServiceFeeStore
	notify changeNotifier
	now    func() time.Time
}

func NewServiceFeeService(store ServiceFeeStore, publisher Publisher, cache Invalidator) *ServiceFeeService {
	return &ServiceFeeService{
		store:  store,
		notify: changeNotifier{publisher: publisher, cache: cache},
		now:    time.Now,
	}
}

func (s *ServiceFeeService) List(ctx context.Context, f core.Filter) ([]core.ServiceFeeTransaction, error) {
	return s.store.ServiceFees(ctx, f)
}

func (s *ServiceFeeService) Create(ctx context.Context, in ServiceFeeInput) (core.ServiceFeeTransaction, error) {
	if err := validateInput(in); err != nil {
		return core.ServiceFeeTransaction{}, err
	}
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.ServiceFeeTransaction{}, fieldError("transaction_amount", "numeric")
	}

	at := s.now()
	if v := strings.TrimSpace(in.TransactionTime); v != "" {
		t, ok := core.ParseLooseDate(v)
		if !ok {
			return core.ServiceFeeTransaction{}, fieldError("transaction_time", "date")
		}
		at = t
	}
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = "completed"
	}

	fee := core.ServiceFeeTransaction{
		EmployeeName:    strings.TrimSpace(in.EmployeeName),
		ServiceType:     core.ServiceType(in.ServiceType),
		HotelName:       strings.TrimSpace(in.HotelName),
		Route:           strings.TrimSpace(in.Route),
		Amount:          amount,
		TransactionTime: &at,
		Status:          status,
	}
	if fee.ID, err = s.store.CreateServiceFee(ctx, fee); err != nil {
		return core.ServiceFeeTransaction{}, fmt.Errorf("save service fee: %w", err)
	}
	s.notify.changed(ctx, amqp.CategoryServiceFee, amqp.ActionCreated, 1, at.Year())
	return fee, nil
}

func (s *ServiceFeeService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteServiceFee(ctx, id); err != nil {
		return err
	}
	s.notify.changed(ctx, amqp.CategoryServiceFee, amqp.ActionDeleted, 1, 0)
	return nil
}
