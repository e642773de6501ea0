package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/amqp"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/log"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/services"
)

type serviceFeePage struct {
	Fees   []core.ServiceFeeTransaction
	Filter core.Filter
	Months []string
	Total  string
}

// handleServiceFeeList renders the service fee page, or the rows as JSON.
func (s *Server) handleServiceFeeList(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilterParams(r.URL.Query())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	fees, err := s.serviceFees.List(r.Context(), f)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	if wantsJSON(r) {
		NewHTMXResponse().JSON(fees).Write(w)
		return
	}
	total := decimal.Zero
	for _, fee := range fees {
		total = total.Add(fee.Amount)
	}
	s.render(w, r, "service_fees.html", serviceFeePage{
		Fees:   fees,
		Filter: f,
		Months: core.MonthNames(),
		Total:  core.FormatRupiah(total),
	})
}

func (s *Server) handleServiceFeeCreate(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r, log.OpCreate)
	if !ok {
		return
	}
	fee, err := s.serviceFees.Create(r.Context(), services.ServiceFeeInput{
		EmployeeName:    p.Get("employee_name"),
		ServiceType:     p.Get("service_type"),
		HotelName:       p.Get("hotel_name"),
		Route:           p.Get("route"),
		Amount:          p.Get("transaction_amount"),
		TransactionTime: p.Get("transaction_time"),
		Status:          p.Get("status"),
	})
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	writeMutation(w, http.StatusCreated, amqp.CategoryServiceFee, "Service fee berhasil ditambahkan",
		map[string]interface{}{"data": fee})
}

func (s *Server) handleServiceFeeDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.serviceFees.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	writeMutation(w, http.StatusOK, amqp.CategoryServiceFee, "Service fee berhasil dihapus", nil)
}
