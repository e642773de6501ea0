package http

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/amqp"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/log"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/services"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/storage"
)

func cardInput(p *RequestBodyParser) services.CardInput {
	return services.CardInput{
		EmployeeName:   p.Get("employee_name"),
		PersonelNumber: p.Get("personel_number"),
		TripNumber:     p.Get("trip_number"),
		Origin:         p.Get("origin"),
		Destination:    p.Get("destination"),
		DepartureDate:  p.Get("departure_date"),
		ReturnDate:     p.Get("return_date"),
		PaymentAmount:  p.Get("payment_amount"),
		Type:           p.Get("transaction_type"),
		CustomMonth:    p.Get("custom_month"),
		CustomYear:     p.Get("custom_year"),
		CCNumber:       p.Get("cc_number"),
	}
}

func feeInput(get func(string) string) services.SheetFeeInput {
	return services.SheetFeeInput{
		SheetName:     get("sheet_name"),
		AdminInterest: get("biaya_adm_bunga"),
		Transfer:      get("biaya_transfer"),
		AnnualFee:     get("iuran_tahunan"),
	}
}

type cardPage struct {
	services.CardPage
	Filter core.Filter
	Months []string
	Total  string
}

func (s *Server) cardPage(w http.ResponseWriter, r *http.Request) (services.CardPage, core.Filter, bool) {
	f, err := ParseFilterParams(r.URL.Query())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return services.CardPage{}, f, false
	}
	page, err := s.cards.List(r.Context(), f)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return services.CardPage{}, f, false
	}
	return page, f, true
}

// handleCardPage renders the CC transaction page.
func (s *Server) handleCardPage(w http.ResponseWriter, r *http.Request) {
	page, f, ok := s.cardPage(w, r)
	if !ok {
		return
	}
	total := core.FormatRupiah(sumCards(page.Transactions))
	s.render(w, r, "cc_card.html", cardPage{CardPage: page, Filter: f, Months: core.MonthNames(), Total: total})
}

func (s *Server) handleCardList(w http.ResponseWriter, r *http.Request) {
	page, _, ok := s.cardPage(w, r)
	if !ok {
		return
	}
	NewHTMXResponse().JSON(page).Write(w)
}

func (s *Server) handleCardAutocomplete(w http.ResponseWriter, r *http.Request) {
	out, err := s.cards.Autocomplete(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewHTMXResponse().JSON(out).Write(w)
}

func (s *Server) handleCardGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	c, err := s.cards.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewHTMXResponse().JSON(map[string]interface{}{"success": true, "data": c}).Write(w)
}

func (s *Server) handleCardCreate(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r, log.OpCreate)
	if !ok {
		return
	}
	c, err := s.cards.Create(r.Context(), cardInput(p))
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	writeMutation(w, http.StatusCreated, amqp.CategoryCard, "Transaksi berhasil ditambahkan",
		map[string]interface{}{"data": c})
}

func (s *Server) handleCardUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	p, ok := s.parseBody(w, r, log.OpUpdate)
	if !ok {
		return
	}
	c, err := s.cards.Update(r.Context(), id, cardInput(p))
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	writeMutation(w, http.StatusOK, amqp.CategoryCard, "Transaksi berhasil diperbarui",
		map[string]interface{}{"data": c})
}

func (s *Server) handleCardDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.cards.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	writeMutation(w, http.StatusOK, amqp.CategoryCard, "Transaksi berhasil dihapus", nil)
}

func (s *Server) handleCardImport(w http.ResponseWriter, r *http.Request) {
	file, err := s.formPart(w, r, "csv_file")
	if err != nil {
		s.writeError(w, r, log.OpImport, err)
		return
	}
	defer file.Close()

	opts := storage.CardImportOptions{
		UpdateExisting: parseBool(r.FormValue("update_existing")),
		OverrideSheet:  sanitizeInput(r.FormValue("override_sheet_name")),
	}
	summary, err := s.cards.Import(r.Context(), file, opts)
	if err != nil {
		s.writeError(w, r, log.OpImport, err)
		return
	}
	s.events.LogImport(r.Context(), amqp.CategoryCard,
		summary.Imported, summary.Updated, summary.Skipped, len(summary.Warnings))

	writeMutation(w, http.StatusOK, amqp.CategoryCard, summary.Message, map[string]interface{}{
		"imported": summary.Imported,
		"updated":  summary.Updated,
		"skipped":  summary.Skipped,
		"warnings": summary.Warnings,
		"filename": file.Name,
	})
}

func (s *Server) handleCardFees(w http.ResponseWriter, r *http.Request) {
	fees, err := s.cards.Fees(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	NewHTMXResponse().JSON(fees).Write(w)
}

// handleCardSaveFees accepts a JSON array of fee rows or a single row.
func (s *Server) handleCardSaveFees(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r, log.OpUpdate)
	if !ok {
		return
	}
	var in []services.SheetFeeInput
	if items := p.Items(); len(items) > 0 {
		for _, item := range items {
			item := item
			in = append(in, feeInput(func(k string) string { return item[k] }))
		}
	} else {
		in = append(in, feeInput(p.Get))
	}
	if err := s.cards.SaveFees(r.Context(), in); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	writeMutation(w, http.StatusOK, amqp.CategorySheetFee,
		fmt.Sprintf("Biaya tambahan untuk %d sheet berhasil disimpan", len(in)), nil)
}

func (s *Server) handleCardDeleteFee(w http.ResponseWriter, r *http.Request) {
	sheet := sanitizeInput(r.URL.Query().Get("sheet_name"))
	if sheet == "" {
		p, ok := s.parseBody(w, r, log.OpDelete)
		if !ok {
			return
		}
		sheet = p.Get("sheet_name")
	}
	if err := s.cards.DeleteFee(r.Context(), sheet); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	writeMutation(w, http.StatusOK, amqp.CategorySheetFee, "Biaya tambahan berhasil dihapus", nil)
}

func (s *Server) handleCardDeleteSheet(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r, log.OpDelete)
	if !ok {
		return
	}
	n, err := s.cards.DeleteSheet(r.Context(), p.Get("sheet_name"))
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	writeMutation(w, http.StatusOK, amqp.CategoryCard,
		fmt.Sprintf("Berhasil menghapus %d transaksi dari sheet", n), map[string]interface{}{"deleted": n})
}

func sumCards(rows []core.CardTransaction) decimal.Decimal {
	total := decimal.Zero
	for _, c := range rows {
		total = total.Add(c.Amount)
	}
	return total
}
