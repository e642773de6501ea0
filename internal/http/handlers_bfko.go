package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/amqp"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/log"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/services"
)

func paymentInput(p *RequestBodyParser) services.PaymentInput {
	return services.PaymentInput{
		NIP:            p.Get("nip"),
		Nama:           p.Get("nama"),
		Jabatan:        p.Get("jabatan"),
		Unit:           p.Get("unit"),
		Bulan:          p.Get("bulan"),
		Tahun:          p.Get("tahun"),
		NilaiAngsuran:  p.Get("nilai_angsuran"),
		TanggalBayar:   p.Get("tanggal_bayar"),
		StatusAngsuran: p.Get("status_angsuran"),
	}
}

func paymentUpdateInput(p *RequestBodyParser) services.PaymentUpdateInput {
	return services.PaymentUpdateInput{
		Bulan:          p.Get("bulan"),
		Tahun:          p.Get("tahun"),
		NilaiAngsuran:  p.Get("nilai_angsuran"),
		TanggalBayar:   p.Get("tanggal_bayar"),
		StatusAngsuran: p.Get("status_angsuran"),
	}
}

// parseBody reads a small JSON or form body, answering the error itself.
func (s *Server) parseBody(w http.ResponseWriter, r *http.Request, op string) (*RequestBodyParser, bool) {
	p := NewRequestBodyParser(r, jsonBodyLimit)
	if err := p.Parse(); err != nil {
		if errors.Is(err, errBodyTooLarge) {
			s.writeError(w, r, op, err)
		} else {
			s.events.LogError(r.Context(), "Malformed request body", err, log.ErrorTypeValidation, op)
			BadRequestError("Format permintaan tidak valid").Write(w)
		}
		return nil, false
	}
	return p, true
}

// handleBfkoPage renders the BFKO monitoring page, or its JSON model.
func (s *Server) handleBfkoPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ov, err := s.bfko.Overview(r.Context(), q.Get("bulan"), q.Get("tahun"))
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	if wantsJSON(r) {
		NewHTMXResponse().JSON(ov).Write(w)
		return
	}
	s.render(w, r, "bfko.html", ov)
}

func (s *Server) handleBfkoEmployee(w http.ResponseWriter, r *http.Request) {
	detail, err := s.bfko.EmployeeDetail(r.Context(), r.PathValue("nip"), r.URL.Query().Get("tahun"))
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewHTMXResponse().JSON(map[string]interface{}{
		"success": true,
		"data":    detail,
	}).Write(w)
}

func (s *Server) handleBfkoCreatePayment(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r, log.OpCreate)
	if !ok {
		return
	}
	id, err := s.bfko.CreatePayment(r.Context(), paymentInput(p))
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	writeMutation(w, http.StatusCreated, amqp.CategoryInstallment,
		"Data pembayaran berhasil ditambahkan", map[string]interface{}{"id": id})
}

func (s *Server) handleBfkoUpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	p, ok := s.parseBody(w, r, log.OpUpdate)
	if !ok {
		return
	}
	if err := s.bfko.UpdatePayment(r.Context(), id, paymentUpdateInput(p)); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	writeMutation(w, http.StatusOK, amqp.CategoryInstallment, "Data pembayaran berhasil diperbarui", nil)
}

func (s *Server) handleBfkoDeletePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.bfko.DeletePayment(r.Context(), id); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	writeMutation(w, http.StatusOK, amqp.CategoryInstallment, "Data pembayaran berhasil dihapus", nil)
}

func (s *Server) handleBfkoDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	msg, err := s.bfko.DeleteEmployee(r.Context(), r.PathValue("nip"), r.URL.Query().Get("year"))
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	writeMutation(w, http.StatusOK, amqp.CategoryInstallment, msg, nil)
}

func (s *Server) handleBfkoDeleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.bfko.DeleteAll(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	writeMutation(w, http.StatusOK, amqp.CategoryInstallment,
		fmt.Sprintf("Berhasil menghapus %d data BFKO", n), map[string]interface{}{"deleted": n})
}

func (s *Server) handleBfkoImport(w http.ResponseWriter, r *http.Request) {
	file, err := s.formPart(w, r, "file")
	if err != nil {
		s.writeError(w, r, log.OpImport, err)
		return
	}
	defer file.Close()

	summary, err := s.bfko.Import(r.Context(), file)
	if err != nil {
		s.writeError(w, r, log.OpImport, err)
		return
	}
	s.events.LogImport(r.Context(), amqp.CategoryInstallment,
		summary.Inserted, summary.Updated, summary.Skipped, len(summary.Warnings))

	writeMutation(w, http.StatusOK, amqp.CategoryInstallment, summary.Message, map[string]interface{}{
		"inserted": summary.Inserted,
		"updated":  summary.Updated,
		"skipped":  summary.Skipped,
		"warnings": summary.Warnings,
		"filename": file.Name,
	})
}

func (s *Server) handleBfkoExportExcel(w http.ResponseWriter, r *http.Request) {
	d, err := s.bfko.ExportExcel(r.Context(), r.URL.Query().Get("tahun"))
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}
	writeDownload(w, d)
}

func (s *Server) handleBfkoExportPDF(w http.ResponseWriter, r *http.Request) {
	d, err := s.bfko.ExportPDF(r.Context(), r.URL.Query().Get("tahun"))
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}
	writeDownload(w, d)
}
