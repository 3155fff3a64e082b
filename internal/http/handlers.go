package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"mkwanja/internal/amqp"
	"mkwanja/internal/core"
	"mkwanja/internal/export/csvexport"
	"mkwanja/internal/log"
	"mkwanja/internal/services"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type schemaVersioner interface {
	SchemaVersion() uint
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks that the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{
		"rate_limiter": map[string]any{"active_clients": s.rateLimiter.activeClients()},
	}

	if p, ok := s.svc.Store().(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			checks["store"] = fmt.Sprintf("failed: %v", err)
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	} else {
		checks["store"] = "ok"
	}
	if v, ok := s.svc.Store().(schemaVersioner); ok {
		checks["schema_version"] = v.SchemaVersion()
	}

	NewResponse().Status(code).JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

type dashboardResponse struct {
	services.Dashboard
	Currency string `json:"currency,omitempty"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthParam(r.URL.Query(), s.svc.Now())
	if err != nil {
		writeError(w, r, err, log.OpRead)
		return
	}
	d, err := s.svc.Dashboard(r.Context(), month)
	if err != nil {
		writeError(w, r, err, log.OpRead)
		return
	}
	NewResponse().JSON(dashboardResponse{Dashboard: d, Currency: s.currency}).Write(w)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthParam(r.URL.Query(), s.svc.Now())
	if err != nil {
		writeError(w, r, err, log.OpRead)
		return
	}
	rep, err := s.svc.Report(r.Context(), month)
	if err != nil {
		writeError(w, r, err, log.OpRead)
		return
	}
	NewResponse().JSON(rep).Write(w)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthParam(r.URL.Query(), s.svc.Now())
	if err != nil {
		writeError(w, r, err, log.OpExport)
		return
	}
	expenses, err := s.svc.ListExpenses(r.Context(), &month)
	if err != nil {
		writeError(w, r, err, log.OpExport)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, csvexport.FileName(month)))
	if err := csvexport.Write(w, expenses); err != nil {
		// Headers are already sent.
		log.LogError(r.Context(), "CSV export failed", err, log.ComponentHTTP, log.OpExport,
			log.NewFields().WithErrorType(log.ErrorTypeInternal))
	}
}

type settingsResponse struct {
	Configured bool `json:"configured"`
	*core.Settings
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.svc.GetSettings(r.Context())
	if err != nil {
		writeError(w, r, err, log.OpRead)
		return
	}
	NewResponse().JSON(settingsResponse{Configured: settings != nil, Settings: settings}).Write(w)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err, log.OpUpdate)
		return
	}
	settings, err := s.svc.SaveSettings(r.Context(), p.Get("monthly_income"), p.Get("savings_target"))
	if err != nil {
		writeError(w, r, err, log.OpUpdate)
		return
	}
	NewResponse().
		Changed(amqp.EntitySettings, amqp.OpUpdate).
		JSON(settingsResponse{Configured: true, Settings: settings}).
		Write(w)
}

// handleListCategories returns the display list, with case variants of a
// name collapsed. ?all=1 returns every stored row.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	list := s.svc.DisplayCategories
	if r.URL.Query().Get("all") == "1" {
		list = s.svc.ListCategories
	}
	cats, err := list(r.Context())
	if err != nil {
		writeError(w, r, err, log.OpList)
		return
	}
	if cats == nil {
		cats = []core.Category{}
	}
	NewResponse().JSON(cats).Write(w)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err, log.OpCreate)
		return
	}
	c, err := s.svc.AddCategory(r.Context(), p.Get("name"))
	if err != nil {
		writeError(w, r, err, log.OpCreate)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Changed(amqp.EntityCategory, amqp.OpCreate).
		JSON(c).
		Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err, log.OpDelete)
		return
	}
	if err := s.svc.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, err, log.OpDelete)
		return
	}
	NewResponse().
		Status(http.StatusNoContent).
		Changed(amqp.EntityCategory, amqp.OpDelete).
		Write(w)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	month, err := parseOptionalMonth(r.URL.Query())
	if err != nil {
		writeError(w, r, err, log.OpList)
		return
	}
	expenses, err := s.svc.ListExpenses(r.Context(), month)
	if err != nil {
		writeError(w, r, err, log.OpList)
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	NewResponse().JSON(expenses).Write(w)
}

func expenseInput(p *RequestBodyParser) services.ExpenseInput {
	return services.ExpenseInput{
		Category: p.Get("category"),
		Amount:   p.Get("amount"),
		Note:     p.Get("note"),
	}
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err, log.OpCreate)
		return
	}
	e, err := s.svc.AddExpense(r.Context(), expenseInput(p))
	if err != nil {
		writeError(w, r, err, log.OpCreate)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Changed(amqp.EntityExpense, amqp.OpCreate).
		JSON(e).
		Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err, log.OpUpdate)
		return
	}
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err, log.OpUpdate)
		return
	}
	if err := s.svc.UpdateExpense(r.Context(), id, expenseInput(p)); err != nil {
		writeError(w, r, err, log.OpUpdate)
		return
	}
	NewResponse().
		Status(http.StatusNoContent).
		Changed(amqp.EntityExpense, amqp.OpUpdate).
		Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err, log.OpDelete)
		return
	}
	if err := s.svc.DeleteExpense(r.Context(), id); err != nil {
		writeError(w, r, err, log.OpDelete)
		return
	}
	NewResponse().
		Status(http.StatusNoContent).
		Changed(amqp.EntityExpense, amqp.OpDelete).
		Write(w)
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	if s.gate != nil {
		s.gate.Lock()
	}
	NewResponse().JSON(map[string]bool{"locked": true}).Write(w)
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	if s.gate == nil {
		NewResponse().JSON(map[string]bool{"locked": false}).Write(w)
		return
	}
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err, log.OpUnlock)
		return
	}
	if err := s.gate.Unlock(r.Context(), p.Get("pin")); err != nil {
		writeError(w, r, err, log.OpUnlock)
		return
	}
	NewResponse().JSON(map[string]bool{"locked": false}).Write(w)
}
