package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/Shivanand-hulikatti/eventreg/internal/logging"
	"github.com/Shivanand-hulikatti/eventreg/internal/model"
	"github.com/Shivanand-hulikatti/eventreg/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

var dashboardTmpl = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
	"when": func(t time.Time) string { return t.UTC().Format("Mon Jan 2, 2006 15:04 MST") },
}).ParseFS(templateFS, "templates/dashboard.html"))

type dashboardData struct {
	Stats    model.SystemStats
	Upcoming []model.EventSummary
	Users    []model.User
}

// Dashboard handles GET /
// It renders a read-only overview of upcoming events and users.
func (h *EventHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	data, _ := call(h, r, "Dashboard", read(func(e *service.Engine) dashboardData {
		return dashboardData{
			Stats:    e.GetSystemStats(),
			Upcoming: e.GetUpcomingEvents(),
			Users:    e.GetUsers(),
		}
	}))

	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, data); err != nil {
		logging.FromContext(r.Context()).Error("render dashboard", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
