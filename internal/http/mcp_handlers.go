package httpx

import (
	"net/http"

	"github.com/LuisErlacher/Archon/internal/domain"
)

func (r *Router) handleMCPStatus(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	rec := r.mcp.Status(req.Context())
	rec.Status = domain.NormalizeStatus(string(rec.Status))
	r.recordProbeResult(string(rec.Mode), string(rec.Status))
	writeJSON(w, http.StatusOK, rec)
}

func (r *Router) handleMCPConfig(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, r.mcp.Config(req.Context()))
}

func (r *Router) handleMCPClients(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, r.mcp.Clients(req.Context()))
}

func (r *Router) handleMCPSessions(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, r.mcp.Sessions(req.Context()))
}

func (r *Router) handleMCPHealth(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "mcp"})
}
