// Package api exposes the minimal externally-reachable HTTP surface: the
// prometheus /metrics endpoint and a read-only GET_DELEGATES-style listing
// of registered delegates. The wider RPC/API surface remains an
// interface-only collaborator.
package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/lumenchain/lumend/core"
)

// delegateResponse is the JSON shape of a single delegate entry.
type delegateResponse struct {
	Username     string `json:"username"`
	PublicKey    string `json:"publicKey"`
	Address      string `json:"address"`
	Votes        uint64 `json:"votes"`
	MissedBlocks uint64 `json:"missedBlocks"`
	ForgedBlocks uint64 `json:"forgedBlocks"`
}

// envelope is the {success, errors[]} / {delegates[], count} response shape
// every handler returns.
type envelope struct {
	Success   bool               `json:"success"`
	Errors    []string           `json:"errors,omitempty"`
	Delegates []delegateResponse `json:"delegates,omitempty"`
	Count     int                `json:"count,omitempty"`
}

// Server wires the chi router to the account registry and a metrics
// registry (DS5/DS6).
type Server struct {
	router   chi.Router
	accounts *core.AccountRegistry
	metrics  *core.Metrics
	logger   *logrus.Entry
}

// NewServer builds a ready-to-serve Server; call Router().ServeHTTP or pass
// the result straight to http.ListenAndServe.
func NewServer(accounts *core.AccountRegistry, metrics *core.Metrics, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Server{
		accounts: accounts,
		metrics:  metrics,
		logger:   logger.WithField("component", "api"),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Get("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}).ServeHTTP)
	r.Get("/api/delegates", s.handleGetDelegates)
	s.router = r
	return s
}

// Router exposes the underlying chi.Router for embedding or testing.
func (s *Server) Router() chi.Router { return s.router }

// handleGetDelegates lists registered delegates: limit (required, 1-100),
// offset (>=0), optional username prefix filter, optional sort. When sort
// is omitted, results are ordered by publicKey ascending after the
// username filter.
func (s *Server) handleGetDelegates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limitStr := q.Get("limit")
	if limitStr == "" {
		writeJSON(w, http.StatusBadRequest, envelope{
			Success: false,
			Errors:  []string{"IS NOT VALID REQUEST:'GET_DELEGATES'... Missing required property: limit"},
		})
		return
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > 100 {
		writeJSON(w, http.StatusBadRequest, envelope{
			Success: false,
			Errors:  []string{"IS NOT VALID REQUEST:'GET_DELEGATES'... limit must be between 1 and 100"},
		})
		return
	}

	offset := 0
	if offsetStr := q.Get("offset"); offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			writeJSON(w, http.StatusBadRequest, envelope{
				Success: false,
				Errors:  []string{"IS NOT VALID REQUEST:'GET_DELEGATES'... offset must be >= 0"},
			})
			return
		}
	}

	username := q.Get("username")
	if username != "" && len(username) < 3 {
		writeJSON(w, http.StatusBadRequest, envelope{
			Success: false,
			Errors:  []string{"IS NOT VALID REQUEST:'GET_DELEGATES'... username must be at least 3 characters"},
		})
		return
	}

	sortField, sortDir := "publicKey", "ASC"
	if sortParam := q.Get("sort"); sortParam != "" {
		parts := strings.SplitN(sortParam, ":", 2)
		sortField = parts[0]
		if len(parts) == 2 {
			sortDir = strings.ToUpper(parts[1])
		}
	}

	delegates := s.accounts.Delegates()

	filtered := delegates[:0:0]
	for _, acc := range delegates {
		if username != "" && !strings.HasPrefix(acc.Delegate.Username, username) {
			continue
		}
		filtered = append(filtered, acc)
	}

	sortDelegates(filtered, sortField, sortDir)

	count := len(filtered)
	if offset >= count {
		writeJSON(w, http.StatusOK, envelope{Success: true, Delegates: []delegateResponse{}, Count: count})
		return
	}
	end := offset + limit
	if end > count {
		end = count
	}
	page := filtered[offset:end]

	out := make([]delegateResponse, 0, len(page))
	for _, acc := range page {
		var pubHex string
		if acc.PublicKey != nil {
			pubHex = acc.PublicKey.String()
		}
		out = append(out, delegateResponse{
			Username:     acc.Delegate.Username,
			PublicKey:    pubHex,
			Address:      acc.Address.String(),
			Votes:        acc.Delegate.Votes,
			MissedBlocks: acc.Delegate.MissedBlocks,
			ForgedBlocks: acc.Delegate.ForgedBlocks,
		})
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Delegates: out, Count: count})
}

// sortDelegates orders accounts by field/direction, falling back to the
// pinned publicKey-ascending default for an unrecognized field.
func sortDelegates(accs []*core.Account, field, dir string) {
	less := func(a, b *core.Account) bool {
		switch field {
		case "votes":
			return a.Delegate.Votes < b.Delegate.Votes
		case "username":
			return a.Delegate.Username < b.Delegate.Username
		default:
			return a.PublicKey.String() < b.PublicKey.String()
		}
	}
	sort.SliceStable(accs, func(i, j int) bool {
		if dir == "DESC" {
			return less(accs[j], accs[i])
		}
		return less(accs[i], accs[j])
	})
}

func writeJSON(w http.ResponseWriter, status int, v envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
