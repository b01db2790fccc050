package http

import (
	"context"
	"net/http"

	"billed/internal/core"
)

// clientIP extracts the client address, preferring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// billViews returns the user's bill views in pipeline order (earliest
// first), serving from the per-user cache when possible.
func (s *Server) billViews(ctx context.Context, email string) ([]core.BillView, error) {
	if views, ok := s.viewCache.Get(email); ok {
		return views, nil
	}

	all, err := s.lister.GetBills(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]core.BillView, 0, len(all))
	for _, v := range all {
		if v.Email == email {
			views = append(views, v)
		}
	}

	s.viewCache.Set(email, views)
	return views, nil
}

// displayOrder reverses the pipeline order into the latest-to-earliest
// order the bills table shows.
func displayOrder(views []core.BillView) []core.BillView {
	out := make([]core.BillView, len(views))
	for i, v := range views {
		out[len(views)-1-i] = v
	}
	return out
}

func (s *Server) invalidateViews(email string) {
	s.viewCache.Delete(email)
}
