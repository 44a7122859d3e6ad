// README: API gateway; holds module services and exposes the gin engine.
package http

import (
	"net/http"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/config"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/events"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/infra"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/modules/order"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/modules/tracking"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/qrcode"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/realtime"
)

type ServerDeps struct {
	Order     *order.Service
	Registry  *tracking.Registry
	Cache     *tracking.Store
	Hub       *realtime.Hub
	Builder   *qrcode.Builder
	Signer    *qrcode.LocalSigner
	Validator *qrcode.Validator
	Publisher events.Publisher
	Verifier  infra.TokenVerifier
	QR        config.QR
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	if deps.Registry == nil {
		deps.Registry = tracking.NewRegistry(config.DefaultTracking(), nil)
	}
	if deps.Hub == nil {
		deps.Hub = realtime.NewHub()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.Discard{}
	}
	return &Server{deps: deps}
}

func (s *Server) Routes() http.Handler {
	return NewRouter(s.deps)
}
