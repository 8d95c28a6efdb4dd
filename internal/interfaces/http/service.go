package httpinterface

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/ordex-daemon/internal/core/application"
	interfaces "github.com/tdex-network/ordex-daemon/internal/interfaces"
)

const shutdownTimeout = 10 * time.Second

type service struct {
	opts   ServiceOpts
	server *http.Server
}

type ServiceOpts struct {
	Port           int
	MarketplaceSvc application.MarketplaceService
}

func (o ServiceOpts) validate() error {
	if o.Port <= 0 || o.Port > 65535 {
		return fmt.Errorf("invalid listening port %d", o.Port)
	}
	if o.MarketplaceSvc == nil {
		return fmt.Errorf("missing marketplace service")
	}
	return nil
}

func NewService(opts ServiceOpts) (interfaces.Service, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid opts: %w", err)
	}
	return &service{opts: opts}, nil
}

func (s *service) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           NewRouter(s.opts.MarketplaceSvc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}

	go func() {
		if err := s.server.Serve(lis); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server stopped unexpectedly")
		}
	}()

	log.Infof("marketplace interface is listening on %s", s.server.Addr)
	return nil
}

func (s *service) Stop() {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("failed to gracefully stop http server")
	}
	log.Debug("stopped marketplace interface")
}
