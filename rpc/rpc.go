package rpc

import (
	"errors"
	"net"
	"net/rpc"

	"github.com/wfunc/roulette/logger"
)

// Server manages the admin RPC listener.
type Server struct {
	listener net.Listener
	rpc      *rpc.Server
}

// NewServer listens on addr. Services are added with Register before Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		rpc:      rpc.NewServer(),
	}, nil
}

// Register exposes rcvr's methods under name.
func (s *Server) Register(name string, rcvr interface{}) error {
	return s.rpc.RegisterName(name, rcvr)
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start serves connections until Stop is called.
func (s *Server) Start() error {
	logger.Log.Infof("RPC server listening on %s", s.listener.Addr())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return nil
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			return err
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	logger.Log.Info("Stopping RPC server.")
	s.listener.Close()
}
